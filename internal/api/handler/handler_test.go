package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/api/handler"
	"kiitcms/backend/internal/api/middleware"
	"kiitcms/backend/internal/attachments"
	"kiitcms/backend/internal/complaint"
	"kiitcms/backend/internal/feedhub"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"
	"kiitcms/backend/internal/storage"
	"kiitcms/backend/internal/storage/storagetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeUploader struct {
	got []byte
}

func (f *fakeUploader) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*attachments.Attachment, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.got = data
	return &attachments.Attachment{URL: "https://files.test/complaints/x.png", Key: "complaints/x.png", ContentType: contentType, Size: size}, nil
}

type harness struct {
	router  *gin.Engine
	store   *storage.Service
	auth    *handler.Authenticator
	uploads *fakeUploader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := storagetest.NewClock()
	store := storagetest.NewService(t, clock)
	svc := complaint.NewService(store, nil, nil)
	svc.Now = clock.Now

	auth := handler.NewAuthenticator("test-secret", access.NewResolver(store))
	auth.Now = clock.Now

	uploads := &fakeUploader{}
	h := handler.NewHandler(svc, query.NewEngine(store), query.NewStatsAggregator(store), store, uploads, feedhub.NewManager(), auth)
	h.GeneralLimit = middleware.NewKeyedRateLimiter(rate.Inf, 1)
	h.WriteLimit = middleware.NewKeyedRateLimiter(rate.Inf, 1)

	r := gin.New()
	h.Routes(r)
	return &harness{router: r, store: store, auth: auth, uploads: uploads}
}

func (h *harness) token(t *testing.T, id access.Identity) string {
	t.Helper()
	tok, err := h.auth.IssueToken(id)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func studentID(id string) access.Identity {
	return access.Identity{ID: id, Email: id + "@kiit.ac.in", DisplayName: "Student " + id, Role: models.RoleStudent, Verified: true}
}

var (
	adminID  = access.Identity{ID: "admin-1", Email: "dean@kiit.ac.in", DisplayName: "Dean", Role: models.RoleAdmin, Verified: true}
	hostelID = access.Identity{ID: "staff-1", Email: "hostel@kiit.ac.in", DisplayName: "Hostel Office", Role: models.RoleDepartment, Verified: true}
)

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type listBody struct {
	Items   []models.ComplaintView `json:"items"`
	Cursor  string                 `json:"cursor"`
	HasMore bool                   `json:"hasMore"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/complaints", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodGet, "/api/complaints", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := handler.NewAuthenticator("other-secret", access.NewResolver(h.store))
	forged, err := other.IssueToken(studentID("stu-1"))
	require.NoError(t, err)
	w = h.do(t, http.MethodGet, "/api/complaints", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_TokenRoundTrip(t *testing.T) {
	h := newHarness(t)
	id := studentID("stu-1")
	id.RollNo = "2105123"

	got, err := h.auth.Parse(h.token(t, id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestComplaints_SubmitListAndScope(t *testing.T) {
	h := newHarness(t)
	stu1 := h.token(t, studentID("stu-1"))
	stu2 := h.token(t, studentID("stu-2"))

	w := h.do(t, http.MethodPost, "/api/complaints", stu1, map[string]interface{}{
		"title":       "Fan broken",
		"description": "Ceiling fan in room 204 stopped working",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.ComplaintView
	decode(t, w, &created)
	assert.Equal(t, models.StatusPending, created.Status)

	w = h.do(t, http.MethodGet, "/api/complaints", stu1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list listBody
	decode(t, w, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, created.ID, list.Items[0].ID)
	assert.False(t, list.HasMore)

	w = h.do(t, http.MethodGet, "/api/complaints", stu2, nil)
	decode(t, w, &list)
	assert.Empty(t, list.Items)

	w = h.do(t, http.MethodGet, "/api/complaints/"+created.ID, stu2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var e errorBody
	decode(t, w, &e)
	assert.Equal(t, "access_denied", e.Kind)

	w = h.do(t, http.MethodGet, "/api/complaints?q=wifi", stu1, nil)
	decode(t, w, &list)
	assert.Empty(t, list.Items)
}

func TestComplaints_StaffFlow(t *testing.T) {
	h := newHarness(t)
	stu := h.token(t, studentID("stu-1"))
	admin := h.token(t, adminID)
	hostel := h.token(t, hostelID)

	w := h.do(t, http.MethodPost, "/api/complaints", stu, map[string]interface{}{
		"title": "Water leak", "description": "Bathroom tap leaking in block 7",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c models.ComplaintView
	decode(t, w, &c)

	w = h.do(t, http.MethodPatch, "/api/complaints/"+c.ID+"/department", admin, map[string]string{"department": "Hostel"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/complaints?status=Pending", hostel, nil)
	var list listBody
	decode(t, w, &list)
	require.Len(t, list.Items, 1)

	w = h.do(t, http.MethodPost, "/api/complaints/"+c.ID+"/replies", hostel, map[string]string{"text": "Plumber assigned"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &c)
	assert.Equal(t, models.StatusResponded, c.Status)

	w = h.do(t, http.MethodPatch, "/api/complaints/"+c.ID+"/status", stu, map[string]string{"status": "Resolved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPatch, "/api/complaints/"+c.ID+"/status", hostel, map[string]string{"status": "Resolved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/complaints/stats", hostel, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st query.Stats
	decode(t, w, &st)
	assert.Equal(t, query.Stats{Total: 1, Pending: 0, Resolved: 1}, st)

	w = h.do(t, http.MethodPost, "/api/complaints/"+c.ID+"/rating", stu, map[string]interface{}{"rating": 5, "comment": "quick"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodDelete, "/api/complaints/"+c.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestComplaints_BadBodyAndNotReady(t *testing.T) {
	h := newHarness(t)
	stu := h.token(t, studentID("stu-1"))

	w := h.do(t, http.MethodPost, "/api/complaints/bulk-status", h.token(t, adminID), map[string]interface{}{"ids": []string{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(t, http.MethodGet, "/api/complaints?status=Lost", stu, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	unknown := access.Identity{ID: "staff-9", Email: "someone@kiit.ac.in", Role: models.RoleDepartment, Verified: true}
	w = h.do(t, http.MethodGet, "/api/complaints", h.token(t, unknown), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := &models.Notification{RecipientID: "stu-1", Kind: "replied_to", ComplaintID: "c1", Title: "New reply", Body: "..."}
	require.NoError(t, h.store.SaveNotification(ctx, n))
	require.NoError(t, h.store.SaveNotification(ctx, &models.Notification{RecipientID: "stu-2", Kind: "replied_to", Title: "x"}))

	stu := h.token(t, studentID("stu-1"))
	w := h.do(t, http.MethodGet, "/api/notifications", stu, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []models.Notification `json:"items"`
	}
	decode(t, w, &body)
	require.Len(t, body.Items, 1)
	assert.False(t, body.Items[0].Read)

	w = h.do(t, http.MethodPost, "/api/notifications/"+jsonID(n.ID)+"/read", stu, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodPost, "/api/notifications/"+jsonID(n.ID)+"/read", h.token(t, studentID("stu-2")), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPost, "/api/notifications/abc/read", stu, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func jsonID(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestAttachments_Upload(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="leak.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	send := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/attachments", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)
		return w
	}

	w := send(h.token(t, studentID("stu-1")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var att attachments.Attachment
	decode(t, w, &att)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, []byte("png-bytes"), h.uploads.got)

	w = send(h.token(t, adminID))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit_PerCaller(t *testing.T) {
	rl := middleware.NewKeyedRateLimiter(rate.Every(time.Hour), 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := handler.NewHandler(nil, nil, nil, nil, nil, feedhub.NewManager(), handler.NewAuthenticator("test-secret", nil))
	h.AllowedOrigins = []string{"https://cms.kiit.ac.in"}
	r := gin.New()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodOptions, "/api/complaints", nil)
	req.Header.Set("Origin", "https://cms.kiit.ac.in")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://cms.kiit.ac.in", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/complaints", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
