package handler

import (
	"net/http"
	"strings"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/complaint"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"

	"github.com/gin-gonic/gin"
)

type listResponse struct {
	Items   []models.ComplaintView `json:"items"`
	Cursor  query.Cursor           `json:"cursor,omitempty"`
	HasMore bool                   `json:"hasMore"`
}

type statusRequest struct {
	Status models.Status `json:"status" binding:"required"`
}

type bulkStatusRequest struct {
	IDs    []string      `json:"ids" binding:"required,min=1"`
	Status models.Status `json:"status" binding:"required"`
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

type ratingRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type departmentRequest struct {
	Department string `json:"department" binding:"required"`
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperr.Validation("malformed request body"))
		return false
	}
	return true
}

func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req complaint.SubmitRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.Complaints.Submit(c.Request.Context(), RoleContextFrom(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListComplaints serves one page. q narrows the returned page by title and
// does not reach items beyond it.
func (h *Handler) ListComplaints(c *gin.Context) {
	rc := RoleContextFrom(c)
	status := c.DefaultQuery("status", access.StatusAll)

	var (
		page query.Page
		err  error
	)
	if cursor := c.Query("cursor"); cursor != "" {
		page, err = h.Engine.NextPage(c.Request.Context(), rc, status, query.Cursor(cursor))
	} else {
		page, err = h.Engine.FirstPage(c.Request.Context(), rc, status)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	term := strings.ToLower(strings.TrimSpace(c.Query("q")))
	items := make([]models.ComplaintView, 0, len(page.Items))
	for _, it := range page.Items {
		if term != "" && !strings.Contains(strings.ToLower(it.Title), term) {
			continue
		}
		items = append(items, models.NewComplaintView(it, rc.UserID, rc.Role))
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Cursor: page.Cursor, HasMore: page.HasMore})
}

func (h *Handler) ComplaintStats(c *gin.Context) {
	st, err := h.Stats.Compute(c.Request.Context(), RoleContextFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	view, err := h.Complaints.Get(c.Request.Context(), RoleContextFrom(c), c.Param("id"))
	respond(c, view, err)
}

func (h *Handler) ReplyToComplaint(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.Complaints.Reply(c.Request.Context(), RoleContextFrom(c), c.Param("id"), req.Text)
	respond(c, view, err)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.Complaints.UpdateStatus(c.Request.Context(), RoleContextFrom(c), c.Param("id"), req.Status)
	respond(c, view, err)
}

func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	var req bulkStatusRequest
	if !bind(c, &req) {
		return
	}
	views, err := h.Complaints.BulkUpdateStatus(c.Request.Context(), RoleContextFrom(c), req.IDs, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views})
}

func (h *Handler) EscalateComplaint(c *gin.Context) {
	view, err := h.Complaints.Escalate(c.Request.Context(), RoleContextFrom(c), c.Param("id"))
	respond(c, view, err)
}

func (h *Handler) ReopenComplaint(c *gin.Context) {
	view, err := h.Complaints.Reopen(c.Request.Context(), RoleContextFrom(c), c.Param("id"))
	respond(c, view, err)
}

func (h *Handler) RateComplaint(c *gin.Context) {
	var req ratingRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.Complaints.Rate(c.Request.Context(), RoleContextFrom(c), c.Param("id"), req.Rating, req.Comment)
	respond(c, view, err)
}

func (h *Handler) AssignDepartment(c *gin.Context) {
	var req departmentRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.Complaints.AssignDepartment(c.Request.Context(), RoleContextFrom(c), c.Param("id"), req.Department)
	respond(c, view, err)
}

func (h *Handler) AddInternalNote(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.Complaints.AddInternalNote(c.Request.Context(), RoleContextFrom(c), c.Param("id"), req.Text)
	respond(c, view, err)
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	if err := h.Complaints.Delete(c.Request.Context(), RoleContextFrom(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respond(c *gin.Context, view *models.ComplaintView, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}
