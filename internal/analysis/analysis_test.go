package analysis_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kiitcms/backend/internal/analysis"
	"kiitcms/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCategorizer struct {
	mock.Mock
}

func (m *MockCategorizer) Categorize(ctx context.Context, text string) (analysis.Result, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(analysis.Result), args.Error(1)
}

func TestKeywordPriority(t *testing.T) {
	tests := []struct {
		text string
		want models.Priority
	}{
		{"Wi-Fi down in Hostel B, urgent", models.PriorityHigh},
		{"EMERGENCY: water leaking", models.PriorityHigh},
		{"minor suggestion but also urgent", models.PriorityHigh},
		{"a minor cosmetic issue", models.PriorityLow},
		{"projector flickers", models.PriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, analysis.KeywordPriority(tt.text), tt.text)
	}
}

func TestTriage_FailureFallsBackToKeywords(t *testing.T) {
	m := new(MockCategorizer)
	m.On("Categorize", mock.Anything, mock.Anything).Return(analysis.Result{}, errors.New("model overloaded"))

	res := analysis.Triage(context.Background(), m, "Wi-Fi down in Hostel B, urgent", time.Second)

	assert.Equal(t, "Other", res.Category)
	assert.Equal(t, models.PriorityHigh, res.Priority)
	assert.Equal(t, "Unassigned", res.AssignedDept)
	m.AssertExpectations(t)
}

func TestTriage_NilCategorizer(t *testing.T) {
	res := analysis.Triage(context.Background(), nil, "lights flicker", time.Second)
	assert.Equal(t, analysis.Result{Category: "Other", Priority: models.PriorityMedium, AssignedDept: "Unassigned"}, res)
}

func TestTriage_NormalizesAnswer(t *testing.T) {
	m := new(MockCategorizer)
	m.On("Categorize", mock.Anything, "router dead").
		Return(analysis.Result{Category: " Network ", Priority: "", AssignedDept: "it"}, nil)

	res := analysis.Triage(context.Background(), m, "router dead", time.Second)

	assert.Equal(t, "Network", res.Category)
	assert.Equal(t, models.PriorityMedium, res.Priority)
	assert.Equal(t, "IT Support", res.AssignedDept)
}

func TestTriage_UnknownDepartmentUnassigned(t *testing.T) {
	m := new(MockCategorizer)
	m.On("Categorize", mock.Anything, mock.Anything).
		Return(analysis.Result{Category: "Misc", Priority: models.PriorityLow, AssignedDept: "Astronomy Club"}, nil)

	res := analysis.Triage(context.Background(), m, "telescope", time.Second)
	assert.Equal(t, "Unassigned", res.AssignedDept)
	assert.Equal(t, models.PriorityLow, res.Priority)
}

type slowCategorizer struct{}

func (slowCategorizer) Categorize(ctx context.Context, _ string) (analysis.Result, error) {
	<-ctx.Done()
	return analysis.Result{}, ctx.Err()
}

func TestTriage_TimeoutFallsBack(t *testing.T) {
	start := time.Now()
	res := analysis.Triage(context.Background(), slowCategorizer{}, "fire in lab", 20*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.PriorityHigh, res.Priority)
	assert.Equal(t, "Unassigned", res.AssignedDept)
}

func TestHTTPCategorizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"category":"Network","priority":"high","assignedDept":"IT Support"}`))
	}))
	defer srv.Close()

	c, err := analysis.NewHTTPCategorizer(srv.URL, "k", []string{"IT Support"})
	require.NoError(t, err)

	res, err := c.Categorize(context.Background(), "router")
	require.NoError(t, err)
	assert.Equal(t, analysis.Result{Category: "Network", Priority: models.PriorityHigh, AssignedDept: "IT Support"}, res)
}

func TestHTTPCategorizer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := analysis.NewHTTPCategorizer(srv.URL, "", nil)
	require.NoError(t, err)
	_, err = c.Categorize(context.Background(), "x")
	assert.Error(t, err)

	_, err = analysis.NewHTTPCategorizer("", "", nil)
	assert.ErrorIs(t, err, analysis.ErrEndpointRequired)
}
