package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kiitcms/backend/internal/models"
)

var ErrEndpointRequired = errors.New("ai endpoint is required")

type categorizeRequest struct {
	Text        string   `json:"text"`
	Departments []string `json:"departments"`
}

type categorizeResponse struct {
	Category     string `json:"category"`
	Priority     string `json:"priority"`
	AssignedDept string `json:"assignedDept"`
}

// HTTPCategorizer calls a JSON categorization endpoint.
type HTTPCategorizer struct {
	endpoint    string
	apiKey      string
	client      *http.Client
	departments []string
}

func NewHTTPCategorizer(endpoint, apiKey string, departments []string) (*HTTPCategorizer, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	return &HTTPCategorizer{
		endpoint:    endpoint,
		apiKey:      apiKey,
		client:      &http.Client{},
		departments: departments,
	}, nil
}

// Categorize posts text and decodes the answer. The deadline comes from ctx.
func (h *HTTPCategorizer) Categorize(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(categorizeRequest{Text: text, Departments: h.departments})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("ai endpoint returned status %d", resp.StatusCode)
	}

	var out categorizeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return Result{
		Category:     out.Category,
		Priority:     parsePriority(out.Priority),
		AssignedDept: out.AssignedDept,
	}, nil
}

// parsePriority accepts any casing. Unknown values are left empty for the caller's fallback.
func parsePriority(s string) models.Priority {
	for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p
		}
	}
	return ""
}
