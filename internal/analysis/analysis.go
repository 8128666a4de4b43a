// Package analysis categorizes complaint text. An AI collaborator is tried
// first; any failure falls back to a deterministic keyword rule so submission
// never depends on the AI being reachable.
package analysis

import (
	"context"
	"strings"
	"time"

	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"
)

// Result is the triage outcome applied to a new complaint.
type Result struct {
	Category     string          `json:"category"`
	Priority     models.Priority `json:"priority"`
	AssignedDept string          `json:"assignedDept"`
}

// Categorizer is the AI collaborator.
type Categorizer interface {
	Categorize(ctx context.Context, text string) (Result, error)
}

// Fallback is the keyword rule: category Other, priority from the keyword
// tables (High checked first), department Unassigned.
func Fallback(text string) Result {
	return Result{
		Category:     config.DefaultCategory,
		Priority:     KeywordPriority(text),
		AssignedDept: config.UnassignedDept,
	}
}

// KeywordPriority returns High if any high keyword occurs, else Low if any low keyword occurs, else Medium.
func KeywordPriority(text string) models.Priority {
	lower := strings.ToLower(text)
	for _, level := range []models.Priority{models.PriorityHigh, models.PriorityLow} {
		for _, kw := range config.PriorityKeywords[string(level)] {
			if strings.Contains(lower, kw) {
				return level
			}
		}
	}
	return models.PriorityMedium
}

// Triage runs c with a deadline and normalizes its answer. Nil c, errors,
// timeouts and unusable answers all produce Fallback(text).
func Triage(ctx context.Context, c Categorizer, text string, timeout time.Duration) Result {
	if c == nil {
		return Fallback(text)
	}
	if timeout <= 0 {
		timeout = config.DefaultAITimeout
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := c.Categorize(tctx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("ai categorization failed, using keyword fallback")
		return Fallback(text)
	}
	return normalize(res, text)
}

func normalize(res Result, text string) Result {
	fb := Fallback(text)

	res.Category = strings.TrimSpace(res.Category)
	if res.Category == "" {
		res.Category = fb.Category
	}
	if !res.Priority.Valid() {
		res.Priority = fb.Priority
	}
	res.AssignedDept = CanonicalDepartment(res.AssignedDept)
	return res
}

// CanonicalDepartment maps an alias or display name to the catalogued display
// name. Anything unknown becomes Unassigned.
func CanonicalDepartment(name string) string {
	name = strings.TrimSpace(name)
	if config.IsDepartment(name) {
		return name
	}
	if display, ok := config.Departments[strings.ToLower(name)]; ok {
		return display
	}
	for _, display := range config.Departments {
		if strings.EqualFold(display, name) {
			return display
		}
	}
	return config.UnassignedDept
}
