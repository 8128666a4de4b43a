package config

import (
	"sort"
	"time"
)

const (
	// Lifecycle windows, compared as elapsed durations.
	ReopenWindow     = 7 * 24 * time.Hour
	EscalationWindow = 3 * 24 * time.Hour

	// Listing
	PageSize = 10

	// Collaborators
	DefaultAITimeout = 8 * time.Second
	StatsCacheTTL    = 30 * time.Second

	// Notification delivery
	NotifyQueueSize      = 256
	NotifyMaxAttempts    = 3
	NotifyInitialBackoff = 500 * time.Millisecond

	// Submission
	MaxTitleLength       = 150
	MaxDescriptionLength = 5000
	MaxReplyLength       = 2000

	UnassignedDept  = "Unassigned"
	DefaultCategory = "Other"

	// TriageMarker separates the student's text from an appended AI triage transcript.
	TriageMarker = "--- AI Triage ---"
)

// Departments is the catalogue of assignable departments, keyed by the short
// alias used in staff mailbox prefixes (e.g. "hostel@kiit.ac.in").
var Departments = map[string]string{
	"hostel":      "Hostel",
	"academics":   "Academics",
	"it":          "IT Support",
	"maintenance": "Maintenance",
	"mess":        "Mess",
	"transport":   "Transport",
	"library":     "Library",
	"accounts":    "Accounts",
	"medical":     "Medical",
	"security":    "Security",
}

// PriorityKeywords drives the deterministic fallback when AI categorization fails.
// High is checked before Low; no match means Medium.
var PriorityKeywords = map[string][]string{
	"High": {"urgent", "emergency", "immediately", "asap", "danger", "fire", "injury", "harass", "critical", "unsafe"},
	"Low":  {"suggestion", "minor", "whenever", "feedback", "request", "cosmetic"},
}

// IsDepartment reports whether name is a catalogued department display name.
func IsDepartment(name string) bool {
	for _, v := range Departments {
		if v == name {
			return true
		}
	}
	return false
}

// DepartmentNames returns the catalogued display names in alphabetical order.
func DepartmentNames() []string {
	names := make([]string, 0, len(Departments))
	for _, v := range Departments {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}
