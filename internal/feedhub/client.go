// Package feedhub fans committed complaint changes out to live list sessions.
package feedhub

import "kiitcms/backend/internal/models"

// Client is one live connection registered with the Manager.
type Client interface {
	// ID identifies the connection, not the user: one user may hold several.
	ID() string
	// Deliver hands the client a change. It must not block.
	Deliver(ev models.ComplaintEvent)
	// Run starts the client's pumps.
	Run()
	// Close stops the client. Safe to call more than once.
	Close()
}
