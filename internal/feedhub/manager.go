package feedhub

import (
	"context"

	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"
)

const changeBuffer = 256

// Manager owns the set of live clients. All map access happens on the Run goroutine.
type Manager struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	ChangesCh    chan models.ComplaintEvent

	done chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		ChangesCh:    make(chan models.ComplaintEvent, changeBuffer),
		done:         make(chan struct{}),
	}
}

// Register adds c and starts it. Returns false if the manager has stopped.
func (m *Manager) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Broadcast queues ev for every client. It never blocks the writer that
// produced the change; when the queue is full the change is dropped.
func (m *Manager) Broadcast(ev models.ComplaintEvent) {
	select {
	case m.ChangesCh <- ev:
	default:
		logger.Warn().Str("complaint_id", ev.ComplaintID).Msg("feed queue full, change dropped")
	}
}

// Run serves registrations and fan-out until ctx is done, then closes every client.
func (m *Manager) Run(ctx context.Context) {
	defer func() {
		close(m.done)
		for id, c := range m.Clients {
			c.Close()
			delete(m.Clients, id)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-m.RegisterCh:
			m.Clients[c.ID()] = c
			c.Run()
			logger.Debug().Str("client", c.ID()).Int("clients", len(m.Clients)).Msg("feed client registered")

		case c := <-m.UnregisterCh:
			if _, ok := m.Clients[c.ID()]; ok {
				delete(m.Clients, c.ID())
				c.Close()
				logger.Debug().Str("client", c.ID()).Int("clients", len(m.Clients)).Msg("feed client unregistered")
			}

		case ev := <-m.ChangesCh:
			for _, c := range m.Clients {
				c.Deliver(ev)
			}
		}
	}
}
