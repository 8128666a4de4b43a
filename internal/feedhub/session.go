package feedhub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"

	"github.com/google/uuid"
)

// Client commands.
const (
	CmdList   = "list"
	CmdMore   = "more"
	CmdSearch = "search"
	CmdStats  = "stats"
)

// Server pushes.
const (
	MsgPage   = "page"
	MsgUpdate = "update"
	MsgStats  = "stats"
	MsgError  = "error"
)

const (
	sendBuffer    = 16
	pendingBuffer = 64
)

type Command struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
	Term   string `json:"term,omitempty"`
}

type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type ErrorPayload struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// SearchResult is a page filtered client-side by title.
type SearchResult struct {
	Term  string                 `json:"term"`
	Items []models.ComplaintView `json:"items"`
}

// StatsSource computes scope-wide counts.
type StatsSource interface {
	Compute(ctx context.Context, rc access.RoleContext) (query.Stats, error)
}

// Session is one live list view. It is transport-agnostic: commands come in
// through Handle, changes through Deliver, and everything for the client is
// queued on Send.
type Session struct {
	id    string
	rc    access.RoleContext
	List  *query.ListState
	Stats StatsSource

	Send    chan Envelope
	pending chan models.ComplaintEvent

	resync    atomic.Bool
	statsOn   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(rc access.RoleContext, engine *query.Engine, stats StatsSource) *Session {
	return &Session{
		id:      uuid.NewString(),
		rc:      rc,
		List:    query.NewListState(engine),
		Stats:   stats,
		Send:    make(chan Envelope, sendBuffer),
		pending: make(chan models.ComplaintEvent, pendingBuffer),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Handle runs one client command.
func (s *Session) Handle(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CmdList:
		snap, err := s.List.Load(ctx, s.rc, cmd.Status)
		s.pushPage(snap, err)
	case CmdMore:
		snap, err := s.List.LoadMore(ctx)
		s.pushPage(snap, err)
	case CmdSearch:
		s.push(Envelope{Type: MsgPage, Data: SearchResult{Term: cmd.Term, Items: s.List.Search(cmd.Term)}})
	case CmdStats:
		s.statsOn.Store(true)
		s.pushStats(ctx)
	default:
		s.pushError(apperr.Validation("unknown command " + cmd.Type))
	}
}

// Deliver queues a change for ProcessChanges. If the queue overflows the
// session reloads its list instead of replaying what it missed.
func (s *Session) Deliver(ev models.ComplaintEvent) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.pending <- ev:
	default:
		s.resync.Store(true)
	}
}

// ProcessChanges applies queued changes to the list until the session closes.
func (s *Session) ProcessChanges(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case ev := <-s.pending:
			s.applyChange(ctx, ev)
		}
	}
}

func (s *Session) applyChange(ctx context.Context, ev models.ComplaintEvent) {
	if s.resync.Swap(false) {
		snap, err := s.List.Load(ctx, s.List.RoleContext(), s.List.Snapshot().Status)
		s.pushPage(snap, err)
	} else if s.List.ApplyChange(ev) {
		s.push(Envelope{Type: MsgUpdate, Data: s.List.Snapshot()})
	}
	if s.statsOn.Load() {
		s.pushStats(ctx)
	}
}

// Close unmounts the list. Later pushes are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.List.Unmount()
	})
}

func (s *Session) pushPage(snap query.Snapshot, err error) {
	switch {
	case errors.Is(err, query.ErrStale), errors.Is(err, query.ErrUnmounted):
		return
	case err != nil:
		s.pushError(err)
	default:
		s.push(Envelope{Type: MsgPage, Data: snap})
	}
}

func (s *Session) pushStats(ctx context.Context) {
	st, err := s.Stats.Compute(ctx, s.rc)
	if err != nil {
		s.pushError(err)
		return
	}
	s.push(Envelope{Type: MsgStats, Data: st})
}

func (s *Session) pushError(err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error().Err(err).Str("session", s.id).Msg("feed command failed")
	}
	s.push(Envelope{Type: MsgError, Data: ErrorPayload{Kind: kind, Message: apperr.Message(err)}})
}

func (s *Session) push(env Envelope) {
	select {
	case s.Send <- env:
	case <-s.done:
	}
}
