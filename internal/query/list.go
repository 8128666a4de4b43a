package query

import (
	"context"
	"errors"
	"strings"
	"sync"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/models"
)

var (
	// ErrStale is returned when a response arrives for a query that a newer one replaced.
	ErrStale = errors.New("query superseded")
	// ErrUnmounted is returned once the list has been torn down.
	ErrUnmounted = errors.New("list unmounted")
)

// Ticket identifies one in-flight fetch.
type Ticket struct {
	gen    uint64
	rc     access.RoleContext
	status string
	cursor Cursor
	more   bool
}

// Snapshot is what a list view renders.
type Snapshot struct {
	Generation uint64                 `json:"generation"`
	Status     string                 `json:"status"`
	Items      []models.ComplaintView `json:"items"`
	HasMore    bool                   `json:"hasMore"`
}

// ListState is the state of one paginated list view. Pull fetches and live
// changes are reconciled by complaint id; a response for a superseded query
// never overwrites a newer one.
type ListState struct {
	engine *Engine

	mu        sync.Mutex
	gen       uint64
	rc        access.RoleContext
	status    string
	filters   []access.Filter
	items     []models.Complaint
	cursor    Cursor
	hasMore   bool
	loading   bool
	unmounted bool
}

func NewListState(engine *Engine) *ListState {
	return &ListState{engine: engine, status: access.StatusAll}
}

// Load restarts the list for rc and status from the first page.
func (l *ListState) Load(ctx context.Context, rc access.RoleContext, status string) (Snapshot, error) {
	t, err := l.Begin(rc, status)
	if err != nil {
		return Snapshot{}, err
	}
	page, err := l.engine.FirstPage(ctx, t.rc, t.status)
	return l.Commit(t, page, err)
}

// LoadMore appends the next page. Without more pages it returns the current snapshot.
func (l *ListState) LoadMore(ctx context.Context) (Snapshot, error) {
	t, err := l.BeginMore()
	if err != nil {
		return Snapshot{}, err
	}
	if !t.more {
		return l.Snapshot(), nil
	}
	page, err := l.engine.NextPage(ctx, t.rc, t.status, t.cursor)
	return l.Commit(t, page, err)
}

// Begin invalidates every in-flight fetch and clears the list. A scope that
// is not ready is reported here, before anything is fetched.
func (l *ListState) Begin(rc access.RoleContext, status string) (Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unmounted {
		return Ticket{}, ErrUnmounted
	}
	if status == "" {
		status = access.StatusAll
	}

	l.gen++
	l.rc = rc
	l.status = status
	l.items = nil
	l.cursor = ""
	l.hasMore = false
	l.loading = true

	filters, err := Filters(rc, status)
	l.filters = filters
	if err != nil {
		l.loading = false
		return Ticket{}, err
	}
	return Ticket{gen: l.gen, rc: rc, status: status}, nil
}

// BeginMore starts a next-page fetch for the current query.
func (l *ListState) BeginMore() (Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unmounted {
		return Ticket{}, ErrUnmounted
	}
	more := l.hasMore && l.cursor != "" && !l.loading
	if more {
		l.loading = true
	}
	return Ticket{gen: l.gen, rc: l.rc, status: l.status, cursor: l.cursor, more: more}, nil
}

// Commit applies the result of the fetch t. First pages replace the list,
// later pages append, skipping ids already present.
func (l *ListState) Commit(t Ticket, page Page, fetchErr error) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unmounted {
		return Snapshot{}, ErrUnmounted
	}
	if t.gen != l.gen {
		return Snapshot{}, ErrStale
	}
	l.loading = false
	if fetchErr != nil {
		return l.snapshotLocked(), fetchErr
	}

	if t.cursor == "" {
		l.items = make([]models.Complaint, 0, len(page.Items))
	}
	for _, c := range page.Items {
		if l.indexLocked(c.ID) < 0 {
			l.items = append(l.items, c)
		}
	}
	if page.Cursor != "" {
		l.cursor = page.Cursor
	}
	l.hasMore = page.HasMore
	return l.snapshotLocked(), nil
}

// ApplyChange reconciles a live change by id without fetching. It reports
// whether the visible list changed.
func (l *ListState) ApplyChange(ev models.ComplaintEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unmounted || l.filters == nil {
		return false
	}

	i := l.indexLocked(ev.ComplaintID)
	if ev.Type == models.ChangeDeleted || ev.Complaint == nil {
		if i < 0 {
			return false
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		return true
	}

	c := *ev.Complaint
	matches := access.Matches(l.filters, c)
	switch {
	case i >= 0 && matches:
		c.Replies = l.items[i].Replies
		l.items[i] = c
		return true
	case i >= 0:
		l.items = append(l.items[:i], l.items[i+1:]...)
		return true
	case matches && l.inWindowLocked(c):
		l.insertLocked(c)
		return true
	}
	return false
}

// Search filters the loaded items by a case-insensitive title substring.
// Items that have not been paged in are not searched.
func (l *ListState) Search(term string) []models.ComplaintView {
	l.mu.Lock()
	defer l.mu.Unlock()

	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.ComplaintView, 0, len(l.items))
	for _, c := range l.items {
		if term == "" || strings.Contains(strings.ToLower(c.Title), term) {
			out = append(out, models.NewComplaintView(c, l.rc.UserID, l.rc.Role))
		}
	}
	return out
}

func (l *ListState) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// RoleContext is the context of the current query.
func (l *ListState) RoleContext() access.RoleContext {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rc
}

// Unmount tears the list down. Every later call is a no-op or ErrUnmounted.
func (l *ListState) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unmounted = true
	l.gen++
	l.items = nil
	l.filters = nil
}

func (l *ListState) snapshotLocked() Snapshot {
	views := make([]models.ComplaintView, len(l.items))
	for i, c := range l.items {
		views[i] = models.NewComplaintView(c, l.rc.UserID, l.rc.Role)
	}
	return Snapshot{Generation: l.gen, Status: l.status, Items: views, HasMore: l.hasMore}
}

func (l *ListState) indexLocked(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// inWindowLocked reports whether c sorts before the end of what has been
// loaded. Anything later will arrive with the next page instead.
func (l *ListState) inWindowLocked(c models.Complaint) bool {
	if !l.hasMore || len(l.items) == 0 {
		return !l.loading
	}
	return !sortsAfter(c, l.items[len(l.items)-1])
}

func (l *ListState) insertLocked(c models.Complaint) {
	at := len(l.items)
	for i := range l.items {
		if sortsAfter(l.items[i], c) {
			at = i
			break
		}
	}
	l.items = append(l.items, models.Complaint{})
	copy(l.items[at+1:], l.items[at:])
	l.items[at] = c
}

// sortsAfter reports whether a comes after b in createdAt desc, id desc order.
func sortsAfter(a, b models.Complaint) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
