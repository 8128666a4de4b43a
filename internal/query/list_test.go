package query_test

import (
	"testing"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"
	"kiitcms/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func item(id string, minute int, status models.Status) models.Complaint {
	return models.Complaint{ID: id, Title: "Item " + id, UserID: "stu-1", AssignedDept: "Hostel", Status: status, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func ids(s query.Snapshot) []string {
	out := make([]string, len(s.Items))
	for i, v := range s.Items {
		out[i] = v.ID
	}
	return out
}

func TestListState_StaleResponseIgnored(t *testing.T) {
	l := query.NewListState(query.NewEngine(new(MockReader)))

	all, err := l.Begin(hostel(), "All")
	require.NoError(t, err)
	resolved, err := l.Begin(hostel(), string(models.StatusResolved))
	require.NoError(t, err)

	snap, err := l.Commit(resolved, query.Page{Items: []models.Complaint{item("r1", 5, models.StatusResolved)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(snap))

	_, err = l.Commit(all, query.Page{Items: []models.Complaint{item("a1", 9, models.StatusPending)}}, nil)
	assert.ErrorIs(t, err, query.ErrStale)

	assert.Equal(t, []string{"r1"}, ids(l.Snapshot()))
	assert.Equal(t, string(models.StatusResolved), l.Snapshot().Status)
}

func TestListState_BeginNotReady(t *testing.T) {
	l := query.NewListState(query.NewEngine(new(MockReader)))
	_, err := l.Begin(access.NewRoleContext(access.Identity{ID: "staff-1", Role: models.RoleDepartment}), "All")
	assert.ErrorIs(t, err, apperr.ErrNotReady)
	assert.False(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeCreated, ComplaintID: "x", Complaint: ptr(item("x", 1, models.StatusPending))}))
}

func TestListState_AppendSkipsKnownIDs(t *testing.T) {
	l := query.NewListState(query.NewEngine(new(MockReader)))
	first, err := l.Begin(hostel(), "All")
	require.NoError(t, err)
	_, err = l.Commit(first, query.Page{
		Items:   []models.Complaint{item("c3", 3, models.StatusPending), item("c2", 2, models.StatusPending)},
		Cursor:  "cur",
		HasMore: true,
	}, nil)
	require.NoError(t, err)

	more, err := l.BeginMore()
	require.NoError(t, err)
	snap, err := l.Commit(more, query.Page{Items: []models.Complaint{item("c2", 2, models.StatusPending), item("c1", 1, models.StatusPending)}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c3", "c2", "c1"}, ids(snap))
	assert.False(t, snap.HasMore)
}

func loaded(t *testing.T, rc access.RoleContext, status string, hasMore bool, items ...models.Complaint) *query.ListState {
	t.Helper()
	l := query.NewListState(query.NewEngine(new(MockReader)))
	tk, err := l.Begin(rc, status)
	require.NoError(t, err)
	_, err = l.Commit(tk, query.Page{Items: items, Cursor: "cur", HasMore: hasMore}, nil)
	require.NoError(t, err)
	return l
}

func ptr(c models.Complaint) *models.Complaint { return &c }

func TestListState_ApplyChange(t *testing.T) {
	l := loaded(t, hostel(), string(models.StatusPending), true,
		item("c3", 30, models.StatusPending),
		item("c2", 20, models.StatusPending),
		item("c1", 10, models.StatusPending),
	)

	// in-place update keeps position
	upd := item("c2", 20, models.StatusPending)
	upd.Title = "Renamed"
	assert.True(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: "c2", Complaint: &upd}))
	snap := l.Snapshot()
	assert.Equal(t, []string{"c3", "c2", "c1"}, ids(snap))
	assert.Equal(t, "Renamed", snap.Items[1].Title)

	// no longer matches the status filter
	moved := item("c3", 30, models.StatusResolved)
	assert.True(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: "c3", Complaint: &moved}))
	assert.Equal(t, []string{"c2", "c1"}, ids(l.Snapshot()))

	// new complaint in scope goes on top
	fresh := item("c9", 90, models.StatusPending)
	assert.True(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeCreated, ComplaintID: "c9", Complaint: &fresh}))
	assert.Equal(t, []string{"c9", "c2", "c1"}, ids(l.Snapshot()))

	// other department is ignored
	foreign := item("m1", 95, models.StatusPending)
	foreign.AssignedDept = "Mess"
	assert.False(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeCreated, ComplaintID: "m1", Complaint: &foreign}))

	// older than the loaded window: left for the next page
	old := item("c0", 1, models.StatusPending)
	assert.False(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: "c0", Complaint: &old}))

	// moved into the filter inside the window
	back := item("c5", 15, models.StatusPending)
	assert.True(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: "c5", Complaint: &back}))
	assert.Equal(t, []string{"c9", "c2", "c5", "c1"}, ids(l.Snapshot()))

	assert.True(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeDeleted, ComplaintID: "c2"}))
	assert.False(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeDeleted, ComplaintID: "c2"}))
	assert.Equal(t, []string{"c9", "c5", "c1"}, ids(l.Snapshot()))
}

func TestListState_AnonymousRedactedInSnapshot(t *testing.T) {
	c := item("c1", 1, models.StatusPending)
	c.IsAnonymous = true
	c.UserName = "Asha"
	c.UserEmail = "asha@kiit.ac.in"
	l := loaded(t, hostel(), "All", false, c)

	v := l.Snapshot().Items[0]
	assert.Empty(t, v.UserName)
	assert.Empty(t, v.UserEmail)
}

func TestListState_SearchLoadedItemsOnly(t *testing.T) {
	a := item("c2", 2, models.StatusPending)
	a.Title = "Wi-Fi outage in block C"
	b := item("c1", 1, models.StatusPending)
	b.Title = "Broken chair"
	l := loaded(t, hostel(), "All", true, a, b)

	found := l.Search("wi-fi")
	require.Len(t, found, 1)
	assert.Equal(t, "c2", found[0].ID)

	assert.Len(t, l.Search(""), 2)
	assert.Empty(t, l.Search("projector"))
}

func TestListState_Unmount(t *testing.T) {
	l := query.NewListState(query.NewEngine(new(MockReader)))
	tk, err := l.Begin(hostel(), "All")
	require.NoError(t, err)

	l.Unmount()

	_, err = l.Commit(tk, query.Page{Items: []models.Complaint{item("c1", 1, models.StatusPending)}}, nil)
	assert.ErrorIs(t, err, query.ErrUnmounted)
	_, err = l.Begin(hostel(), "All")
	assert.ErrorIs(t, err, query.ErrUnmounted)
	fresh := item("c2", 2, models.StatusPending)
	assert.False(t, l.ApplyChange(models.ComplaintEvent{Type: models.ChangeCreated, ComplaintID: "c2", Complaint: &fresh}))
}

func TestListState_LoadAgainstStore(t *testing.T) {
	s := storagetest.NewService(t, storagetest.NewClock())
	seed(t, s, 12, "stu-1", "Hostel", models.StatusPending)
	l := query.NewListState(query.NewEngine(s))

	snap, err := l.Load(ctx, student("stu-1"), "All")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 10)
	assert.True(t, snap.HasMore)

	snap, err = l.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 12)
	assert.False(t, snap.HasMore)

	snap, err = l.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 12)

	_, err = l.Load(ctx, student("stu-2"), "All")
	require.NoError(t, err)
	assert.Empty(t, l.Snapshot().Items)
}
