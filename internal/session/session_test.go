package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/order-status-sync/internal/docstore"
	"github.com/vaidashi/order-status-sync/internal/feed"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/repository"
	"github.com/vaidashi/order-status-sync/internal/view"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

type fakeFeed struct {
	mu       sync.Mutex
	state    feed.State
	started  []models.Status
	filters  []models.Status
	stopped  int
	onFilter func(models.Status)
}

func (f *fakeFeed) Start(_ context.Context, filter models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, filter)
}

func (f *fakeFeed) SetFilter(filter models.Status) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	hook := f.onFilter
	f.mu.Unlock()
	if hook != nil {
		hook(filter)
	}
}

func (f *fakeFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeFeed) Snapshot() feed.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeFeed) emit(orders []*models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = feed.State{Orders: orders, UpdatedAt: time.Now()}
}

type fakePinger struct {
	calls int
	err   error
}

func (p *fakePinger) Ping(context.Context) (int, error) {
	p.calls++
	return 1, p.err
}

func manyOrders(n int) []*models.Order {
	out := make([]*models.Order, n)
	for i := range out {
		out[i] = &models.Order{DocID: fmt.Sprintf("d%02d", i), Folio: fmt.Sprintf("%d", 1000+i), Date: fmt.Sprintf("2024-01-%02d", i%28+1)}
	}
	return out
}

func newManager(ff *fakeFeed, pinger Pinger) *Manager {
	return NewManager(func() Feed { return ff }, pinger, 5, logger.NewNop())
}

func TestManager_SignInPingsThenStartsFeed(t *testing.T) {
	t.Parallel()

	ff := &fakeFeed{}
	pinger := &fakePinger{err: apperrors.NewPermissionDeniedError("rules")}
	m := newManager(ff, pinger)
	defer m.Close()

	s, err := m.SignIn(context.Background(), "ops@example.com")
	require.NoError(t, err, "a failed ping does not block sign-in")
	assert.Equal(t, 1, pinger.calls)
	assert.Equal(t, []models.Status{""}, ff.started)
	assert.Equal(t, "ops@example.com", s.Subject())

	again, err := m.SignIn(context.Background(), "ops@example.com")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Len(t, ff.started, 1)
	assert.Equal(t, 1, m.Count())

	_, err = m.SignIn(context.Background(), "")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
}

func TestManager_SignOutStopsFeed(t *testing.T) {
	t.Parallel()

	ff := &fakeFeed{}
	m := newManager(ff, nil)

	_, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, m.SignOut("u1"))
	assert.Equal(t, 1, ff.stopped)
	_, ok := m.Get("u1")
	assert.False(t, ok)

	assert.False(t, m.SignOut("u1"))
	assert.Equal(t, 1, ff.stopped)
}

func TestManager_CloseStopsAllFeeds(t *testing.T) {
	t.Parallel()

	feeds := []*fakeFeed{}
	m := NewManager(func() Feed {
		ff := &fakeFeed{}
		feeds = append(feeds, ff)
		return ff
	}, nil, 5, logger.NewNop())

	for _, u := range []string{"a", "b", "c"} {
		_, err := m.SignIn(context.Background(), u)
		require.NoError(t, err)
	}

	m.Close()
	assert.Equal(t, 0, m.Count())
	for _, ff := range feeds {
		assert.Equal(t, 1, ff.stopped)
	}
}

func TestSession_FilterChangeResetsPageFirst(t *testing.T) {
	t.Parallel()

	ff := &fakeFeed{}
	m := newManager(ff, nil)
	defer m.Close()

	s, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	ff.emit(manyOrders(14))
	s.NextPage()
	s.NextPage()
	require.Equal(t, 3, s.Page())

	var pageWhenResubscribed int
	ff.onFilter = func(models.Status) { pageWhenResubscribed = s.Page() }

	s.SetFilter(models.StatusConfirmed)

	assert.Equal(t, 1, pageWhenResubscribed)
	assert.Equal(t, []models.Status{models.StatusConfirmed}, ff.filters)
	assert.Equal(t, models.StatusConfirmed, s.Filter())

	ff.emit(manyOrders(3))
	v := s.View()
	assert.Equal(t, 1, v.Page.Page)
	assert.Len(t, v.Items, 3)
	assert.Equal(t, models.StatusConfirmed, v.Filter)
}

func TestSession_PagingStaysInBounds(t *testing.T) {
	t.Parallel()

	ff := &fakeFeed{}
	m := newManager(ff, nil)
	defer m.Close()

	s, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)
	ff.emit(manyOrders(12))

	assert.Equal(t, 1, s.PrevPage())
	assert.Equal(t, 2, s.NextPage())
	assert.Equal(t, 3, s.NextPage())
	assert.Equal(t, 3, s.NextPage())

	v := s.View()
	assert.Equal(t, 3, v.TotalPages)
	assert.Len(t, v.Items, 2)

	assert.Equal(t, 1, s.SetPage(-4))
	assert.Equal(t, 3, s.SetPage(40))
}

func TestSession_ViewAppliesSearchAndSort(t *testing.T) {
	t.Parallel()

	ff := &fakeFeed{}
	m := newManager(ff, nil)
	defer m.Close()

	s, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	ff.emit([]*models.Order{
		{DocID: "a", Folio: "1", Total: 5, CustomerName: "Ana"},
		{DocID: "b", Folio: "2", Total: 50, CustomerName: "Bea"},
		{DocID: "c", Folio: "3", Total: 20, CustomerName: "Ana Maria"},
	})

	s.SetSearch("ana")
	s.SetSort(view.SortTotal, view.Ascending)

	v := s.View()
	require.Len(t, v.Items, 2)
	assert.Equal(t, "a", v.Items[0].DocID)
	assert.Equal(t, "c", v.Items[1].DocID)
	assert.Equal(t, "ana", v.Search)
}

func TestSession_EndToEndWithRealFeed(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore()
	ctx := context.Background()
	for i, status := range []string{"new", "confirmed", "new", "confirmed"} {
		require.NoError(t, store.Create(ctx, docstore.CollectionOrders, fmt.Sprintf("o%d", i), docstore.Fields{
			"id": fmt.Sprintf("%d", i), "status": status,
		}))
	}

	orders := repository.NewOrderRepository(store, 25, logger.NewNop())
	m := NewManager(func() Feed {
		return feed.New(orders, 20*time.Millisecond, logger.NewNop())
	}, orders, 20, logger.NewNop())
	defer m.Close()

	s, err := m.SignIn(ctx, "u1")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.View().TotalCount == 4 }, 2*time.Second, 5*time.Millisecond)

	s.SetFilter(models.StatusConfirmed)
	require.Eventually(t, func() bool {
		v := s.View()
		return !v.Loading && v.TotalCount == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, m.SignOut("u1"))
}
