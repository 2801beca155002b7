package session

import (
	"context"
	"sync"
	"time"

	"github.com/vaidashi/order-status-sync/internal/feed"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/view"
)

// Feed is the polling subscription owned by a session
type Feed interface {
	Start(ctx context.Context, filter models.Status)
	SetFilter(filter models.Status)
	Stop()
	Snapshot() feed.State
}

// Pinger checks that the store is readable
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// Session is one signed-in operator's view of the orders
type Session struct {
	subject string
	feed    Feed

	mu        sync.Mutex
	filter    models.Status
	search    string
	sortKey   view.SortKey
	direction view.Direction
	page      int
	pageSize  int
}

// View is what the presentation layer renders for a session
type View struct {
	view.Page
	Filter    models.Status  `json:"filter,omitempty"`
	Search    string         `json:"search,omitempty"`
	SortKey   view.SortKey   `json:"sort"`
	Direction view.Direction `json:"dir"`
	Loading   bool           `json:"loading"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Subject returns the identity the session belongs to
func (s *Session) Subject() string {
	return s.subject
}

// Filter returns the active status filter
func (s *Session) Filter() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Page returns the current 1-based page
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// SetFilter changes the status filter. The page goes back to 1 before the
// feed resubscribes, so the next result set never lands on a stale page.
func (s *Session) SetFilter(status models.Status) {
	s.mu.Lock()
	s.page = 1
	s.filter = status
	s.mu.Unlock()

	s.feed.SetFilter(status)
}

// SetSearch changes the free-text search term
func (s *Session) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = term
}

// SetSort changes the sort key and direction
func (s *Session) SetSort(key view.SortKey, dir view.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortKey = key
	s.direction = dir
}

// SetPage jumps to page, clamped to the pages currently available
func (s *Session) SetPage(page int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.projectLocked(s.feed.Snapshot().Orders)
	s.page = min(max(page, 1), p.TotalPages)
	return s.page
}

// View projects the latest feed snapshot with the session's view state
func (s *Session) View() View {
	snap := s.feed.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.projectLocked(snap.Orders)
	s.page = page.Page

	v := View{
		Page:      page,
		Filter:    s.filter,
		Search:    s.search,
		SortKey:   s.sortKey,
		Direction: s.direction,
		Loading:   snap.Loading,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	return v
}

// NextPage moves forward one page; on the last page nothing changes
func (s *Session) NextPage() int {
	return s.move((*view.Pager).Next)
}

// PrevPage moves back one page; on the first page nothing changes
func (s *Session) PrevPage() int {
	return s.move((*view.Pager).Prev)
}

func (s *Session) move(step func(*view.Pager) bool) int {
	snap := s.feed.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.projectLocked(snap.Orders)
	pager := &view.Pager{Page: page.Page, TotalPages: page.TotalPages}
	step(pager)
	s.page = pager.Page
	return s.page
}

func (s *Session) projectLocked(orders []*models.Order) view.Page {
	return view.Project(orders, view.Query{
		Search:    s.search,
		SortKey:   s.sortKey,
		Direction: s.direction,
		Page:      s.page,
		PageSize:  s.pageSize,
	})
}
