package session

import (
	"context"
	"sync"

	"github.com/vaidashi/order-status-sync/internal/view"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// Manager starts a feed for every signed-in subject and stops it on sign-out
type Manager struct {
	newFeed  func() Feed
	pinger   Pinger
	pageSize int
	logger   logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. newFeed is called once per sign-in.
func NewManager(newFeed func() Feed, pinger Pinger, pageSize int, logger logger.Logger) *Manager {
	if pageSize <= 0 {
		pageSize = view.DefaultPageSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		newFeed:  newFeed,
		pinger:   pinger,
		pageSize: pageSize,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// SignIn returns the subject's session, creating it and starting its feed
// when the subject was signed out. The store is pinged first; a failed ping
// is logged and does not block the sign-in.
func (m *Manager) SignIn(ctx context.Context, subject string) (*Session, error) {
	if subject == "" {
		return nil, apperrors.NewInvalidInputError("subject is required")
	}

	m.mu.Lock()
	if s, ok := m.sessions[subject]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	if m.pinger != nil {
		if n, err := m.pinger.Ping(ctx); err != nil {
			m.logger.Warn("Store ping failed on sign-in", "subject", subject, "error", err, "kind", apperrors.KindOf(err))
		} else {
			m.logger.Debug("Store ping", "subject", subject, "documents", n)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// a concurrent sign-in may have won while pinging
	if s, ok := m.sessions[subject]; ok {
		return s, nil
	}

	s := &Session{
		subject:   subject,
		feed:      m.newFeed(),
		sortKey:   view.SortDate,
		direction: view.Descending,
		page:      1,
		pageSize:  m.pageSize,
	}
	m.sessions[subject] = s

	// the feed outlives the sign-in request, so it hangs off the manager context
	s.feed.Start(m.ctx, s.filter)

	m.logger.Info("Operator signed in", "subject", subject)
	return s, nil
}

// SignOut stops the subject's feed and forgets its view state
func (m *Manager) SignOut(subject string) bool {
	m.mu.Lock()
	s, ok := m.sessions[subject]
	delete(m.sessions, subject)
	m.mu.Unlock()

	if !ok {
		return false
	}

	s.feed.Stop()
	m.logger.Info("Operator signed out", "subject", subject)
	return true
}

// Get returns the subject's session if signed in
func (m *Manager) Get(subject string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[subject]
	return s, ok
}

// Count returns the number of signed-in subjects
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every feed
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.feed.Stop()
	}
	m.cancel()

	m.logger.Info("Session manager closed", "sessions", len(sessions))
}
