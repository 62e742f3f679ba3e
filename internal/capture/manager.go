package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/apperr"
)

// Manager tracks open sessions by id and evicts the ones abandoned for longer than ttl
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
	log      zerolog.Logger
}

func NewManager(ttl time.Duration, maxBytes int64, log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
		log:      log.With().Str("component", "capture").Logger(),
	}
}

// Start opens a session for owner and moves it to Capturing
func (m *Manager) Start(ownerID uuid.UUID, mimeType string) (*Session, error) {
	s := NewSession(ownerID, mimeType, m.maxBytes, m.now)
	if err := s.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Debug().Str("session_id", s.ID.String()).Str("owner", ownerID.String()).Msg("capture started")
	return s, nil
}

// Get returns the owner's session. Sessions of other owners are reported as missing.
func (m *Manager) Get(id, ownerID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok || s.OwnerID != ownerID {
		return nil, apperr.NotFound("Capture session")
	}
	return s, nil
}

// Finish stops the session and passes its audio to submit. The session is
// released only when submit succeeds; otherwise it stays stopped and can be
// finished again or discarded. Concurrent Finish calls for one session see
// NotFound while a submit is in flight.
func (m *Manager) Finish(id, ownerID uuid.UUID, submit func(*Capture) error) error {
	s, err := m.claim(id, ownerID)
	if err != nil {
		return err
	}

	if s.State() == StateCapturing {
		if err := s.Stop(); err != nil {
			m.put(s)
			return err
		}
	}

	out, err := s.Snapshot()
	if err != nil {
		if apperr.Is(err, apperr.KindInvalidInput) {
			s.Discard()
		} else {
			m.put(s)
		}
		return err
	}

	if err := submit(out); err != nil {
		m.log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("capture submit failed, session kept")
		m.put(s)
		return err
	}
	s.Discard()
	return nil
}

// claim removes the owner's session from the map so only one caller holds it
func (m *Manager) claim(id, ownerID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return nil, apperr.NotFound("Capture session")
	}
	delete(m.sessions, id)
	return s, nil
}

func (m *Manager) put(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// Discard drops the session and its buffer
func (m *Manager) Discard(id, ownerID uuid.UUID) error {
	s, err := m.Get(id, ownerID)
	if err != nil {
		return err
	}
	m.remove(id)
	s.Discard()
	return nil
}

func (m *Manager) remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep discards sessions idle for longer than ttl and returns how many were evicted.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Discard()
		m.log.Info().Str("session_id", s.ID.String()).Msg("evicted abandoned capture session")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
