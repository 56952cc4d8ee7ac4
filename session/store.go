package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fitdash/metrics"
)

const DefaultCookieName = "fitdash_session"

type Config struct {
	TTL          time.Duration
	CookieName   string
	SecureCookie bool
}

// Store keeps sessions in memory, keyed by the id in the session cookie.
type Store struct {
	cfg     Config
	onEvict func(*State)
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*State
}

// NewStore creates a store. onEvict, if set, is called for every session that
// is deleted or expires.
func NewStore(cfg Config, onEvict func(*State)) *Store {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &Store{
		cfg:      cfg,
		onEvict:  onEvict,
		now:      time.Now,
		sessions: make(map[string]*State),
	}
}

// Load returns the session of the request, creating one and setting the
// cookie when the request carries none or an unknown id.
func (s *Store) Load(w http.ResponseWriter, r *http.Request) *State {
	now := s.now()
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		if st, ok := s.Get(c.Value); ok {
			st.touch(now)
			return st
		}
	}

	st := newState(uuid.NewString(), now)
	s.mu.Lock()
	s.sessions[st.ID] = st
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    st.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debug().Str("session", st.ID).Msg("session created")
	return st
}

func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	return st, ok
}

// Delete removes a session and expires its cookie.
func (s *Store) Delete(w http.ResponseWriter, id string) {
	s.mu.Lock()
	st, ok := s.sessions[id]
	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	if ok && s.onEvict != nil {
		s.onEvict(st)
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL.
func (s *Store) Sweep() int {
	if s.cfg.TTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.TTL)

	var expired []*State
	s.mu.Lock()
	for id, st := range s.sessions {
		if st.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, st)
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, st := range expired {
			s.onEvict(st)
		}
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Info().Int("expired", n).Msg("swept idle sessions")
			}
		}
	}
}
