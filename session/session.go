package session

import (
	"sync"
	"time"

	"github.com/fitdash/data"
	"github.com/fitdash/fitbit"
)

// Credentials are the Fitbit app id and secret entered on the login form.
type Credentials struct {
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
}

// State is everything the dashboard remembers about one browser.
type State struct {
	ID string

	mu          sync.RWMutex
	credentials Credentials
	tokens      fitbit.TokenPair
	client      data.API
	date        time.Time
	flash       string
	lastSeen    time.Time
}

func newState(id string, now time.Time) *State {
	return &State{
		ID:       id,
		date:     Day(now),
		lastSeen: now,
	}
}

// Day truncates t to midnight UTC of its local calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *State) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

func (s *State) Client() data.API {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *State) Tokens() fitbit.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SignIn stores the API client built from a completed authorization flow.
func (s *State) SignIn(client data.API, tokens fitbit.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
	s.tokens = tokens
}

// UpdateTokens records a rotated token pair.
func (s *State) UpdateTokens(tokens fitbit.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

// SignOut forgets the client and tokens and returns the id of the client that
// was signed in, or "".
func (s *State) SignOut() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ""
	if s.client != nil {
		id = s.client.ID()
	}
	s.client = nil
	s.tokens = fitbit.TokenPair{}
	return id
}

func (s *State) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials
}

func (s *State) SetCredentials(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = c
}

func (s *State) Date() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date
}

func (s *State) SetDate(d time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = Day(d)
}

// SetFlash stores a message shown once on the next page render.
func (s *State) SetFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = msg
}

// TakeFlash returns the pending message and clears it.
func (s *State) TakeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
