package clientstate

import (
	"fmt"
	"sync"

	"tradehub/internal/models"
)

const sessionKey = "tradehub.session"

type sessionState struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Session is the signed-in user of a tab. Logging out only forgets the token
// locally; the server keeps honouring it until it expires.
type Session struct {
	writeMu sync.Mutex
	mu      sync.Mutex
	storage Storage
	origin  string
	state   sessionState
	onSync  []func(authenticated bool)
}

func newSession(storage Storage, origin string) (*Session, error) {
	s := &Session{storage: storage, origin: origin}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Login(token string, user *models.User) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	state := sessionState{Token: token, User: user}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return saveJSON(s.storage, s.origin, sessionKey, state)
}

func (s *Session) Logout() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.state = sessionState{}
	s.mu.Unlock()
	return s.storage.Remove(s.origin, sessionKey)
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// OnSync registers fn to run after another tab logged in or out.
func (s *Session) OnSync(fn func(authenticated bool)) {
	s.mu.Lock()
	s.onSync = append(s.onSync, fn)
	s.mu.Unlock()
}

func (s *Session) reload() error {
	var state sessionState
	if err := loadJSON(s.storage, sessionKey, &state); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *Session) synced() {
	s.mu.Lock()
	authenticated := s.state.Token != ""
	fns := append([]func(bool){}, s.onSync...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(authenticated)
	}
}
