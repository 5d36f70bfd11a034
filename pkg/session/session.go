// Package session keeps the signed-in identity and token on the client side
// between CLI invocations.
//
// The state only drives what a client shows or attempts. The server checks
// the token and the caller's role on every request regardless of what is
// held here.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// Roles as returned by the API.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleUser     = "user"
)

// Identity is the signed-in user as last reported by the server.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// record is the persisted form.
type record struct {
	User  *Identity `json:"user"`
	Token string    `json:"token"`
}

// State holds the current identity and token. Safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	store    Store
	identity *Identity
	token    string
}

func New(store Store) *State {
	return &State{store: store}
}

// Restore reloads the identity from the store. Missing, unreadable or
// malformed data yields nil and an empty state, never an error.
func (s *State) Restore() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity, s.token = nil, ""

	data, err := s.store.Load()
	if err != nil || len(data) == 0 {
		return nil
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	if rec.User == nil || rec.User.ID == "" || strings.TrimSpace(rec.Token) == "" {
		return nil
	}

	s.identity, s.token = rec.User, rec.Token
	return s.identityCopy()
}

// Set replaces the identity and token and persists them. A nil identity
// clears both the state and the store.
func (s *State) Set(identity *Identity, token string) error {
	if identity == nil {
		return s.Clear()
	}
	if token == "" {
		return errors.New("session: token is required with an identity")
	}

	data, err := json.Marshal(record{User: identity, Token: token})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(data); err != nil {
		return err
	}
	clone := *identity
	s.identity, s.token = &clone, token
	return nil
}

// Clear forgets the identity and removes the persisted copy.
func (s *State) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity, s.token = nil, ""
	return s.store.Clear()
}

// Identity returns a copy of the current identity, or nil.
func (s *State) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identityCopy()
}

func (s *State) identityCopy() *Identity {
	if s.identity == nil {
		return nil
	}
	clone := *s.identity
	return &clone
}

// Token returns the bearer token, or "" when signed out.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

func (s *State) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.Role == RoleAdmin
}

// IsEmployee is true for staff, which includes admins.
func (s *State) IsEmployee() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && (s.identity.Role == RoleAdmin || s.identity.Role == RoleEmployee)
}
