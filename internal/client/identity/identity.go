// Package identity holds the signed-in user and the bearer credential the
// remote client attaches to every request.
package identity

import "sync"

type Token struct {
	AccessToken string `json:"access_token"`
}

type User struct {
	ID    string
	Name  string
	Token Token
}

// Provider exposes the current user, or nil when nobody is signed in.
type Provider interface {
	CurrentUser() *User
}

// Session is an in-memory Provider safe for concurrent use.
type Session struct {
	mu   sync.RWMutex
	user *User
}

func NewSession() *Session {
	return &Session{}
}

// CurrentUser returns a copy of the signed-in user.
func (s *Session) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) SetUser(u User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// AccessToken returns the bearer credential of p's current user, or "" when
// there is none.
func AccessToken(p Provider) string {
	if p == nil {
		return ""
	}
	u := p.CurrentUser()
	if u == nil {
		return ""
	}
	return u.Token.AccessToken
}
