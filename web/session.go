package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

const (
	sessionCookie = "shopping_session"
	sessionTTL    = 30 * 24 * time.Hour
)

// sessions holds the tokens of logged-in browsers. They don't survive a restart, which only means logging in
// again.
type sessions struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
	now    func() time.Time
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]time.Time), now: time.Now}
}

func (s *sessions) create() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = s.now().Add(sessionTTL)
	return token, nil
}

func (s *sessions) valid(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.tokens[c.Value]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.tokens, c.Value)
		return false
	}
	return true
}

func (s *sessions) destroy(r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, c.Value)
}

func sessionCookieFor(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
