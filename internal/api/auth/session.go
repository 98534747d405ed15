package auth

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
)

func init() {
	// flashes are kept as a []any in the cookie
	gob.Register([]any(nil))
}

// Session is the session of a single request.
// Save always applies the cookie options matching the "remember me" choice made at login.
type Session struct {
	sessions.Session
	m *Manager
}

func (s Session) Save() error {
	s.Session.Options(s.m.CookieOptions(getSessionBool(s.Session, sessionKeyRemember)))
	return s.Session.Save()
}

// UserID returns the id of the logged in user, if any.
func (s Session) UserID() (uint, bool) {
	return getSessionUint(s.Session, sessionKeyUserID)
}

// Flash queues a message for the next response that reads flashes.
func (s Session) Flash(category, message string) {
	s.AddFlash(Flash{Category: category, Message: message}.encode())
}

// TakeFlashes returns and removes all queued flash messages.
// The caller must Save the session for the removal to stick.
func (s Session) TakeFlashes() []Flash {
	raw := s.Flashes()
	flashes := make([]Flash, 0, len(raw))
	for _, r := range raw {
		if str, ok := r.(string); ok {
			flashes = append(flashes, decodeFlash(str))
		}
	}
	return flashes
}

// Helper functions to safely get session values.
func getSessionUint(session sessions.Session, key string) (uint, bool) {
	if val := session.Get(key); val != nil {
		if id, ok := val.(uint); ok {
			return id, true
		}
	}
	return 0, false
}

func getSessionBool(session sessions.Session, key string) bool {
	if val := session.Get(key); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
