package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/learnlog/internal/cache"
	"github.com/jon4hz/learnlog/internal/config"
	"github.com/jon4hz/learnlog/internal/database"
)

var (
	// ErrAuthenticationRequired is returned when an anonymous request needs a user.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrForbidden is returned when the user is not the owner of a resource
	// or lacks admin rights.
	ErrForbidden = errors.New("forbidden")
)

// Session keys.
const (
	sessionKeyUserID   = "user_id"
	sessionKeyIsAdmin  = "user_is_admin"
	sessionKeyRemember = "remember"
)

// Manager ties the session cookie of a request to a user of the credential store.
type Manager struct {
	db             database.DB
	users          *cache.UserCache
	rememberMaxAge int
	secureCookies  bool
}

// NewManager creates a Manager. users may be nil to disable caching.
func NewManager(db database.DB, users *cache.UserCache, cfg *config.Config) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return &Manager{
		db:             db,
		users:          users,
		rememberMaxAge: cfg.RememberMaxAge,
		secureCookies:  cfg.SecureCookies,
	}, nil
}

// CookieOptions returns the cookie options for a session.
// Remembered sessions outlive the browser, others are browser-session cookies.
func (m *Manager) CookieOptions(remember bool) sessions.Options {
	opts := sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		opts.MaxAge = m.rememberMaxAge
	}
	return opts
}

// Session returns the session of the request.
func (m *Manager) Session(c *gin.Context) Session {
	return Session{Session: sessions.Default(c), m: m}
}

// Login checks the credentials and binds the user to the session.
// The session is left untouched if the credentials are wrong.
func (m *Manager) Login(ctx context.Context, sess Session, email, password string, remember bool) (*database.User, error) {
	user, err := m.db.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	// drop whatever an earlier user left behind
	sess.Clear()
	sess.Set(sessionKeyUserID, user.ID)
	sess.Set(sessionKeyIsAdmin, user.IsAdmin)
	sess.Set(sessionKeyRemember, remember)
	if err := sess.Save(); err != nil {
		log.Error("Failed to save session", "error", err)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	if m.users != nil {
		m.users.Put(ctx, user)
	}
	log.Info("user logged in", "user_id", user.ID, "remember", remember)
	return user, nil
}

// Logout clears the session, expires the cookie and evicts the cached user.
// Logging out an anonymous session does nothing.
func (m *Manager) Logout(ctx context.Context, sess Session) error {
	id, ok := getSessionUint(sess, sessionKeyUserID)
	if !ok {
		return nil
	}
	if err := m.expire(sess); err != nil {
		return err
	}
	if m.users != nil {
		m.users.Forget(ctx, id)
	}
	log.Info("user logged out", "user_id", id)
	return nil
}

func (m *Manager) expire(sess Session) error {
	sess.Clear()
	opts := m.CookieOptions(false)
	opts.MaxAge = -1
	sess.Session.Options(opts)
	if err := sess.Session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// CurrentUser returns the user bound to the session or nil for anonymous sessions.
// Sessions pointing at unknown users are cleared.
func (m *Manager) CurrentUser(ctx context.Context, sess Session) (*database.User, error) {
	raw := sess.Get(sessionKeyUserID)
	if raw == nil {
		return nil, nil
	}
	id, ok := raw.(uint)
	if !ok {
		log.Debug("session has malformed user id", "type", fmt.Sprintf("%T", raw))
		return nil, m.expire(sess)
	}

	if m.users != nil {
		if user, ok := m.users.Get(ctx, id); ok {
			return user, nil
		}
	}

	user, err := m.db.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		log.Debug("session refers to unknown user", "user_id", id)
		return nil, m.expire(sess)
	}
	if err != nil {
		return nil, err
	}

	if m.users != nil {
		m.users.Put(ctx, user)
	}
	return user, nil
}

// Authorize reports whether user may modify entry. Only the owner may, admins included.
func Authorize(user *database.User, entry *database.Entry) error {
	if user == nil {
		return ErrAuthenticationRequired
	}
	if entry == nil || user.ID != entry.UserID {
		return ErrForbidden
	}
	return nil
}
