package auth

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/learnlog/internal/database"
)

// ContextKeyUser is the gin context key of the authenticated *database.User.
const ContextKeyUser = "user"

// RequireAuth returns middleware that rejects anonymous requests with 401.
func (m *Manager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.CurrentUser(c.Request.Context(), m.Session(c))
		if err != nil {
			log.Error("Failed to resolve current user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    ErrAuthenticationRequired.Error(),
				"redirect": "/login",
			})
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// RequireAdmin returns middleware that rejects non-admin users with 403.
// It must run after RequireAuth.
func (m *Manager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := UserFromContext(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    ErrAuthenticationRequired.Error(),
				"redirect": "/login",
			})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

// RedirectAuthenticated returns middleware that sends logged in users back to the index.
func (m *Manager) RedirectAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.CurrentUser(c.Request.Context(), m.Session(c))
		if err != nil {
			log.Error("Failed to resolve current user", "error", err)
		}
		if user != nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFromContext returns the user set by RequireAuth.
func UserFromContext(c *gin.Context) *database.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if user, ok := v.(*database.User); ok {
			return user
		}
	}
	return nil
}
