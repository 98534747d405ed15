package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/learnlog/internal/api/auth"
	"github.com/jon4hz/learnlog/internal/api/models"
	"github.com/jon4hz/learnlog/internal/cache"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/gravatar"
	"github.com/jon4hz/learnlog/internal/password"
	"github.com/jon4hz/learnlog/internal/validate"
)

// Pagination defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Handler struct {
	db      database.DB
	auth    *auth.Manager
	avatars *gravatar.Resolver
	users   *cache.UserCache
}

// New creates the request handlers. avatars and users may be nil.
func New(db database.DB, authManager *auth.Manager, avatars *gravatar.Resolver, users *cache.UserCache) *Handler {
	return &Handler{
		db:      db,
		auth:    authManager,
		avatars: avatars,
		users:   users,
	}
}

// Index lists the most recent entries.
func (h *Handler) Index(c *gin.Context) {
	h.listEntries(c, "")
}

// EntriesByTag lists the entries matching the tag in the path.
func (h *Handler) EntriesByTag(c *gin.Context) {
	h.listEntries(c, c.Param("tag"))
}

func (h *Handler) listEntries(c *gin.Context, tag string) {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var (
		entries []database.Entry
		total   int64
	)
	if tag == "" {
		entries, total, err = h.db.ListRecentEntries(ctx, page, pageSize)
	} else {
		entries, total, err = h.db.ListEntriesByTag(ctx, tag, page, pageSize)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := models.NewEntryPage(entries, total, page, pageSize, h.avatars)
	resp.Tag = tag

	sess := h.auth.Session(c)
	resp.Flashes = sess.TakeFlashes()
	if len(resp.Flashes) > 0 {
		if err := sess.Save(); err != nil {
			log.Error("Failed to save session", "error", err)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Healthz reports that the server is up.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CacheStats reports hit and miss counters of the caches.
func (h *Handler) CacheStats(c *gin.Context) {
	stats := []*cache.Stats{}
	if h.users != nil {
		stats = append(stats, h.users.GetStats())
	}
	c.JSON(http.StatusOK, gin.H{"caches": stats})
}

// flash queues a message and saves the session. Failures only lose the message.
func (h *Handler) flash(c *gin.Context, category, message string) {
	sess := h.auth.Session(c)
	sess.Flash(category, message)
	if err := sess.Save(); err != nil {
		log.Error("Failed to save session", "error", err)
	}
}

var errInvalidPagination = errors.New("page and page_size must be positive integers")

func parsePagination(c *gin.Context) (page, pageSize int, err error) {
	page, err = parsePositive(c.Query("page"), 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err = parsePositive(c.Query("page_size"), DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, min(pageSize, MaxPageSize), nil
}

func parsePositive(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, errInvalidPagination
	}
	v, err := safecast.Convert[int](n)
	if err != nil {
		return 0, errInvalidPagination
	}
	return v, nil
}

const (
	duplicateUsernameMessage = "That username is taken. Choose a different one."
	duplicateEmailMessage    = "That email is taken. Choose a different one."
	duplicateIdentityMessage = "That username or email is taken. Choose a different one."
	passwordTooLongMessage   = "Field cannot be longer than 72 bytes."
	loginFailedMessage       = "Login failed. Please check email and password."
)

// fail maps store, auth and validation errors to responses.
func (h *Handler) fail(c *gin.Context, err error) {
	var fieldErrs validate.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrs})
	case errors.Is(err, database.ErrDuplicateUsername):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": validate.FieldErrors{{Field: "username", Message: duplicateUsernameMessage}},
		})
	case errors.Is(err, database.ErrDuplicateEmail):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": validate.FieldErrors{{Field: "email", Message: duplicateEmailMessage}},
		})
	case errors.Is(err, database.ErrDuplicateIdentity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": validate.FieldErrors{{Field: "username", Message: duplicateIdentityMessage}},
		})
	case password.IsTooLong(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": validate.FieldErrors{{Field: "password", Message: passwordTooLongMessage}},
		})
	case errors.Is(err, database.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": loginFailedMessage})
	case errors.Is(err, auth.ErrAuthenticationRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "redirect": "/login"})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
