package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jon4hz/learnlog/internal/api/auth"
	"github.com/jon4hz/learnlog/internal/api/handler"
	"github.com/jon4hz/learnlog/internal/cache"
	"github.com/jon4hz/learnlog/internal/config"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/gravatar"
)

// RequestIDHeader carries the id of a request in both directions.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	cfg        *config.Config
	ginEngine  *gin.Engine
	db         database.DB
	auth       *auth.Manager
	users      *cache.UserCache
	avatars    *gravatar.Resolver
	httpServer *http.Server
}

// New builds the server and registers all routes.
func New(cfg *config.Config, db database.DB, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	users, err := cache.NewUserCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create user cache: %w", err)
	}

	authManager, err := auth.NewManager(db, users, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth manager: %w", err)
	}

	avatars, err := gravatar.New(cfg.Gravatar)
	if err != nil {
		return nil, fmt.Errorf("failed to configure gravatar: %w", err)
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		db:        db,
		auth:      authManager,
		users:     users,
		avatars:   avatars,
	}
	s.ginEngine.Use(gin.Recovery(), requestID(), requestLogger())
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))
	s.setupSession()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(s.auth.CookieOptions(false))
	s.ginEngine.Use(sessions.Sessions(s.cfg.SessionName, store))
}

func (s *Server) setupRoutes() {
	h := handler.New(s.db, s.auth, s.avatars, s.users)

	s.ginEngine.GET("/healthz", h.Healthz)

	s.ginEngine.GET("/", h.Index)
	s.ginEngine.GET("/entries", h.Index)
	s.ginEngine.GET("/entries/tag/:tag", h.EntriesByTag)

	guest := s.ginEngine.Group("/")
	guest.Use(s.auth.RedirectAuthenticated())
	guest.GET("/register", h.RegisterForm)
	guest.POST("/register", h.Register)
	guest.GET("/login", h.LoginForm)
	guest.POST("/login", h.Login)

	s.ginEngine.GET("/logout", h.Logout)

	entries := s.ginEngine.Group("/entries")
	entries.Use(s.auth.RequireAuth())
	entries.GET("/new", h.NewEntryForm)
	entries.POST("/new", h.CreateEntry)
	entries.GET("/:slug", h.Detail)
	entries.GET("/:slug/edit", h.EditEntryForm)
	entries.POST("/:slug/edit", h.UpdateEntry)
	entries.GET("/:slug/delete", h.DeleteEntry)
	entries.POST("/:slug/delete", h.DeleteEntry)

	admin := s.ginEngine.Group("/admin")
	admin.Use(s.auth.RequireAuth(), s.auth.RequireAdmin())
	admin.GET("/cache/stats", h.CacheStats)
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run listens until Shutdown is called.
func (s *Server) Run() error {
	log.Info("starting API server", "listen", s.cfg.Listen)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}
