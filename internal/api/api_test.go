package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/learnlog/internal/api/models"
	"github.com/jon4hz/learnlog/internal/config"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/database/mock"
	"github.com/jon4hz/learnlog/internal/password"
	"github.com/jon4hz/learnlog/internal/validate"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	password.Cost = bcrypt.MinCost
}

// client keeps cookies between requests like a browser would.
type client struct {
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(h http.Handler) *client {
	return &client{handler: h, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range c.cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

type ServerTestSuite struct {
	suite.Suite
	db     *mock.MockDB
	server *Server
	alice  *database.User
	bob    *database.User
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.db = mock.NewMockDB()
	cfg := &config.Config{
		Listen:         "127.0.0.1:0",
		SessionKey:     "0123456789abcdef0123456789abcdef",
		SessionName:    "learnlog_session",
		RememberMaxAge: 3600,
		Cache:          &config.CacheConfig{Type: config.CacheTypeMemory},
		Gravatar:       &config.GravatarConfig{Enabled: true, DefaultImage: "identicon"},
	}

	var err error
	s.server, err = New(cfg, s.db, true)
	s.Require().NoError(err)

	ctx := context.Background()
	s.alice, err = s.db.CreateUser(ctx, database.NewUser{Username: "alice", Email: "alice@example.com", Password: "alice-pw"})
	s.Require().NoError(err)
	s.bob, err = s.db.CreateUser(ctx, database.NewUser{Username: "bob", Email: "bob@example.com", Password: "bob-pw"})
	s.Require().NoError(err)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) loggedIn(email, pw string) *client {
	c := newClient(s.server.Handler())
	w := c.do(http.MethodPost, "/login", url.Values{"email": {email}, "password": {pw}})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return c
}

func entryForm(title, tags string) url.Values {
	return url.Values{
		"title":                 {title},
		"date":                  {"2024-03-01"},
		"time_spent":            {"45"},
		"what_you_learned":      {"how gin groups work"},
		"resources_to_remember": {"gin docs, go.dev"},
		"tags":                  {tags},
	}
}

func decode[T any](s *ServerTestSuite, w *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type fieldErrorsResponse struct {
	Errors validate.FieldErrors `json:"errors"`
}

func (s *ServerTestSuite) TestHealthz() {
	w := newClient(s.server.Handler()).do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())
	s.NotEmpty(w.Header().Get(RequestIDHeader))
}

func (s *ServerTestSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "3f1c9a52-5d8e-4f0b-9a57-0b8f4f3d2c11")
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	s.Equal("3f1c9a52-5d8e-4f0b-9a57-0b8f4f3d2c11", w.Header().Get(RequestIDHeader))
}

func (s *ServerTestSuite) TestRegister() {
	c := newClient(s.server.Handler())

	w := c.do(http.MethodGet, "/register", nil)
	s.Equal(http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/register", url.Values{
		"username":         {"Carol"},
		"email":            {"Carol@Example.com"},
		"password":         {"carol-pw"},
		"confirm_password": {"carol-pw"},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"redirect":"/login"`)
	s.NotContains(w.Body.String(), "carol-pw")

	// the flash is shown once
	page := decode[models.EntryPage](s, c.do(http.MethodGet, "/", nil))
	s.Require().Len(page.Flashes, 1)
	s.Equal("success", page.Flashes[0].Category)
	s.Equal("You have successfully registered!", page.Flashes[0].Message)

	page = decode[models.EntryPage](s, c.do(http.MethodGet, "/", nil))
	s.Empty(page.Flashes)

	// stored lowercase, so the mixed case address logs in
	s.loggedIn("CAROL@example.com", "carol-pw")
}

func (s *ServerTestSuite) TestRegister_Duplicate() {
	c := newClient(s.server.Handler())

	tests := []struct {
		form    url.Values
		field   string
		message string
	}{
		{
			form:    url.Values{"username": {"alice"}, "email": {"other@example.com"}, "password": {"x"}, "confirm_password": {"x"}},
			field:   "username",
			message: "That username is taken. Choose a different one.",
		},
		{
			form:    url.Values{"username": {"other"}, "email": {"alice@example.com"}, "password": {"x"}, "confirm_password": {"x"}},
			field:   "email",
			message: "That email is taken. Choose a different one.",
		},
	}
	for _, tt := range tests {
		w := c.do(http.MethodPost, "/register", tt.form)
		s.Equal(http.StatusUnprocessableEntity, w.Code)

		resp := decode[fieldErrorsResponse](s, w)
		s.Require().Len(resp.Errors, 1)
		s.Equal(tt.field, resp.Errors[0].Field)
		s.Equal(tt.message, resp.Errors[0].Message)
	}

	count, err := s.db.CountUsers(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *ServerTestSuite) TestRegister_MultibytePasswordTooLong() {
	pw := strings.Repeat("é", 40)
	w := newClient(s.server.Handler()).do(http.MethodPost, "/register", url.Values{
		"username":         {"dave"},
		"email":            {"dave@example.com"},
		"password":         {pw},
		"confirm_password": {pw},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code, w.Body.String())

	page := decode[models.FormPage](s, w)
	s.True(page.Errors.Has("password"))

	count, err := s.db.CountUsers(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *ServerTestSuite) TestRegister_HashFailureIsFieldError() {
	s.db.CreateUserError = fmt.Errorf("failed to hash password: %w", password.ErrTooLong)

	w := newClient(s.server.Handler()).do(http.MethodPost, "/register", url.Values{
		"username":         {"dave"},
		"email":            {"dave@example.com"},
		"password":         {"dave-pw"},
		"confirm_password": {"dave-pw"},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code, w.Body.String())

	resp := decode[fieldErrorsResponse](s, w)
	s.Require().Len(resp.Errors, 1)
	s.Equal("password", resp.Errors[0].Field)
}

func (s *ServerTestSuite) TestRegister_Invalid() {
	w := newClient(s.server.Handler()).do(http.MethodPost, "/register", url.Values{
		"username":         {"x"},
		"email":            {"not-an-email"},
		"password":         {"secret"},
		"confirm_password": {"different"},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	page := decode[models.FormPage](s, w)
	s.True(page.Errors.Has("username"))
	s.True(page.Errors.Has("email"))
	s.True(page.Errors.Has("confirm_password"))
	s.NotContains(w.Body.String(), "secret")
}

func (s *ServerTestSuite) TestLogin_Failure() {
	c := newClient(s.server.Handler())

	w := c.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "Login failed")

	w = c.do(http.MethodPost, "/login", url.Values{"email": {"nobody@example.com"}, "password": {"alice-pw"}})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodPost, "/login", url.Values{"email": {"alice"}, "password": {""}})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = c.do(http.MethodGet, "/entries/new", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	// one danger flash per rejected credential pair, none for the invalid form
	page := decode[models.EntryPage](s, c.do(http.MethodGet, "/", nil))
	s.Require().Len(page.Flashes, 2)
	for _, f := range page.Flashes {
		s.Equal("danger", f.Category)
		s.Equal("Login failed. Please check email and password.", f.Message)
	}
}

func (s *ServerTestSuite) TestLogin_RedirectsWhenAuthenticated() {
	c := s.loggedIn("alice@example.com", "alice-pw")

	w := c.do(http.MethodGet, "/login", nil)
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/", w.Header().Get("Location"))

	w = c.do(http.MethodGet, "/register", nil)
	s.Equal(http.StatusFound, w.Code)
}

func (s *ServerTestSuite) TestLogout_Twice() {
	c := s.loggedIn("alice@example.com", "alice-pw")

	for range 2 {
		w := c.do(http.MethodGet, "/logout", nil)
		s.Equal(http.StatusFound, w.Code)
		s.Equal("/", w.Header().Get("Location"))
	}

	w := c.do(http.MethodGet, "/entries/new", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ServerTestSuite) TestShutdownKeepsCachedUsers() {
	s.loggedIn("alice@example.com", "alice-pw")
	_, ok := s.server.users.Get(context.Background(), s.alice.ID)
	s.Require().True(ok)

	s.Require().NoError(s.server.Shutdown(context.Background()))

	_, ok = s.server.users.Get(context.Background(), s.alice.ID)
	s.True(ok)
}

func (s *ServerTestSuite) TestCacheStats_AdminOnly() {
	_, err := s.db.CreateUser(context.Background(), database.NewUser{
		Username: "root",
		Email:    "root@example.com",
		Password: "root-pw",
		IsAdmin:  true,
	})
	s.Require().NoError(err)

	w := newClient(s.server.Handler()).do(http.MethodGet, "/admin/cache/stats", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.loggedIn("alice@example.com", "alice-pw").do(http.MethodGet, "/admin/cache/stats", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.loggedIn("root@example.com", "root-pw").do(http.MethodGet, "/admin/cache/stats", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	resp := decode[struct {
		Caches []struct {
			CacheName string `json:"cacheName"`
			CacheType string `json:"cacheType"`
		} `json:"caches"`
	}](s, w)
	s.Require().Len(resp.Caches, 1)
	s.Equal("users", resp.Caches[0].CacheName)
	s.NotEmpty(resp.Caches[0].CacheType)
}

func (s *ServerTestSuite) TestEntryLifecycle() {
	c := s.loggedIn("alice@example.com", "alice-pw")

	w := c.do(http.MethodPost, "/entries/new", entryForm("Day One", "Go, Web"))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/entries/day-one", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	detail := decode[models.EntryDetail](s, w)
	s.Equal("Day One", detail.Title)
	s.Equal("2024-03-01", detail.Date)
	s.Equal([]string{"gin docs", "go.dev"}, detail.Resources)
	s.Equal([]string{"go", "web"}, detail.Tags)
	s.Equal("alice", detail.Author.Username)
	s.True(detail.CanEdit)

	w = c.do(http.MethodGet, "/entries/day-one/edit", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"title":"Day One"`)

	w = c.do(http.MethodPost, "/entries/day-one/edit", entryForm("Day Uno", "go"))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	s.Equal(http.StatusNotFound, c.do(http.MethodGet, "/entries/day-one", nil).Code)
	s.Equal(http.StatusOK, c.do(http.MethodGet, "/entries/day-uno", nil).Code)

	w = c.do(http.MethodPost, "/entries/day-uno/delete", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(http.StatusNotFound, c.do(http.MethodGet, "/entries/day-uno", nil).Code)
	s.Equal(http.StatusNotFound, c.do(http.MethodGet, "/entries/day-uno/delete", nil).Code)

	page := decode[models.EntryPage](s, c.do(http.MethodGet, "/entries", nil))
	s.Empty(page.Entries)
	s.Equal([]string{"Login successful!", "Entry added!", "Entry updated!", "Entry deleted!"}, flashMessages(page))
}

func flashMessages(page models.EntryPage) []string {
	msgs := make([]string, len(page.Flashes))
	for i, f := range page.Flashes {
		msgs[i] = f.Message
	}
	return msgs
}

func (s *ServerTestSuite) TestEntryTitledLikeARoute() {
	c := s.loggedIn("alice@example.com", "alice-pw")

	w := c.do(http.MethodPost, "/entries/new", entryForm("Tag", "go"))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"slug":"tag-entry"`)

	w = c.do(http.MethodGet, "/entries/tag-entry/edit", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"title":"Tag"`)

	w = c.do(http.MethodPost, "/entries/new", entryForm("New", "go"))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(http.StatusOK, c.do(http.MethodGet, "/entries/new-entry", nil).Code)
}

func (s *ServerTestSuite) TestCreateEntry_Invalid() {
	c := s.loggedIn("alice@example.com", "alice-pw")

	form := entryForm("", "go")
	form.Set("time_spent", "-5")
	form.Set("date", "yesterday")

	w := c.do(http.MethodPost, "/entries/new", form)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	page := decode[models.FormPage](s, w)
	s.True(page.Errors.Has("title"))
	s.True(page.Errors.Has("time_spent"))
	s.True(page.Errors.Has("date"))

	count, err := s.db.CountEntries(context.Background())
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServerTestSuite) TestNonOwnerCannotModify() {
	_, err := s.db.CreateEntry(context.Background(), s.alice.ID, database.EntryInput{
		Title:               "Private Notes",
		Date:                time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TimeSpent:           10,
		WhatYouLearned:      "secrets",
		ResourcesToRemember: "none",
		Tags:                "diary",
	})
	s.Require().NoError(err)

	c := s.loggedIn("bob@example.com", "bob-pw")

	// reading is allowed for every logged in user
	w := c.do(http.MethodGet, "/entries/private-notes", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.False(decode[models.EntryDetail](s, w).CanEdit)

	s.Equal(http.StatusForbidden, c.do(http.MethodGet, "/entries/private-notes/edit", nil).Code)
	s.Equal(http.StatusForbidden, c.do(http.MethodPost, "/entries/private-notes/edit", entryForm("Hijacked", "x")).Code)
	s.Equal(http.StatusForbidden, c.do(http.MethodPost, "/entries/private-notes/delete", nil).Code)
	s.Equal(http.StatusForbidden, c.do(http.MethodGet, "/entries/private-notes/delete", nil).Code)

	entry, err := s.db.GetEntryBySlug(context.Background(), "private-notes")
	s.Require().NoError(err)
	s.Equal("Private Notes", entry.Title)
	s.Equal(s.alice.ID, entry.UserID)
}

func (s *ServerTestSuite) TestEntriesByTag() {
	c := s.loggedIn("alice@example.com", "alice-pw")
	for title, tags := range map[string]string{"Exact": "go", "Substring": "golang", "Other": "python"} {
		s.Require().Equal(http.StatusCreated, c.do(http.MethodPost, "/entries/new", entryForm(title, tags)).Code)
	}

	anon := newClient(s.server.Handler())
	page := decode[models.EntryPage](s, anon.do(http.MethodGet, "/entries/tag/go", nil))
	s.Equal("go", page.Tag)
	s.Equal(int64(2), page.Total)

	titles := []string{page.Entries[0].Title, page.Entries[1].Title}
	s.ElementsMatch([]string{"Exact", "Substring"}, titles)
}

func (s *ServerTestSuite) TestPagination() {
	c := s.loggedIn("alice@example.com", "alice-pw")
	for _, title := range []string{"One", "Two", "Three"} {
		s.Require().Equal(http.StatusCreated, c.do(http.MethodPost, "/entries/new", entryForm(title, "go")).Code)
	}

	anon := newClient(s.server.Handler())
	page := decode[models.EntryPage](s, anon.do(http.MethodGet, "/?page=2&page_size=2", nil))
	s.Equal(2, page.Page)
	s.Equal(2, page.TotalPages)
	s.Len(page.Entries, 1)
	s.Equal("One", page.Entries[0].Title)
	s.True(page.HasPrev)
	s.False(page.HasNext)

	page = decode[models.EntryPage](s, anon.do(http.MethodGet, "/?page_size=1000", nil))
	s.Equal(100, page.PageSize)

	for _, q := range []string{"page=0", "page=-1", "page=abc", "page_size=0", "page=99999999999999999999999"} {
		w := anon.do(http.MethodGet, "/?"+q, nil)
		s.Equal(http.StatusBadRequest, w.Code, q)
	}
}

func (s *ServerTestSuite) TestStoreErrorIsInternal() {
	s.db.ListEntriesError = io.ErrUnexpectedEOF
	w := newClient(s.server.Handler()).do(http.MethodGet, "/", nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), io.ErrUnexpectedEOF.Error())
}
