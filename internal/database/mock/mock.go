package mock

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/password"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	// User storage
	users      map[uint]*database.User
	nextUserID uint

	// Entry storage
	entries     map[uint]*database.Entry
	nextEntryID uint

	// Error simulation
	CreateUserError        error
	FindByCredentialsError error
	GetUserByIDError       error
	CountUsersError        error
	CreateEntryError       error
	ListEntriesError       error
	GetEntryBySlugError    error
	UpdateEntryError       error
	DeleteEntryError       error
	CountEntriesError      error

	// GetUserByIDCalls counts lookups by id so tests can assert cache hits.
	GetUserByIDCalls int
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	return &MockDB{
		users:       make(map[uint]*database.User),
		nextUserID:  1,
		entries:     make(map[uint]*database.Entry),
		nextEntryID: 1,
	}
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[uint]*database.User)
	m.nextUserID = 1
	m.entries = make(map[uint]*database.Entry)
	m.nextEntryID = 1

	m.CreateUserError = nil
	m.FindByCredentialsError = nil
	m.GetUserByIDError = nil
	m.CountUsersError = nil
	m.CreateEntryError = nil
	m.ListEntriesError = nil
	m.GetEntryBySlugError = nil
	m.UpdateEntryError = nil
	m.DeleteEntryError = nil
	m.CountEntriesError = nil
	m.GetUserByIDCalls = 0
}

func (m *MockDB) Close() error {
	return nil
}

// User operations

func (m *MockDB) CreateUser(ctx context.Context, nu database.NewUser) (*database.User, error) {
	if m.CreateUserError != nil {
		return nil, m.CreateUserError
	}

	hash, err := password.Hash(nu.Password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(nu.Username))
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	for _, u := range m.users {
		if u.Username == username {
			return nil, database.ErrDuplicateUsername
		}
	}
	for _, u := range m.users {
		if u.Email == email {
			return nil, database.ErrDuplicateEmail
		}
	}

	user := &database.User{
		ID:           m.nextUserID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		JoinedAt:     time.Now().UTC(),
		IsAdmin:      nu.IsAdmin,
	}
	m.nextUserID++
	m.users[user.ID] = user

	u := *user
	return &u, nil
}

func (m *MockDB) FindByCredentials(ctx context.Context, email, plaintext string) (*database.User, error) {
	if m.FindByCredentialsError != nil {
		return nil, m.FindByCredentialsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			if !password.Verify(u.PasswordHash, plaintext) {
				return nil, database.ErrAuthenticationFailed
			}
			user := *u
			return &user, nil
		}
	}

	return nil, database.ErrAuthenticationFailed
}

func (m *MockDB) GetUserByID(ctx context.Context, id uint) (*database.User, error) {
	m.mu.Lock()
	m.GetUserByIDCalls++
	m.mu.Unlock()

	if m.GetUserByIDError != nil {
		return nil, m.GetUserByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}

	user := *u
	return &user, nil
}

func (m *MockDB) EnsureAdmin(ctx context.Context, nu database.NewUser) (bool, error) {
	nu.IsAdmin = true
	_, err := m.CreateUser(ctx, nu)
	if errors.Is(err, database.ErrDuplicateIdentity) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MockDB) CountUsers(ctx context.Context) (int64, error) {
	if m.CountUsersError != nil {
		return 0, m.CountUsersError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.users)), nil
}

// DeleteUser removes a user and cascades to their entries.
// It exists only on the mock to simulate accounts disappearing under a live session.
func (m *MockDB) DeleteUser(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, id)
	for eid, e := range m.entries {
		if e.UserID == id {
			delete(m.entries, eid)
		}
	}
}

// Entry operations

func (m *MockDB) CreateEntry(ctx context.Context, ownerID uint, in database.EntryInput) (*database.Entry, error) {
	if m.CreateEntryError != nil {
		return nil, m.CreateEntryError
	}

	if err := in.Prepare(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.users[ownerID]
	if !ok {
		return nil, database.ErrNotFound
	}

	now := time.Now().UTC()
	entry := &database.Entry{
		ID:        m.nextEntryID,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    ownerID,
	}
	in.Apply(entry)
	m.nextEntryID++
	m.entries[entry.ID] = entry

	e := *entry
	e.User = *owner
	return &e, nil
}

func (m *MockDB) ListRecentEntries(ctx context.Context, page, pageSize int) ([]database.Entry, int64, error) {
	return m.listEntries(page, pageSize, func(*database.Entry) bool { return true })
}

func (m *MockDB) ListEntriesByTag(ctx context.Context, tag string, page, pageSize int) ([]database.Entry, int64, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return m.listEntries(page, pageSize, func(e *database.Entry) bool {
		return e.Tags == tag || strings.Contains(e.Tags, tag)
	})
}

func (m *MockDB) listEntries(page, pageSize int, match func(*database.Entry) bool) ([]database.Entry, int64, error) {
	if m.ListEntriesError != nil {
		return nil, 0, m.ListEntriesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []database.Entry
	for _, e := range m.entries {
		if match(e) {
			entry := *e
			if owner, ok := m.users[e.UserID]; ok {
				entry.User = *owner
			}
			all = append(all, entry)
		}
	}

	// newest first, ids break ties like the sql ordering
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []database.Entry{}, int64(len(all)), nil
	}
	end := min(start+pageSize, len(all))

	return all[start:end], int64(len(all)), nil
}

func (m *MockDB) GetEntryBySlug(ctx context.Context, slug string) (*database.Entry, error) {
	if m.GetEntryBySlugError != nil {
		return nil, m.GetEntryBySlugError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *database.Entry
	for _, e := range m.entries {
		if e.Slug == slug && (found == nil || e.ID < found.ID) {
			found = e
		}
	}
	if found == nil {
		return nil, database.ErrNotFound
	}

	entry := *found
	if owner, ok := m.users[found.UserID]; ok {
		entry.User = *owner
	}
	return &entry, nil
}

func (m *MockDB) UpdateEntry(ctx context.Context, id uint, in database.EntryInput) (*database.Entry, error) {
	if m.UpdateEntryError != nil {
		return nil, m.UpdateEntryError
	}

	if err := in.Prepare(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, database.ErrNotFound
	}

	in.Apply(entry)
	entry.UpdatedAt = time.Now().UTC()

	e := *entry
	return &e, nil
}

func (m *MockDB) DeleteEntry(ctx context.Context, id uint) error {
	if m.DeleteEntryError != nil {
		return m.DeleteEntryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.entries, id)

	return nil
}

func (m *MockDB) CountEntries(ctx context.Context) (int64, error) {
	if m.CountEntriesError != nil {
		return 0, m.CountEntriesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.entries)), nil
}
