package database

import (
	"context"
	"io"
)

// DB defines the store operations used by the rest of the application.
type DB interface {
	io.Closer

	// Credential store
	CreateUser(ctx context.Context, nu NewUser) (*User, error)
	FindByCredentials(ctx context.Context, email, plaintext string) (*User, error)
	GetUserByID(ctx context.Context, id uint) (*User, error)
	EnsureAdmin(ctx context.Context, nu NewUser) (bool, error)
	CountUsers(ctx context.Context) (int64, error)

	// Entry store
	CreateEntry(ctx context.Context, ownerID uint, in EntryInput) (*Entry, error)
	ListRecentEntries(ctx context.Context, page, pageSize int) ([]Entry, int64, error)
	ListEntriesByTag(ctx context.Context, tag string, page, pageSize int) ([]Entry, int64, error)
	GetEntryBySlug(ctx context.Context, slug string) (*Entry, error)
	UpdateEntry(ctx context.Context, id uint, in EntryInput) (*Entry, error)
	DeleteEntry(ctx context.Context, id uint) error
	CountEntries(ctx context.Context) (int64, error)
}
