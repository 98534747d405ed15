package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/learnlog/internal/password"
	"gorm.io/gorm"
)

// User is an account that owns journal entries.
// Usernames and emails are stored lowercase and are unique.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:50;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	JoinedAt     time.Time `gorm:"not null" json:"joined_at"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
}

// NewUser holds the input for creating a user.
type NewUser struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CreateUser hashes the password and inserts the user.
// It fails with ErrDuplicateUsername or ErrDuplicateEmail if either is already taken.
// Two registrations racing past that check get the plain ErrDuplicateIdentity.
func (c *Client) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	hash, err := password.Hash(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		Username:     normalizeIdentity(nu.Username),
		Email:        normalizeIdentity(nu.Email),
		PasswordHash: hash,
		JoinedAt:     time.Now().UTC(),
		IsAdmin:      nu.IsAdmin,
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := identityTaken(tx, "username", user.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateUsername
		}
		if taken, err = identityTaken(tx, "email", user.Email); err != nil {
			return err
		}
		if taken {
			return ErrDuplicateEmail
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		// the unique indexes decide when two registrations race past the count
		if errors.Is(err, ErrDuplicateIdentity) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		log.Error("failed to create user", "error", err)
		return nil, err
	}
	return &user, nil
}

func identityTaken(tx *gorm.DB, column, value string) (bool, error) {
	var count int64
	if err := tx.Model(&User{}).Where(column+" = ?", value).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByCredentials returns the user with the given email if the password matches.
// Unknown emails and wrong passwords both yield ErrAuthenticationFailed.
func (c *Client) FindByCredentials(ctx context.Context, email, plaintext string) (*User, error) {
	var user User
	err := c.db.WithContext(ctx).Where("email = ?", normalizeIdentity(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		password.Burn(plaintext)
		log.Debug("authentication failed", "reason", "unknown_email")
		return nil, ErrAuthenticationFailed
	}
	if err != nil {
		log.Error("failed to get user by email", "error", err)
		return nil, err
	}

	if !password.Verify(user.PasswordHash, plaintext) {
		log.Debug("authentication failed", "reason", "wrong_password", "user_id", user.ID)
		return nil, ErrAuthenticationFailed
	}
	return &user, nil
}

func (c *Client) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to get user by ID", "error", err)
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the given account unless it already exists.
// It reports whether a new account was created.
func (c *Client) EnsureAdmin(ctx context.Context, nu NewUser) (bool, error) {
	nu.IsAdmin = true
	_, err := c.CreateUser(ctx, nu)
	if errors.Is(err, ErrDuplicateIdentity) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		log.Error("failed to count users", "error", err)
		return 0, err
	}
	return count, nil
}
