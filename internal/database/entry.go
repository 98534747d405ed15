package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/learnlog/internal/slug"
	"github.com/jon4hz/learnlog/internal/validate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fallbackSlug is used for titles without any letters or digits.
const fallbackSlug = "entry"

// reservedSlugs are path segments under /entries/ that are routes of their own.
var reservedSlugs = map[string]bool{
	"new": true,
	"tag": true,
}

// Entry is a dated journal entry owned by exactly one user.
// Slugs are derived from the title and are not unique.
type Entry struct {
	ID                  uint      `gorm:"primarykey" json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Title               string    `gorm:"size:100;not null" json:"title"`
	Date                Date      `gorm:"not null" json:"date"`
	TimeSpent           int       `gorm:"not null;default:0" json:"time_spent"`
	WhatYouLearned      string    `gorm:"type:text;not null" json:"what_you_learned"`
	ResourcesToRemember string    `gorm:"type:text;not null" json:"resources_to_remember"`
	Slug                string    `gorm:"type:text;index;not null" json:"slug"`
	Tags                string    `gorm:"size:255;not null" json:"tags"`
	UserID              uint      `gorm:"index;not null" json:"user_id"`
	User                User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

func (Entry) TableName() string {
	return "journal_entries"
}

// EntryInput holds the user supplied fields of an entry.
type EntryInput struct {
	Title               string
	Date                time.Time
	TimeSpent           int
	WhatYouLearned      string
	ResourcesToRemember string
	Tags                string
}

// Prepare trims and normalizes the input in place and checks it.
// The returned error is a validate.FieldErrors.
func (in *EntryInput) Prepare() error {
	in.normalize()
	return in.check()
}

func (in *EntryInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.WhatYouLearned = strings.TrimSpace(in.WhatYouLearned)
	in.ResourcesToRemember = strings.TrimSpace(in.ResourcesToRemember)
	in.Tags = NormalizeTags(in.Tags)
}

func (in EntryInput) check() error {
	var errs validate.FieldErrors
	if in.Title == "" {
		errs.Add("title", "This field is required.")
	} else if len([]rune(in.Title)) > 100 {
		errs.Add("title", "Field cannot be longer than 100 characters.")
	}
	if in.Date.IsZero() {
		errs.Add("date", "This field is required.")
	}
	if in.TimeSpent < 0 {
		errs.Add("time_spent", "Number must be at least 0.")
	}
	if in.WhatYouLearned == "" {
		errs.Add("what_you_learned", "This field is required.")
	}
	if in.ResourcesToRemember == "" {
		errs.Add("resources_to_remember", "This field is required.")
	}
	if in.Tags == "" {
		errs.Add("tags", "This field is required.")
	}
	return errs.Err()
}

// Apply copies the input onto e and re-derives the slug.
func (in EntryInput) Apply(e *Entry) {
	e.Title = in.Title
	e.Date = NewDate(in.Date)
	e.TimeSpent = in.TimeSpent
	e.WhatYouLearned = in.WhatYouLearned
	e.ResourcesToRemember = in.ResourcesToRemember
	e.Tags = in.Tags
	e.Slug = entrySlug(in.Title)
}

func entrySlug(title string) string {
	s := slug.Make(title)
	if s == "" {
		return fallbackSlug
	}
	if reservedSlugs[s] {
		return s + "-" + fallbackSlug
	}
	return s
}

// NormalizeTags lowercases tags and rewrites the separators so that
// "Go,  Web " becomes "go, web".
func NormalizeTags(tags string) string {
	parts := strings.Split(strings.ToLower(tags), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// CreateEntry stores a new entry owned by ownerID.
func (c *Client) CreateEntry(ctx context.Context, ownerID uint, in EntryInput) (*Entry, error) {
	if err := in.Prepare(); err != nil {
		return nil, err
	}

	entry := Entry{UserID: ownerID}
	in.Apply(&entry)

	if err := c.db.WithContext(ctx).Omit(clause.Associations).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, ErrNotFound
		}
		log.Error("failed to create entry", "error", err)
		return nil, err
	}
	return &entry, nil
}

// ListRecentEntries returns the most recently created entries first.
func (c *Client) ListRecentEntries(ctx context.Context, page, pageSize int) ([]Entry, int64, error) {
	return listEntries(c.db.WithContext(ctx).Model(&Entry{}), page, pageSize)
}

// ListEntriesByTag returns entries whose tags equal tag or contain it as a substring.
func (c *Client) ListEntriesByTag(ctx context.Context, tag string, page, pageSize int) ([]Entry, int64, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	query := c.db.WithContext(ctx).Model(&Entry{}).
		Where("tags = ? OR tags LIKE ? ESCAPE '\\'", tag, "%"+escapeLike(tag)+"%")
	return listEntries(query, page, pageSize)
}

func listEntries(query *gorm.DB, page, pageSize int) ([]Entry, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		log.Error("failed to count entries", "error", err)
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	var entries []Entry
	result := query.
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&entries)
	if result.Error != nil {
		log.Error("failed to list entries", "error", result.Error)
		return nil, 0, result.Error
	}
	return entries, total, nil
}

// GetEntryBySlug returns the oldest entry with the given slug.
func (c *Client) GetEntryBySlug(ctx context.Context, slug string) (*Entry, error) {
	var entry Entry
	err := c.db.WithContext(ctx).
		Preload("User").
		Where("slug = ?", slug).
		Order("id ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to get entry by slug", "error", err)
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry overwrites all user supplied fields and re-derives the slug.
func (c *Client) UpdateEntry(ctx context.Context, id uint, in EntryInput) (*Entry, error) {
	if err := in.Prepare(); err != nil {
		return nil, err
	}

	var entry Entry
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, id).Error; err != nil {
			return err
		}
		in.Apply(&entry)
		return tx.Omit(clause.Associations).Save(&entry).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to update entry", "error", err)
		return nil, err
	}
	return &entry, nil
}

// DeleteEntry permanently removes the entry.
func (c *Client) DeleteEntry(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).Delete(&Entry{}, id)
	if result.Error != nil {
		log.Error("failed to delete entry", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&Entry{}).Count(&count).Error; err != nil {
		log.Error("failed to count entries", "error", err)
		return 0, err
	}
	return count, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
