package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/gravatar"
	"github.com/jon4hz/learnlog/internal/validate"
	"github.com/mergestat/timediff"
	"github.com/samber/lo"
)

// ToUser converts a database.User to its public view.
// The email is only used to derive the avatar and is not exposed.
func ToUser(u database.User, avatars *gravatar.Resolver) User {
	return User{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		AvatarURL: avatars.URL(u.Email),
		JoinedAt:  u.JoinedAt.Format(time.RFC3339),
		JoinedAgo: timediff.TimeDiff(u.JoinedAt),
	}
}

func ToEntrySummary(e database.Entry, avatars *gravatar.Resolver) EntrySummary {
	return EntrySummary{
		ID:            e.ID,
		Title:         e.Title,
		Slug:          e.Slug,
		Date:          e.Date.String(),
		TimeSpent:     e.TimeSpent,
		TimeSpentText: humanize.Comma(int64(e.TimeSpent)) + " min",
		Tags:          SplitList(e.Tags),
		Author:        ToUser(e.User, avatars),
		CreatedAgo:    timediff.TimeDiff(e.CreatedAt),
	}
}

func ToEntrySummaries(entries []database.Entry, avatars *gravatar.Resolver) []EntrySummary {
	return lo.Map(entries, func(e database.Entry, _ int) EntrySummary {
		return ToEntrySummary(e, avatars)
	})
}

// ToEntryDetail converts an entry for the detail view of viewer.
func ToEntryDetail(e database.Entry, viewer *database.User, avatars *gravatar.Resolver) EntryDetail {
	return EntryDetail{
		EntrySummary:   ToEntrySummary(e, avatars),
		WhatYouLearned: e.WhatYouLearned,
		Resources:      SplitList(e.ResourcesToRemember),
		CanEdit:        viewer != nil && viewer.ID == e.UserID,
	}
}

// ToEntryForm returns the form values of an existing entry.
func ToEntryForm(e database.Entry) validate.EntryForm {
	return validate.EntryForm{
		Title:               e.Title,
		Date:                e.Date.String(),
		TimeSpent:           strconv.Itoa(e.TimeSpent),
		WhatYouLearned:      e.WhatYouLearned,
		ResourcesToRemember: e.ResourcesToRemember,
		Tags:                e.Tags,
	}
}

// NewEntryPage builds a page of entries. page and pageSize must be positive.
func NewEntryPage(entries []database.Entry, total int64, page, pageSize int, avatars *gravatar.Resolver) EntryPage {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return EntryPage{
		Entries:    ToEntrySummaries(entries, avatars),
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

// SplitList splits a comma separated string into trimmed, non-empty items.
func SplitList(s string) []string {
	items := lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(items)
}
