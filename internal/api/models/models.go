package models

import (
	"github.com/jon4hz/learnlog/internal/api/auth"
	"github.com/jon4hz/learnlog/internal/validate"
)

// User is the public view of an account.
type User struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	AvatarURL string `json:"avatar_url,omitempty"` // empty if gravatar is disabled
	JoinedAt  string `json:"joined_at"`
	JoinedAgo string `json:"joined_ago"`
}

// EntrySummary is an entry as shown in lists.
type EntrySummary struct {
	ID            uint     `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Date          string   `json:"date"`
	TimeSpent     int      `json:"time_spent"`
	TimeSpentText string   `json:"time_spent_text"`
	Tags          []string `json:"tags"`
	Author        User     `json:"author"`
	CreatedAgo    string   `json:"created_ago"`
}

// EntryDetail is a single entry with its resources and tags split into lists.
type EntryDetail struct {
	EntrySummary
	WhatYouLearned string   `json:"what_you_learned"`
	Resources      []string `json:"resources"`
	CanEdit        bool     `json:"can_edit"`
}

// EntryPage is one page of an entry list.
type EntryPage struct {
	Entries    []EntrySummary `json:"entries"`
	Tag        string         `json:"tag,omitempty"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
	Flashes    []auth.Flash   `json:"flashes"`
}

// FormPage describes a form for clients: its fields, current values and errors.
type FormPage struct {
	Title  string               `json:"title"`
	Action string               `json:"action"`
	Fields []string             `json:"fields"`
	Values any                  `json:"values,omitempty"`
	Errors validate.FieldErrors `json:"errors,omitempty"`
}
