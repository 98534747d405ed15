package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/learnlog/internal/api/auth"
	"github.com/jon4hz/learnlog/internal/api/models"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/validate"
)

var entryFields = []string{"title", "date", "time_spent", "what_you_learned", "resources_to_remember", "tags"}

func (h *Handler) NewEntryForm(c *gin.Context) {
	c.JSON(http.StatusOK, models.FormPage{
		Title:  "New Entry",
		Action: "/entries/new",
		Fields: entryFields,
		Values: validate.EntryForm{Date: time.Now().Format(validate.DateLayout)},
	})
}

func (h *Handler) CreateEntry(c *gin.Context) {
	user := auth.UserFromContext(c)

	in, ok := h.bindEntry(c, "New Entry", "/entries/new")
	if !ok {
		return
	}

	entry, err := h.db.CreateEntry(c.Request.Context(), user.ID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	entry.User = *user

	h.flash(c, auth.FlashSuccess, "Entry added!")
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"redirect": "/",
		"entry":    models.ToEntryDetail(*entry, user, h.avatars),
	})
}

func (h *Handler) Detail(c *gin.Context) {
	entry, err := h.db.GetEntryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToEntryDetail(*entry, auth.UserFromContext(c), h.avatars))
}

func (h *Handler) EditEntryForm(c *gin.Context) {
	entry, ok := h.ownedEntry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.FormPage{
		Title:  "Edit",
		Action: "/entries/" + entry.Slug + "/edit",
		Fields: entryFields,
		Values: models.ToEntryForm(*entry),
	})
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	entry, ok := h.ownedEntry(c)
	if !ok {
		return
	}

	in, ok := h.bindEntry(c, "Edit", "/entries/"+entry.Slug+"/edit")
	if !ok {
		return
	}

	updated, err := h.db.UpdateEntry(c.Request.Context(), entry.ID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	updated.User = entry.User

	h.flash(c, auth.FlashSuccess, "Entry updated!")
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": "/",
		"entry":    models.ToEntryDetail(*updated, auth.UserFromContext(c), h.avatars),
	})
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	entry, ok := h.ownedEntry(c)
	if !ok {
		return
	}

	if err := h.db.DeleteEntry(c.Request.Context(), entry.ID); err != nil {
		h.fail(c, err)
		return
	}

	h.flash(c, auth.FlashSuccess, "Entry deleted!")
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/"})
}

// ownedEntry loads the entry named in the path and checks that the current user owns it.
func (h *Handler) ownedEntry(c *gin.Context) (*database.Entry, bool) {
	entry, err := h.db.GetEntryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if err := auth.Authorize(auth.UserFromContext(c), entry); err != nil {
		h.fail(c, err)
		return nil, false
	}
	return entry, true
}

// bindEntry parses and validates the entry form. It writes the error response itself.
func (h *Handler) bindEntry(c *gin.Context, title, action string) (database.EntryInput, bool) {
	var form validate.EntryForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return database.EntryInput{}, false
	}

	values, errs := validate.Entry(&form)
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, models.FormPage{
			Title:  title,
			Action: action,
			Fields: entryFields,
			Values: form,
			Errors: errs,
		})
		return database.EntryInput{}, false
	}

	return database.EntryInput{
		Title:               form.Title,
		Date:                values.Date,
		TimeSpent:           values.TimeSpent,
		WhatYouLearned:      form.WhatYouLearned,
		ResourcesToRemember: form.ResourcesToRemember,
		Tags:                form.Tags,
	}, true
}
