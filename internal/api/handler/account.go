package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/learnlog/internal/api/auth"
	"github.com/jon4hz/learnlog/internal/api/models"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/validate"
)

var (
	registerFields = []string{"username", "email", "password", "confirm_password"}
	loginFields    = []string{"email", "password", "remember_me"}
)

func (h *Handler) RegisterForm(c *gin.Context) {
	c.JSON(http.StatusOK, models.FormPage{Title: "Register", Action: "/register", Fields: registerFields})
}

func (h *Handler) Register(c *gin.Context) {
	var form validate.RegistrationForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	page := models.FormPage{
		Title:  "Register",
		Action: "/register",
		Fields: registerFields,
		Values: gin.H{"username": form.Username, "email": form.Email},
	}
	if errs := validate.Registration(&form); len(errs) > 0 {
		page.Errors = errs
		c.JSON(http.StatusUnprocessableEntity, page)
		return
	}

	user, err := h.db.CreateUser(c.Request.Context(), database.NewUser{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.flash(c, auth.FlashSuccess, "You have successfully registered!")
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"redirect": "/login",
		"user":     models.ToUser(*user, h.avatars),
	})
}

func (h *Handler) LoginForm(c *gin.Context) {
	c.JSON(http.StatusOK, models.FormPage{Title: "Login", Action: "/login", Fields: loginFields})
}

func (h *Handler) Login(c *gin.Context) {
	var form validate.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}
	form.RememberMe = isChecked(c.PostForm("remember_me"))

	if errs := validate.Login(&form); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, models.FormPage{
			Title:  "Login",
			Action: "/login",
			Fields: loginFields,
			Values: gin.H{"email": form.Email, "remember_me": form.RememberMe},
			Errors: errs,
		})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), h.auth.Session(c), form.Email, form.Password, form.RememberMe)
	if err != nil {
		if errors.Is(err, database.ErrAuthenticationFailed) {
			h.flash(c, auth.FlashDanger, loginFailedMessage)
		}
		h.fail(c, err)
		return
	}

	h.flash(c, auth.FlashSuccess, "Login successful!")
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": "/",
		"user":     models.ToUser(*user, h.avatars),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), h.auth.Session(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// isChecked accepts the values browsers and form libraries send for checked boxes.
func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "on", "true", "1":
		return true
	}
	return false
}
