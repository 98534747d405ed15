package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the layout of entry dates in forms and storage.
const DateLayout = "2006-01-02"

// FieldError describes a problem with a single form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is the list of problems found in a submitted form.
// An empty list means the form is valid.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Field + ": " + e.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Add appends an error for the given field.
func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// Has reports whether the field has at least one error.
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil for an empty list so callers can use the usual err != nil check.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// RegistrationForm is the raw input of the registration form.
type RegistrationForm struct {
	Username        string `form:"username" json:"username" validate:"required,min=2,max=20"`
	Email           string `form:"email" json:"email" validate:"required,email,max=50"`
	Password        string `form:"password" json:"-" validate:"required,maxbytes=72"`
	ConfirmPassword string `form:"confirm_password" json:"-" validate:"required,eqfield=Password"`
}

// LoginForm is the raw input of the login form.
type LoginForm struct {
	Email      string `form:"email" json:"email" validate:"required,email"`
	Password   string `form:"password" json:"-" validate:"required"`
	RememberMe bool   `form:"-" json:"remember_me"`
}

// EntryForm is the raw input of the journal entry form.
type EntryForm struct {
	Title               string `form:"title" json:"title" validate:"required,max=100"`
	Date                string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	TimeSpent           string `form:"time_spent" json:"time_spent" validate:"required,number"`
	WhatYouLearned      string `form:"what_you_learned" json:"what_you_learned" validate:"required"`
	ResourcesToRemember string `form:"resources_to_remember" json:"resources_to_remember" validate:"required"`
	Tags                string `form:"tags" json:"tags" validate:"required"`
}

// EntryValues holds the typed values of a valid EntryForm.
type EntryValues struct {
	Date      time.Time
	TimeSpent int
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// bcrypt limits passwords by bytes, max counts characters
	_ = val.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return val
}

// Registration validates the registration form.
func Registration(f *RegistrationForm) FieldErrors {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

// Login validates the login form.
func Login(f *LoginForm) FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

// Entry validates the entry form and returns its typed values.
func Entry(f *EntryForm) (EntryValues, FieldErrors) {
	f.Title = strings.TrimSpace(f.Title)
	f.Date = strings.TrimSpace(f.Date)
	f.TimeSpent = strings.TrimSpace(f.TimeSpent)
	f.WhatYouLearned = strings.TrimSpace(f.WhatYouLearned)
	f.ResourcesToRemember = strings.TrimSpace(f.ResourcesToRemember)
	f.Tags = strings.TrimSpace(f.Tags)

	errs := check(f)

	var values EntryValues
	if !errs.Has("date") {
		d, err := time.Parse(DateLayout, f.Date)
		if err != nil {
			errs.Add("date", "Not a valid date value.")
		}
		values.Date = d
	}
	if !errs.Has("time_spent") {
		n, err := strconv.Atoi(f.TimeSpent)
		if err != nil {
			errs.Add("time_spent", "Not a valid integer value.")
		}
		values.TimeSpent = n
	}
	return values, errs
}

func check(s any) FieldErrors {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{Field: "form", Message: err.Error()}}
	}

	errs := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Field cannot be longer than %s bytes.", fe.Param())
	case "eqfield":
		return "Field must be equal to password."
	case "datetime":
		return "Not a valid date value."
	case "number":
		return "Not a valid integer value."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
