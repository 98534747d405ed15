package auth

import "strings"

// Flash categories.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown after a redirect.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// flashes are stored as "category|message" strings so the cookie codec needs no registered types
func (f Flash) encode() string {
	return f.Category + "|" + f.Message
}

func decodeFlash(s string) Flash {
	category, message, ok := strings.Cut(s, "|")
	if !ok {
		return Flash{Message: s}
	}
	return Flash{Category: category, Message: message}
}
