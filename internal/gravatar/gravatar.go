package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jon4hz/learnlog/internal/config"
)

const baseURL = "https://www.gravatar.com/avatar/"

var (
	validDefaultImages = []string{"404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"}
	validRatings       = []string{"g", "pg", "r", "x"}
)

// Resolver builds avatar URLs for user emails.
// A nil Resolver is valid and yields no avatars.
type Resolver struct {
	query string
}

// New checks cfg and returns a Resolver. It returns nil without error if gravatar is disabled.
func New(cfg *config.GravatarConfig) (*Resolver, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	params := url.Values{}
	if cfg.DefaultImage != "" {
		if !IsValidDefaultImage(cfg.DefaultImage) {
			return nil, fmt.Errorf("invalid gravatar default image %q", cfg.DefaultImage)
		}
		params.Add("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		if !IsValidRating(cfg.Rating) {
			return nil, fmt.Errorf("invalid gravatar rating %q", cfg.Rating)
		}
		params.Add("r", cfg.Rating)
	}
	if cfg.Size != 0 {
		if !IsValidSize(cfg.Size) {
			return nil, fmt.Errorf("invalid gravatar size %d", cfg.Size)
		}
		params.Add("s", strconv.Itoa(cfg.Size))
	}

	return &Resolver{query: params.Encode()}, nil
}

// URL returns the avatar URL for email, or "" if the resolver is nil or email is empty.
func (r *Resolver) URL(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if r == nil || email == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(email))
	u := baseURL + hex.EncodeToString(hash[:])
	if r.query != "" {
		u += "?" + r.query
	}
	return u
}

// IsValidDefaultImage checks if the provided default image value is valid for Gravatar.
func IsValidDefaultImage(defaultImage string) bool {
	return slices.Contains(validDefaultImages, defaultImage)
}

// IsValidRating checks if the provided rating value is valid for Gravatar.
func IsValidRating(rating string) bool {
	return slices.Contains(validRatings, rating)
}

// IsValidSize checks if the provided size value is valid for Gravatar (1-2048 pixels).
func IsValidSize(size int) bool {
	return size >= 1 && size <= 2048
}
