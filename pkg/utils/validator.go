package utils

import (
	"fmt"
	"net/url"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidatePasswordHash checks that hash is a bcrypt hash
func ValidatePasswordHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("invalid bcrypt hash: %w", err)
	}
	return nil
}

// ValidateBaseURL validates an absolute http(s) URL used to build public links
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url must be http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base url has no host: %s", raw)
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
