package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// SlugRegex validates a tenant subdomain: a DNS label of at most 50 chars
	slugRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,48}[a-z0-9])?$`)

	// PersonNameRegex allows letters, spaces, apostrophes and hyphens
	personNameRegex = regexp.MustCompile(`^[A-Za-z\s'-]+$`)

	// PhoneRegex requires exactly ten digits
	phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// NormalizeSlug trims and lowercases a requested subdomain.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// IsValidSlug checks a normalized slug against the subdomain rules and the
// reserved list.
func IsValidSlug(slug string, reserved []string) (bool, string) {
	if slug == "" {
		return false, "Subdomain is required"
	}
	if len(slug) > 50 {
		return false, "Subdomain must be at most 50 characters"
	}
	if !slugRegex.MatchString(slug) {
		return false, "Subdomain may only contain lowercase letters, digits and inner hyphens"
	}
	for _, r := range reserved {
		if strings.EqualFold(slug, r) {
			return false, "Subdomain is reserved"
		}
	}
	return true, ""
}

// IsValidPersonName validates a first or last name of 2 to 50 characters.
func IsValidPersonName(name string) (bool, string) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return false, "Must be at least 2 characters"
	}
	if len(name) > 50 {
		return false, "Must be at most 50 characters"
	}
	if !personNameRegex.MatchString(name) {
		return false, "May only contain letters, spaces, apostrophes and hyphens"
	}
	return true, ""
}

// IsValidClientName validates a full client name of 1 to 50 characters.
func IsValidClientName(name string) (bool, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, "Name is required"
	}
	if len(name) > 50 {
		return false, "Name must be at most 50 characters"
	}
	if !personNameRegex.MatchString(name) {
		return false, "Name may only contain letters, spaces, apostrophes and hyphens"
	}
	return true, ""
}

// IsValidPhone checks for a ten digit phone number.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(phone))
}

// IsValidDate checks a YYYY-MM-DD calendar date.
func IsValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates a string to maxLen characters
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
