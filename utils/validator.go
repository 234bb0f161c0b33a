package utils

import (
	"net/mail"
	"net/url"
	"strings"
)

// DeriveCourseCode builds the unique course key from its identifying fields:
// the uppercase concatenation of faculty, subject, number and credits, each
// trimmed of surrounding whitespace.
func DeriveCourseCode(faculty, subject, number, credits string) string {
	parts := []string{faculty, subject, number, credits}
	for i, p := range parts {
		parts[i] = strings.ToUpper(strings.TrimSpace(p))
	}
	return strings.Join(parts, "")
}

// ValidateEmail checks the address syntax. The address is returned lowercased
// and trimmed, ready for use as a verification identity key.
func ValidateEmail(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return "", ErrEmptyField
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return "", ErrInvalidEmail
	}
	return address, nil
}

// ValidateURL checks if the provided URL is well-formed and uses a web scheme
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrEmptyURL
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsedURL.Host == "" {
		return ErrEmptyHost
	}

	return nil
}
