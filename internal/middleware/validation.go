package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidateChannelID validates a platform channel id taken from a URL.
func ValidateChannelID(id string) error {
	return validateID("channel ID", id)
}

// ValidateActorID validates a platform user id taken from a query string.
func ValidateActorID(id string) error {
	return validateID("actor ID", id)
}

func validateID(name, id string) error {
	if len(id) == 0 {
		return errors.New(name + " cannot be empty")
	}
	if len(id) > 64 {
		return errors.New(name + " exceeds maximum length")
	}
	if !utf8.ValidString(id) || strings.ContainsAny(id, " \t\r\n/.*>") {
		return errors.New("invalid " + name + " format")
	}
	return nil
}
