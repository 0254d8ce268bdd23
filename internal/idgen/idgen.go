// Package idgen generates short, URL-safe request identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RequestPrefix is prepended to every generated request ID.
const RequestPrefix = "pl-"

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// MaxLength bounds caller-supplied request IDs accepted by Valid.
const MaxLength = 64

// RequestID returns a new request ID such as "pl-4fZq0cXk2LbR".
func RequestID() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return RequestPrefix + id, nil
}

// Valid reports whether a caller-supplied request ID is safe to echo in
// headers, logs and events: 1 to MaxLength characters of [A-Za-z0-9._-].
func Valid(id string) bool {
	if id == "" || len(id) > MaxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
