// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameInvalid = errors.New("username contains whitespace or a leading slash")
)

type Username string

type User struct {
	Name Username `json:"username"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(name string) (*User, error) {
	u, err := ParseUsername(name)
	if err != nil {
		return nil, err
	}
	return &User{Name: u}, nil
}

// ParseUsername trims and validates a username received from the wire.
func ParseUsername(raw string) (Username, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	if strings.ContainsAny(name, " \t\r\n") || strings.HasPrefix(name, "/") {
		return "", ErrUsernameInvalid
	}
	return Username(name), nil
}
