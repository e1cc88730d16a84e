package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrWrongPassword   = errors.New("wrong admin password")
	ErrNoAdminPassword = errors.New("an admin password or password hash is required")
)

// AdminGate checks the shared administrator password.
type AdminGate struct {
	hash []byte
}

// NewAdminGate creates an AdminGate from a bcrypt hash, or from a plain
// password that is hashed once at startup. The hash wins when both are set.
func NewAdminGate(password, passwordHash string) (*AdminGate, error) {
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		return &AdminGate{hash: []byte(passwordHash)}, nil
	}
	if password == "" {
		return nil, ErrNoAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &AdminGate{hash: hash}, nil
}

// Check returns ErrWrongPassword unless password matches.
func (g *AdminGate) Check(password string) error {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
