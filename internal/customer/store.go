package customer

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("customer not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Hash      []byte `json:"-"`
}

// Store is an immutable, email-keyed snapshot of the customer file.
type Store struct {
	byEmail map[string]Customer
}

func (s *Store) GetByEmail(email string) (Customer, error) {
	c, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return Customer{}, fmt.Errorf("customer %q: %w", email, ErrNotFound)
	}
	return c, nil
}

// Verify returns the customer when password matches. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Store) Verify(email, password string) (Customer, error) {
	c, err := s.GetByEmail(email)
	if err != nil {
		return Customer{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.Hash, bcryptInput(password)); err != nil {
		return Customer{}, ErrInvalidCredentials
	}
	return c, nil
}

func (s *Store) Len() int { return len(s.byEmail) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
