// Package auth holds the per-session login state machine: Anonymous or
// Authenticated(email).
package auth

import (
	"fmt"

	"Ubermelon/internal/customer"
)

// Verifier checks a credential pair. *customer.Store implements it.
type Verifier interface {
	Verify(email, password string) (customer.Customer, error)
}

// AuthState is the login state carried in a session. A zero value is anonymous.
type AuthState struct {
	Email string `json:"email,omitempty"`
}

func Anonymous() AuthState { return AuthState{} }

func (a AuthState) Authenticated() bool { return a.Email != "" }

// Login returns Authenticated(email) on success. On failure the state is
// anonymous and the error wraps customer.ErrInvalidCredentials.
func Login(v Verifier, email, password string) (AuthState, error) {
	c, err := v.Verify(email, password)
	if err != nil {
		return Anonymous(), fmt.Errorf("login: %w", err)
	}
	return AuthState{Email: c.Email}, nil
}

// Logout never fails, including when already anonymous.
func Logout() AuthState { return Anonymous() }
