// Package session keeps a shopper's cart, login and flash messages in a signed
// cookie. Handlers load a snapshot, derive a new one and save it back; nothing
// about a session lives in server memory.
package session

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"Ubermelon/internal/auth"
	"Ubermelon/internal/cart"
)

const DefaultCookieName = "ubermelon_session"

// maxFlashes bounds the flash queue; the session cookie must fit in 4 KB even
// when a client never renders a page.
const maxFlashes = 5

type Session struct {
	ID      string         `json:"-"`
	Cart    cart.Cart      `json:"cart,omitempty"`
	Auth    auth.AuthState `json:"auth"`
	Flashes []string       `json:"flashes,omitempty"`
}

// WithFlash queues a one-shot message for the next rendered page. Only the
// newest maxFlashes messages are kept.
func (s Session) WithFlash(msg string) Session {
	flashes := append(slices.Clone(s.Flashes), msg)
	if n := len(flashes); n > maxFlashes {
		flashes = flashes[n-maxFlashes:]
	}
	s.Flashes = flashes
	return s
}

// TakeFlashes returns the queued messages and a session without them.
func (s Session) TakeFlashes() (Session, []string) {
	msgs := s.Flashes
	s.Flashes = nil
	if msgs == nil {
		msgs = []string{}
	}
	return s, msgs
}

type Store struct {
	Codec      *Codec
	CookieName string
	Secure     bool
	Log        *zap.Logger
}

// Load decodes the request's session. A missing, tampered or expired cookie
// yields an empty session.
func (st *Store) Load(r *http.Request) Session {
	ck, err := r.Cookie(st.cookieName())
	if err != nil {
		return Session{}
	}
	s, err := st.Codec.Decode(ck.Value)
	if err != nil {
		if st.Log != nil {
			st.Log.Debug("session cookie rejected", zap.Error(err))
		}
		return Session{}
	}
	return s
}

// Save must run before the response header is written.
func (st *Store) Save(w http.ResponseWriter, s Session) (Session, error) {
	tok, s, err := st.Codec.Encode(s)
	if err != nil {
		return s, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName(),
		Value:    tok,
		Path:     "/",
		MaxAge:   int(st.Codec.ttl.Seconds()),
		HttpOnly: true,
		Secure:   st.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Clear expires the cookie, ending the session and its cart.
func (st *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   st.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (st *Store) cookieName() string {
	if st.CookieName == "" {
		return DefaultCookieName
	}
	return st.CookieName
}
