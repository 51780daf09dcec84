package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "ubermelon-shop"

var ErrInvalidToken = errors.New("invalid session token")

// Codec signs session snapshots into HS256 tokens and verifies them back.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

type claims struct {
	Data Session `json:"data"`
	jwt.RegisteredClaims
}

// Encode signs s. A session without an id is given a fresh one.
func (c *Codec) Encode(s Session) (string, Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := c.now()

	cl := claims{
		Data: s,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", Session{}, err
	}
	return tok, s, nil
}

func (c *Codec) Decode(token string) (Session, error) {
	var cl claims

	_, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Session{}, errors.Join(ErrInvalidToken, err)
	}

	s := cl.Data
	s.ID = cl.ID
	return s, nil
}
