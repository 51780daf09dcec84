package customer

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	fieldSep   = "|"
	fieldCount = 4

	maxBcryptInput = 72
)

type MalformedRecordError struct {
	Source string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: malformed customer record: %s: %v", e.Source, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s:%d: malformed customer record: %s", e.Source, e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

type loadOptions struct {
	cost int
}

type Option func(*loadOptions)

// WithBcryptCost sets the cost used to hash plaintext passwords at load time.
func WithBcryptCost(cost int) Option {
	return func(o *loadOptions) { o.cost = cost }
}

func LoadFile(path string, log *zap.Logger, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open customers: %w", err)
	}
	defer f.Close()

	return Parse(f, path, log, opts...)
}

// Parse reads first_name|last_name|email|password lines. Passwords that are
// already bcrypt hashes are kept as is; anything else is hashed here so no
// plaintext outlives the load.
func Parse(r io.Reader, source string, log *zap.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := loadOptions{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{byEmail: make(map[string]Customer)}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, fieldSep)
		if len(fields) != fieldCount {
			return nil, &MalformedRecordError{
				Source: source,
				Line:   lineNo,
				Reason: fmt.Sprintf("got %d fields, want %d", len(fields), fieldCount),
			}
		}

		email := normalizeEmail(fields[2])
		password := fields[3]
		if email == "" || password == "" {
			return nil, &MalformedRecordError{Source: source, Line: lineNo, Reason: "email and password required"}
		}

		hash, err := passwordHash(password, o.cost)
		if err != nil {
			return nil, &MalformedRecordError{Source: source, Line: lineNo, Reason: "hash password", Err: err}
		}

		if _, dup := s.byEmail[email]; dup {
			log.Warn("customer record replaced",
				zap.String("email", email),
				zap.String("source", source),
				zap.Int("line", lineNo),
			)
		}
		s.byEmail[email] = Customer{
			FirstName: strings.TrimSpace(fields[0]),
			LastName:  strings.TrimSpace(fields[1]),
			Email:     email,
			Hash:      hash,
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read customers %s: %w", source, err)
	}

	log.Info("customers loaded", zap.String("source", source), zap.Int("customers", s.Len()))
	return s, nil
}

func passwordHash(password string, cost int) ([]byte, error) {
	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		return []byte(password), nil
	}
	return bcrypt.GenerateFromPassword(bcryptInput(password), cost)
}

// bcryptInput folds passwords longer than bcrypt accepts into a fixed-size
// digest. Shorter passwords are passed through so plain file hashes keep working.
func bcryptInput(password string) []byte {
	if len(password) <= maxBcryptInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
