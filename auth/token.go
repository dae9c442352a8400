// Package auth issues and verifies the admin's stateless bearer tokens.
//
// A token is "<unixMillis>.<hex HMAC-SHA256(secret, unixMillis)>". Nothing is
// stored server-side; a token is valid until it is older than TokenTTL.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// TokenTTL is how long a token stays valid after it was issued.
const TokenTTL = 24 * time.Hour

var (
	ErrPasswordRequired   = errors.New("password required")
	ErrInvalidCredentials = errors.New("invalid password")
)

// Gate holds the configured password hash and signing secret.
type Gate struct {
	PasswordHash string // hex sha256 of the admin password
	Secret       []byte
	Now          func() time.Time
}

// NewGate returns a Gate using the wall clock.
func NewGate(passwordHash string, secret []byte) *Gate {
	return &Gate{
		PasswordHash: strings.ToLower(strings.TrimSpace(passwordHash)),
		Secret:       secret,
		Now:          time.Now,
	}
}

// HashPassword returns the hex sha256 digest stored as the reference hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IssueToken checks password and mints a token stamped with the current time.
func (g *Gate) IssueToken(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	got := HashPassword(password)
	if g.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(got), []byte(g.PasswordHash)) != 1 {
		return "", ErrInvalidCredentials
	}
	ts := strconv.FormatInt(g.now().UnixMilli(), 10)
	return ts + "." + g.sign(ts), nil
}

// Verify checks an Authorization header value of the form "Bearer <token>".
func (g *Gate) Verify(authHeader string) bool {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	return g.VerifyToken(token)
}

// VerifyToken checks a bare token. Only the upper age bound is enforced; a
// correctly signed timestamp from the future is accepted.
func (g *Gate) VerifyToken(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	issued, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}
	if g.now().UnixMilli()-issued > TokenTTL.Milliseconds() {
		return false
	}
	return hmac.Equal([]byte(parts[1]), []byte(g.sign(parts[0])))
}

func (g *Gate) sign(payload string) string {
	mac := hmac.New(sha256.New, g.Secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Gate) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}
