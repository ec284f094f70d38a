// Package auth signs and verifies session tokens.
//
// Tokens are HS256 JWTs carrying only the subject user id, the issuance time
// and a random token id. No expiry is embedded: the caller passes the TTL to
// Verify, so changing the lifetime policy applies to tokens already issued.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// KeyName selects the signing secret of a token class.
type KeyName string

const (
	KeyRefresh KeyName = "refresh"
	KeyAccess  KeyName = "access"
)

// Payload is what a verified token asserts.
type Payload struct {
	UserID   int64
	IssuedAt time.Time
}

// issuedAt is the iat claim at microsecond precision. jwt.NumericDate rounds
// to whole seconds by default, which would shorten a token's lifetime by up
// to a second.
type issuedAt struct {
	time.Time
}

func (d issuedAt) MarshalJSON() ([]byte, error) {
	us := d.UnixMicro()
	return []byte(fmt.Sprintf("%d.%06d", us/1e6, us%1e6)), nil
}

// UnmarshalJSON accepts integer and fractional seconds. Digits beyond
// microseconds are dropped.
func (d *issuedAt) UnmarshalJSON(b []byte) error {
	whole, frac, _ := strings.Cut(string(b), ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return fmt.Errorf("iat: %w", err)
	}
	var us int64
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		frac += strings.Repeat("0", 6-len(frac))
		if us, err = strconv.ParseInt(frac, 10, 64); err != nil || us < 0 {
			return fmt.Errorf("iat: bad fraction %q", frac)
		}
	}
	d.Time = time.UnixMicro(sec*1e6 + us).UTC()
	return nil
}

// claims shadows the registered iat with the precise one.
type claims struct {
	jwt.RegisteredClaims
	IssuedAt *issuedAt `json:"iat,omitempty"`
}

// TokenCodec issues and verifies tokens with one secret per class.
type TokenCodec struct {
	keys map[KeyName][]byte
	now  func() time.Time
}

func NewTokenCodec(refreshSecret, accessSecret []byte) *TokenCodec {
	return &TokenCodec{
		keys: map[KeyName][]byte{
			KeyRefresh: refreshSecret,
			KeyAccess:  accessSecret,
		},
		now: time.Now,
	}
}

// WithClock replaces the codec's time source.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

func (c *TokenCodec) key(name KeyName) ([]byte, error) {
	k, ok := c.keys[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownTokenKind, name)
	}
	return k, nil
}

func (c *TokenCodec) Issue(userID int64, name KeyName) (string, error) {
	secret, err := c.key(name)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(userID, 10),
			ID:      uuid.NewString(),
		},
		IssuedAt: &issuedAt{c.now().Truncate(time.Microsecond)},
	})

	return token.SignedString(secret)
}

// Verify checks the signature with the named key and rejects the token with
// common.ErrTokenExpired once issuedAt+ttl is not after the current time.
func (c *TokenCodec) Verify(tokenString string, name KeyName, ttl time.Duration) (*Payload, error) {
	secret, err := c.key(name)
	if err != nil {
		return nil, err
	}

	cl := &claims{}
	_, err = jwt.ParseWithClaims(tokenString, cl,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if cl.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", common.ErrInvalidToken)
	}
	userID, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", common.ErrInvalidToken)
	}

	iat := cl.IssuedAt.Time
	if !iat.Add(ttl).After(c.now()) {
		return nil, common.ErrTokenExpired
	}

	return &Payload{UserID: userID, IssuedAt: iat}, nil
}

// IsExpired reports whether err is a verification failure caused by age
// alone.
func IsExpired(err error) bool {
	return errors.Is(err, common.ErrTokenExpired)
}
