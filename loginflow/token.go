package loginflow

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/spearfish/auth-gateway/directory"
)

// TokenSigner mints HS256 access tokens for mock sessions so token
// handling downstream stays uniform across backends.
type TokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret []byte, issuer string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (ts *TokenSigner) Sign(user *directory.User) (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"email":     user.Email,
		"roles":     user.Roles,
		"tenant_id": user.PrimaryTenantID,
		"iss":       ts.issuer,
		"iat":       now.Unix(),
		"exp":       now.Add(ts.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", errors.Wrap(err, "[TokenSigner.Sign] SignedString")
	}
	return signed, nil
}

// Verify parses and validates a token this signer minted.
func (ts *TokenSigner) Verify(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return ts.secret, nil
	}, jwt.WithIssuer(ts.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(err, "[TokenSigner.Verify] ParseWithClaims")
	}
	return claims, nil
}
