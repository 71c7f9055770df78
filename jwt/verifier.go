package jwtkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulFidika/duekit/permissions"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	ErrMissingKeySet = errors.New("jwt: missing key set")
	ErrInvalidRole   = errors.New("jwt: session role is not recognised")
)

// Verifier validates session tokens signed by a KeySource.
type Verifier struct {
	issuer string
	keySet jwk.Set
}

func NewVerifier(issuer string, keySet jwk.Set) *Verifier {
	return &Verifier{issuer: issuer, keySet: keySet}
}

// NewVerifierFromSource builds a Verifier over every public key of ks.
func NewVerifierFromSource(issuer string, ks KeySource) (*Verifier, error) {
	set, err := KeySet(ks.PublicKeys())
	if err != nil {
		return nil, err
	}
	return NewVerifier(issuer, set), nil
}

// Verify checks signature, expiry and issuer, then extracts the session.
func (v *Verifier) Verify(ctx context.Context, raw string) (SessionClaims, error) {
	if v == nil || v.keySet == nil {
		return SessionClaims{}, ErrMissingKeySet
	}
	opts := []jwt.ParseOption{
		jwt.WithKeySet(v.keySet),
		jwt.WithValidate(true),
		jwt.WithContext(ctx),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseString(raw, opts...)
	if err != nil {
		return SessionClaims{}, err
	}
	if token.Subject() == "" {
		return SessionClaims{}, errors.New("jwt: missing subject")
	}
	rawRole, _ := token.Get(ClaimRole)
	s, _ := rawRole.(string)
	role := permissions.Role(s)
	if !role.Valid() {
		return SessionClaims{}, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return SessionClaims{UserID: token.Subject(), Role: role}, nil
}
