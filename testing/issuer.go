// Package testing provides a session issuer for tests of code that sits
// behind duekit's session middleware. It serves JWKS and mints role tokens
// that validate against it.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer()
//	defer issuer.Close()
//
//	r.Use(authgin.SessionMiddleware(issuer.Verifier()))
//	token := issuer.CreateSessionToken("user-123", permissions.RoleBCBA)
package testing

import (
	"context"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"time"

	jwtkit "github.com/PaulFidika/duekit/jwt"
	"github.com/PaulFidika/duekit/permissions"
	jwt "github.com/golang-jwt/jwt/v5"
)

// TestIssuer runs an HTTP server serving JWKS at /.well-known/jwks.json
// and signs session tokens with the matching key.
type TestIssuer struct {
	server *httptest.Server
	signer *jwtkit.RSASigner
}

// NewTestIssuer generates a fresh RSA key pair. Call Close when done.
func NewTestIssuer() *TestIssuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	ti := &TestIssuer{signer: signer}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		jwtkit.ServeJWKS(w, r, jwtkit.PublicJWKS(ti.KeySource()))
	})
	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the base URL of the test server; tokens use it as issuer.
func (ti *TestIssuer) URL() string { return ti.server.URL }

func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

// KeySource exposes the issuer's signing key.
func (ti *TestIssuer) KeySource() jwtkit.KeySource {
	return jwtkit.StaticKeySource{
		Active: ti.signer,
		Pubs:   map[string]*rsa.PublicKey{ti.signer.KID(): ti.signer.PublicKey()},
	}
}

// Verifier returns a verifier that accepts tokens from this issuer.
func (ti *TestIssuer) Verifier() *jwtkit.Verifier {
	v, err := jwtkit.NewVerifierFromSource(ti.URL(), ti.KeySource())
	if err != nil {
		panic("failed to build verifier: " + err.Error())
	}
	return v
}

// CreateSessionToken mints a one-hour session for userID acting as role.
func (ti *TestIssuer) CreateSessionToken(userID string, role permissions.Role) string {
	token, err := jwtkit.IssueSession(context.Background(), ti.signer, ti.URL(), userID, role, time.Hour)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateTokenWithClaims signs arbitrary claims over the standard sub/iss/iat/exp set.
func (ti *TestIssuer) CreateTokenWithClaims(userID string, extraClaims map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": ti.URL(),
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}
	token, err := ti.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateExpiredToken creates a session that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(userID string, role permissions.Role) string {
	return ti.CreateTokenWithClaims(userID, map[string]any{
		jwtkit.ClaimRole: string(role),
		"exp":            time.Now().Add(-time.Hour).Unix(),
	})
}
