package jwtkit

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// KeySource provides the active signer and public keys for JWKS.
type KeySource interface {
	ActiveSigner() Signer
	PublicKeys() map[string]*rsa.PublicKey
}

// StaticKeySource is a simple in-memory implementation.
type StaticKeySource struct {
	Active Signer
	Pubs   map[string]*rsa.PublicKey
}

func (s StaticKeySource) ActiveSigner() Signer                  { return s.Active }
func (s StaticKeySource) PublicKeys() map[string]*rsa.PublicKey { return s.Pubs }

// DefaultKeysDir holds the persisted session signing key when none is configured.
const DefaultKeysDir = ".runtime/duekit"

const (
	privateKeyFile = "private.pem"
	keyIDFile      = "kid"
)

// GeneratedKeySource reuses the key in its directory, or generates one and
// persists it there so tokens survive restarts.
type GeneratedKeySource struct {
	signer *RSASigner
	pubs   map[string]*rsa.PublicKey
}

// NewGeneratedKeySource loads or creates the signing key under dir.
// A failure to persist a fresh key is logged and the in-memory key is used.
func NewGeneratedKeySource(dir string, log logrus.FieldLogger) (*GeneratedKeySource, error) {
	if dir == "" {
		dir = DefaultKeysDir
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if signer, err := loadKeyFromDir(dir); err == nil {
		log.WithField("kid", signer.KID()).Info("loaded session signing key")
		return newGenerated(signer), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load session key from %s: %w", dir, err)
	}

	kid := fmt.Sprintf("duekit-%d", time.Now().Unix())
	signer, err := NewRSASigner(2048, kid)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	if err := persistKeyToDir(dir, signer); err != nil {
		log.WithError(err).Warn("failed to persist session signing key")
	} else {
		log.WithFields(logrus.Fields{"kid": kid, "dir": dir}).Info("generated session signing key")
	}
	return newGenerated(signer), nil
}

func newGenerated(s *RSASigner) *GeneratedKeySource {
	return &GeneratedKeySource{signer: s, pubs: map[string]*rsa.PublicKey{s.KID(): s.PublicKey()}}
}

func (g *GeneratedKeySource) ActiveSigner() Signer                  { return g.signer }
func (g *GeneratedKeySource) PublicKeys() map[string]*rsa.PublicKey { return g.pubs }

func loadKeyFromDir(dir string) (*RSASigner, error) {
	pemBytes, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, err
	}
	kid := "duekit"
	if b, err := os.ReadFile(filepath.Join(dir, keyIDFile)); err == nil {
		if k := strings.TrimSpace(string(b)); k != "" {
			kid = k
		}
	}
	return NewRSASignerFromPEM(kid, pemBytes)
}

func persistKeyToDir(dir string, signer *RSASigner) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create keys directory: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(signer.PrivateKey()),
	})
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyIDFile), []byte(signer.KID()), 0o600); err != nil {
		return fmt.Errorf("write key ID: %w", err)
	}
	return nil
}
