// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// MinimumBits is the smallest RSA modulus the bunq API accepts for a
// client key.
const MinimumBits = 2048

// PEM block types.
const (
	blockPrivateKey       = "PRIVATE KEY"
	blockRSAPrivateKey    = "RSA PRIVATE KEY"
	blockPublicKey        = "PUBLIC KEY"
	blockRSAPublicKey     = "RSA PUBLIC KEY"
	blockSealedPrivateKey = "BUNQ ENCRYPTED PRIVATE KEY"
)

// ErrWrongPassphrase is returned when a protected private key cannot
// be opened with the supplied passphrase.
var ErrWrongPassphrase = errors.New("keys: wrong passphrase or corrupted key")

// rsaGenerateKey is swapped out in tests to exercise failure paths.
var rsaGenerateKey = rsa.GenerateKey

// Pair is a client credential pair. The public PEM is what the server
// sees; the fingerprint identifies the pair in logs and state files.
type Pair struct {
	Private     *rsa.PrivateKey
	PublicPEM   string
	Fingerprint string
}

// Generate creates a new RSA credential pair.
func Generate(bits int) (*Pair, error) {
	if bits < MinimumBits {
		return nil, fmt.Errorf("keys: RSA key size %d bits is too small (minimum %d)", bits, MinimumBits)
	}
	privateKey, err := rsaGenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("keys: generating RSA key: %w", err)
	}
	return NewPair(privateKey)
}

// NewPair derives the public half and fingerprint for an existing
// private key.
func NewPair(privateKey *rsa.PrivateKey) (*Pair, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("keys: private key is nil")
	}
	publicPEM, err := EncodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	fingerprint, err := Fingerprint(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Pair{
		Private:     privateKey,
		PublicPEM:   publicPEM,
		Fingerprint: fingerprint,
	}, nil
}

// EncodePublicKey returns the SPKI PEM encoding of publicKey.
func EncodePublicKey(publicKey *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("keys: marshaling public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: blockPublicKey, Bytes: der})), nil
}

// ParsePublicKey parses an RSA public key from SPKI ("PUBLIC KEY") or
// PKCS#1 ("RSA PUBLIC KEY") PEM. The server public key returned at
// installation uses the SPKI form.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("keys: no PEM block in public key data")
	}

	switch block.Type {
	case blockPublicKey:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parsing public key: %w", err)
		}
		publicKey, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("keys: public key is %T, not RSA", parsed)
		}
		return publicKey, nil
	case blockRSAPublicKey:
		publicKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parsing PKCS#1 public key: %w", err)
		}
		return publicKey, nil
	default:
		return nil, fmt.Errorf("keys: unsupported public key PEM type %q", block.Type)
	}
}

// EncodePrivateKey encodes privateKey as PEM. With an empty passphrase
// the result is a plain PKCS#8 block; otherwise the key is sealed (see
// package documentation).
func EncodePrivateKey(privateKey *rsa.PrivateKey, passphrase []byte) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("keys: marshaling private key: %w", err)
	}
	if len(passphrase) == 0 {
		return pem.EncodeToMemory(&pem.Block{Type: blockPrivateKey, Bytes: der}), nil
	}

	block, err := seal(der, passphrase)
	clear(der)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(block), nil
}

// ParsePrivateKey parses an RSA private key PEM. The passphrase is
// required for sealed and RFC 1423 encrypted blocks and ignored for
// plain ones.
func ParsePrivateKey(data, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("keys: no PEM block in private key data")
	}

	der := block.Bytes
	switch {
	case block.Type == blockSealedPrivateKey:
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("keys: private key is passphrase-protected and no passphrase was given")
		}
		opened, err := open(block, passphrase)
		if err != nil {
			return nil, err
		}
		defer clear(opened)
		der = opened

	//nolint:staticcheck // RFC 1423 blocks exist in the wild; reading them is still supported.
	case x509.IsEncryptedPEMBlock(block):
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("keys: private key is encrypted and no passphrase was given")
		}
		//nolint:staticcheck // see above
		decrypted, err := x509.DecryptPEMBlock(block, passphrase)
		if err != nil {
			if errors.Is(err, x509.IncorrectPasswordError) {
				return nil, ErrWrongPassphrase
			}
			return nil, fmt.Errorf("keys: decrypting legacy PEM: %w", err)
		}
		defer clear(decrypted)
		der = decrypted
	}

	return parsePrivateDER(der)
}

// parsePrivateDER tries PKCS#8 first (what node-rsa and openssl emit
// today), then PKCS#1.
func parsePrivateDER(der []byte) (*rsa.PrivateKey, error) {
	if parsed, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		privateKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("keys: private key is %T, not RSA", parsed)
		}
		return privateKey, nil
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("keys: private key is neither PKCS#8 nor PKCS#1: %w", err)
	}
	return privateKey, nil
}

// IsProtected reports whether the private key PEM in data needs a
// passphrase to parse.
func IsProtected(data []byte) bool {
	block, _ := pem.Decode(data)
	if block == nil {
		return false
	}
	//nolint:staticcheck // RFC 1423 detection only
	return block.Type == blockSealedPrivateKey || x509.IsEncryptedPEMBlock(block)
}
