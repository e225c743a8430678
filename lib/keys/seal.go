// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/bureau-foundation/bunq/lib/secret"
)

// sealVersion is bound into the AEAD additional data. Bumping it makes
// every existing sealed key unreadable, which is the point.
const sealVersion = "1"

// scrypt parameters for newly sealed keys. Tests lower scryptN to keep
// the suite fast; the parameters used are recorded in the PEM headers.
var (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

const saltSize = 16

// PEM header names on a sealed private key block.
const (
	headerVersion = "Version"
	headerKDF     = "Kdf"
	headerSalt    = "Salt"
	headerN       = "N"
	headerR       = "R"
	headerP       = "P"
)

// seal encrypts PKCS#8 DER under passphrase and returns the PEM block.
// The block bytes are nonce || ciphertext || tag.
func seal(der, passphrase []byte) (*pem.Block, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("keys: generating salt: %w", err)
	}

	block := &pem.Block{
		Type: blockSealedPrivateKey,
		Headers: map[string]string{
			headerVersion: sealVersion,
			headerKDF:     "scrypt",
			headerSalt:    base64.StdEncoding.EncodeToString(salt),
			headerN:       strconv.Itoa(scryptN),
			headerR:       strconv.Itoa(scryptR),
			headerP:       strconv.Itoa(scryptP),
		},
	}

	key, err := deriveKey(passphrase, salt, scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("keys: creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("keys: generating nonce: %w", err)
	}
	output := make([]byte, len(nonce), len(nonce)+len(der)+aead.Overhead())
	copy(output, nonce[:])
	block.Bytes = aead.Seal(output, nonce[:], der, additionalData(block))
	return block, nil
}

// open reverses seal. Authentication failure (wrong passphrase or a
// modified header or body) returns ErrWrongPassphrase.
func open(block *pem.Block, passphrase []byte) ([]byte, error) {
	if version := block.Headers[headerVersion]; version != sealVersion {
		return nil, fmt.Errorf("keys: unsupported sealed key version %q", version)
	}
	if kdf := block.Headers[headerKDF]; kdf != "scrypt" {
		return nil, fmt.Errorf("keys: unsupported key derivation %q", kdf)
	}
	salt, err := base64.StdEncoding.DecodeString(block.Headers[headerSalt])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("keys: sealed key has an invalid salt")
	}
	n, err := headerInt(block, headerN)
	if err != nil {
		return nil, err
	}
	r, err := headerInt(block, headerR)
	if err != nil {
		return nil, err
	}
	p, err := headerInt(block, headerP)
	if err != nil {
		return nil, err
	}

	if len(block.Bytes) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("keys: sealed key is truncated (%d bytes)", len(block.Bytes))
	}

	key, err := deriveKey(passphrase, salt, n, r, p)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("keys: creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := block.Bytes[:chacha20poly1305.NonceSizeX]
	ciphertext := block.Bytes[chacha20poly1305.NonceSizeX:]
	der, err := aead.Open(nil, nonce, ciphertext, additionalData(block))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return der, nil
}

// deriveKey runs scrypt and moves the result into a locked buffer.
func deriveKey(passphrase, salt []byte, n, r, p int) (*secret.Buffer, error) {
	derived, err := scrypt.Key(passphrase, salt, n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("keys: deriving key from passphrase: %w", err)
	}
	key, err := secret.NewFromBytes(derived)
	if err != nil {
		clear(derived)
		return nil, fmt.Errorf("keys: protecting derived key: %w", err)
	}
	return key, nil
}

// additionalData authenticates every header that influences
// decryption, so a file cannot be downgraded to weaker parameters.
func additionalData(block *pem.Block) []byte {
	return []byte(block.Type + "\x00" +
		block.Headers[headerVersion] + "\x00" +
		block.Headers[headerKDF] + "\x00" +
		block.Headers[headerSalt] + "\x00" +
		block.Headers[headerN] + "\x00" +
		block.Headers[headerR] + "\x00" +
		block.Headers[headerP])
}

func headerInt(block *pem.Block, name string) (int, error) {
	value, err := strconv.Atoi(block.Headers[name])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("keys: sealed key has an invalid %s parameter %q", name, block.Headers[name])
	}
	return value, nil
}
