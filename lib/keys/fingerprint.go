// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// fingerprintKey is the BLAKE3 key for public key fingerprints. The
// keyed mode gives domain separation from any other BLAKE3 digest of
// the same DER bytes.
var fingerprintKey = [32]byte{
	'b', 'u', 'n', 'q', '.', 'k', 'e', 'y', 's', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', '.', 'v', '1',
}

// FingerprintSize is the digest length in bytes. The hex form is twice
// as long.
const FingerprintSize = 16

// Fingerprint returns a short hex identifier for publicKey, computed
// over its SPKI DER encoding. Two files holding the same key (one
// sealed, one plain) have the same fingerprint.
func Fingerprint(publicKey *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("keys: marshaling public key for fingerprint: %w", err)
	}
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("keys: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(der)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:FingerprintSize]), nil
}

// FingerprintPEM parses a public key PEM and fingerprints it.
func FingerprintPEM(data []byte) (string, error) {
	publicKey, err := ParsePublicKey(data)
	if err != nil {
		return "", err
	}
	return Fingerprint(publicKey)
}
