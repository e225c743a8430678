// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/bunq/lib/secret"
)

// MaxSize bounds the uncompressed bundle. A state directory is a few
// kilobytes; the bound keeps a hostile header from forcing a large
// allocation.
const MaxSize = 16 << 20

const headerSize = 5

// Identity is an age X25519 key pair. The caller must Close it.
type Identity struct {
	// Secret holds the AGE-SECRET-KEY-1... string.
	Secret *secret.Buffer

	// Recipient is the age1... public half, safe to share.
	Recipient string
}

// Close releases the secret key memory.
func (identity *Identity) Close() error {
	if identity.Secret != nil {
		return identity.Secret.Close()
	}
	return nil
}

// GenerateIdentity creates a fresh age X25519 identity.
func GenerateIdentity() (*Identity, error) {
	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("bundle: generating identity: %w", err)
	}
	// The string form briefly lives on the heap; age offers no other
	// accessor.
	protected, err := secret.NewFromBytes([]byte(generated.String()))
	if err != nil {
		return nil, fmt.Errorf("bundle: protecting identity: %w", err)
	}
	return &Identity{Secret: protected, Recipient: generated.Recipient().String()}, nil
}

// ParseRecipients validates age1... recipient strings. Blank entries are
// skipped so a recipients file may contain empty lines.
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || strings.HasPrefix(key, "#") {
			continue
		}
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("bundle: parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("bundle: at least one recipient is required")
	}
	return recipients, nil
}

// Seal encrypts b to every recipient and returns base64 text.
func Seal(b *Bundle, recipientKeys []string, compression Compression) (string, error) {
	recipients, err := ParseRecipients(recipientKeys)
	if err != nil {
		return "", err
	}
	encoded, err := b.encode()
	if err != nil {
		return "", err
	}
	defer clear(encoded)
	if len(encoded) > MaxSize {
		return "", fmt.Errorf("bundle: encoded bundle is %d bytes, limit is %d", len(encoded), MaxSize)
	}

	payload, used, err := compress(encoded, compression)
	if err != nil {
		return "", err
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("bundle: creating encryptor: %w", err)
	}
	var header [headerSize]byte
	header[0] = byte(used)
	binary.BigEndian.PutUint32(header[1:], uint32(len(encoded)))
	if _, err := writer.Write(header[:]); err != nil {
		return "", fmt.Errorf("bundle: encrypting: %w", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return "", fmt.Errorf("bundle: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("bundle: finalizing encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Open decrypts text sealed by Seal using identity, which is borrowed
// and not closed. The caller should Wipe the bundle once its files are
// written out.
func Open(text string, identity *secret.Buffer) (*Bundle, error) {
	parsed, err := age.ParseX25519Identity(strings.TrimSpace(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("bundle: parsing identity: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return nil, fmt.Errorf("bundle: decoding base64: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), parsed)
	if err != nil {
		return nil, fmt.Errorf("bundle: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(io.LimitReader(reader, MaxSize+headerSize+1))
	if err != nil {
		return nil, fmt.Errorf("bundle: decrypting: %w", err)
	}
	defer clear(plaintext)
	if len(plaintext) < headerSize {
		return nil, fmt.Errorf("bundle: sealed payload is truncated")
	}

	size := int(binary.BigEndian.Uint32(plaintext[1:headerSize]))
	if size > MaxSize {
		return nil, fmt.Errorf("bundle: declared size %d exceeds limit %d", size, MaxSize)
	}
	encoded, err := decompress(plaintext[headerSize:], Compression(plaintext[0]), size)
	if err != nil {
		return nil, err
	}
	defer clear(encoded)
	return decode(encoded)
}
