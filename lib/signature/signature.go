// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// VendorPrefix marks bunq protocol headers. Every request header with
// this prefix is covered by the request signature.
const VendorPrefix = "X-Bunq-"

// Header names used on the wire, in canonical MIME form.
const (
	HeaderCacheControl         = "Cache-Control"
	HeaderUserAgent            = "User-Agent"
	HeaderLanguage             = "X-Bunq-Language"
	HeaderRegion               = "X-Bunq-Region"
	HeaderGeolocation          = "X-Bunq-Geolocation"
	HeaderClientRequestID      = "X-Bunq-Client-Request-Id"
	HeaderClientResponseID     = "X-Bunq-Client-Response-Id"
	HeaderClientAuthentication = "X-Bunq-Client-Authentication"
	HeaderClientSignature      = "X-Bunq-Client-Signature"
	HeaderServerSignature      = "X-Bunq-Server-Signature"
)

// Signable reports whether a request header participates in the
// request signature. The signature header is excluded: it carries the
// output of signing and cannot be part of its own input.
func Signable(key string) bool {
	if key == HeaderClientSignature {
		return false
	}
	return strings.HasPrefix(key, VendorPrefix) ||
		key == HeaderCacheControl ||
		key == HeaderUserAgent
}

// RequestString builds the canonical string signed for an outgoing
// request. The result depends only on the method, the URI, the
// signable headers and the body; header insertion order and
// non-signable headers have no effect.
func RequestString(method, uri string, headers map[string]string, body []byte) []byte {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		if Signable(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var buffer bytes.Buffer
	buffer.WriteString(method)
	buffer.WriteByte(' ')
	buffer.WriteString(uri)
	buffer.WriteByte('\n')
	for _, key := range keys {
		buffer.WriteString(key)
		buffer.WriteString(": ")
		buffer.WriteString(headers[key])
		buffer.WriteByte('\n')
	}
	buffer.WriteByte('\n')
	buffer.Write(body)
	return buffer.Bytes()
}

// ResponseString builds the canonical string a server signs for a
// response. Only the status code, the two id headers and the body are
// covered.
func ResponseString(statusCode int, requestID, responseID string, body []byte) []byte {
	var buffer bytes.Buffer
	buffer.WriteString(strconv.Itoa(statusCode))
	buffer.WriteByte('\n')
	buffer.WriteString(HeaderClientRequestID + ": " + requestID + "\n")
	buffer.WriteString(HeaderClientResponseID + ": " + responseID + "\n")
	buffer.WriteByte('\n')
	buffer.Write(body)
	return buffer.Bytes()
}

// SignRequest signs the canonical request string and returns the
// base64 value for the X-Bunq-Client-Signature header.
func SignRequest(privateKey *rsa.PrivateKey, method, uri string, headers map[string]string, body []byte) (string, error) {
	raw, err := Sign(privateKey, RequestString(method, uri, headers, body))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// VerifyResponse checks the X-Bunq-Server-Signature header of a
// response against serverKey. It returns false for a missing,
// undecodable or mismatching signature and never fails otherwise; the
// caller decides how to escalate a false result.
func VerifyResponse(serverKey *rsa.PublicKey, statusCode int, header http.Header, body []byte) bool {
	encoded := header.Get(HeaderServerSignature)
	if encoded == "" || serverKey == nil {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	message := ResponseString(statusCode,
		header.Get(HeaderClientRequestID),
		header.Get(HeaderClientResponseID),
		body)
	return Verify(serverKey, message, raw) == nil
}

// SignResponse produces the server side of the response protocol.
// Production clients never call it; it exists so fake servers in tests
// and local tooling can emit responses that VerifyResponse accepts.
func SignResponse(privateKey *rsa.PrivateKey, statusCode int, requestID, responseID string, body []byte) (string, error) {
	raw, err := Sign(privateKey, ResponseString(statusCode, requestID, responseID, body))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// VerifyRequest checks a base64 request signature against the public
// key registered at installation. This is what the server does with
// X-Bunq-Client-Signature.
func VerifyRequest(publicKey *rsa.PublicKey, encoded, method, uri string, headers map[string]string, body []byte) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("signature: decoding request signature: %w", err)
	}
	return Verify(publicKey, RequestString(method, uri, headers, body), raw)
}

// Sign computes an RSASSA-PKCS1-v1_5 SHA-256 signature over message.
func Sign(privateKey *rsa.PrivateKey, message []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("signature: no private key")
	}
	hash := sha256.Sum256(message)
	raw, err := rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return nil, fmt.Errorf("signature: signing: %w", err)
	}
	return raw, nil
}

// Verify checks an RSASSA-PKCS1-v1_5 SHA-256 signature over message.
func Verify(publicKey *rsa.PublicKey, message, raw []byte) error {
	if publicKey == nil {
		return fmt.Errorf("signature: no public key")
	}
	hash := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, hash[:], raw); err != nil {
		return fmt.Errorf("signature: verification failed: %w", err)
	}
	return nil
}

// FlattenHeader converts an http.Header into the single-valued mapping
// the canonicalizer works on. Multi-valued headers keep their first
// value, matching http.Header.Get.
func FlattenHeader(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) > 0 {
			flat[key] = values[0]
		}
	}
	return flat
}
