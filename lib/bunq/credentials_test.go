// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"errors"
	"fmt"
	"testing"
)

func TestCredentials_DerivationsDoNotMutate(t *testing.T) {
	base := freshCredentials(t)

	withToken := base.WithToken("installation-token")
	withKey := withToken.WithServerPublicKey(&serverKey.PublicKey)
	session := withKey.WithToken("session-token")

	if base.Token() != "" || base.ServerPublicKey() != nil {
		t.Error("base credentials changed by derivation")
	}
	if withToken.Token() != "installation-token" || withToken.ServerPublicKey() != nil {
		t.Error("WithServerPublicKey changed its receiver")
	}
	if withKey.Token() != "installation-token" {
		t.Error("WithToken changed its receiver")
	}
	if session.Token() != "session-token" || session.ServerPublicKey() == nil {
		t.Errorf("session credentials = token %q, server key %v", session.Token(), session.ServerPublicKey())
	}
	if session.PrivateKey() != clientKey || session.PublicKeyPEM() != base.PublicKeyPEM() {
		t.Error("derivations lost the key pair")
	}
}

func TestNewCredentials_Rejects(t *testing.T) {
	if _, err := NewCredentials(nil, "pem"); err == nil {
		t.Error("expected error for nil private key")
	}
	if _, err := NewCredentials(clientKey, ""); err == nil {
		t.Error("expected error for empty public key PEM")
	}
}

func TestErrorPredicates_ThroughWrapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"unsupported method", &UnsupportedMethodError{Operation: "user", Method: "POST"}, IsUnsupportedMethod},
		{"missing parameter", &MissingParameterError{Operation: "monetary-account", Parameter: "user id"}, IsMissingParameter},
		{"verification", &VerificationError{StatusCode: 200}, IsVerificationFailure},
		{"api error", &APIError{StatusCode: 400}, IsAPIError},
		{"not found", &APIError{StatusCode: 404}, IsNotFound},
		{"unauthorized", &APIError{StatusCode: 401}, IsUnauthorized},
		{"forbidden", &APIError{StatusCode: 403}, IsUnauthorized},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", test.err)
			if !test.predicate(wrapped) {
				t.Errorf("predicate false for wrapped %v", test.err)
			}
			if test.predicate(errors.New("plain")) {
				t.Error("predicate true for an unrelated error")
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&UnsupportedMethodError{Operation: "monetary-account", Method: "POST", Allowed: []string{"GET"}},
			`bunq: monetary-account does not support method "POST" (allowed: GET)`},
		{&MissingParameterError{Operation: "monetary-account", Parameter: "user id"},
			"bunq: monetary-account requires user id"},
		{&APIError{Descriptions: []string{"a", "b"}}, "bunq: API error: a; b"},
		{&APIError{StatusCode: 500}, "bunq: HTTP 500: no error description"},
		{&DecodeError{Index: 2, Kind: "Token", Reason: "bad"}, "bunq: decoding response entity 2 (Token): bad"},
		{&DecodeError{Index: -1, Reason: "bad"}, "bunq: decoding response: bad"},
	}
	for _, test := range tests {
		if got := test.err.Error(); got != test.want {
			t.Errorf("Error() = %q, want %q", got, test.want)
		}
	}
}
