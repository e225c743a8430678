// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/bureau-foundation/bunq/lib/testutil"
)

var (
	clientKey = testutil.RSAKey("client")
	serverKey = testutil.RSAKey("server")
)

func mustPublicPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	return testutil.PublicPEM(t, key)
}

// testCredentials returns credentials for clientKey with the server key
// already known, as after installation.
func testCredentials(t *testing.T) Credentials {
	t.Helper()
	credentials, err := NewCredentials(clientKey, mustPublicPEM(t, clientKey))
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	return credentials.WithServerPublicKey(&serverKey.PublicKey)
}

type fakeBunq struct {
	*testutil.FakeBunq
}

func newFakeBunq(t *testing.T) *fakeBunq {
	t.Helper()
	fake := testutil.NewFakeBunq(t, serverKey)
	fake.TrustClientKey(&clientKey.PublicKey)
	return &fakeBunq{fake}
}

func (fake *fakeBunq) client(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    fake.URL(),
		HTTPClient: fake.HTTPClient(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func envelopeJSON(t *testing.T, elements ...any) string {
	t.Helper()
	return testutil.EnvelopeJSON(t, elements...)
}

// roundTripFunc lets a test observe requests without a server.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (function roundTripFunc) RoundTrip(request *http.Request) (*http.Response, error) {
	return function(request)
}
