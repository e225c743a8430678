// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/bureau-foundation/bunq/lib/signature"
)

func TestNewClient_RequiresHTTPS(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://public-api.sandbox.bunq.com"})
	if err == nil {
		t.Fatal("expected error for plain HTTP base URL")
	}
	if !strings.Contains(err.Error(), "HTTPS") {
		t.Errorf("error should mention HTTPS: %v", err)
	}
}

func TestNewRequest_DefaultHeaders(t *testing.T) {
	client, err := NewClient(Config{RequestID: func() string { return "abc1234" }})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	credentials := testCredentials(t)

	request, err := client.NewRequest(credentials, http.MethodGet, "/user", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	if request.URI != "/v1/user" {
		t.Errorf("URI = %q, want /v1/user", request.URI)
	}
	if request.URL != SandboxBaseURL+"/v1/user" {
		t.Errorf("URL = %q", request.URL)
	}

	want := map[string]string{
		"Cache-Control":            "no-cache",
		"User-Agent":               defaultUserAgent,
		"X-Bunq-Language":          "en_US",
		"X-Bunq-Region":            "en_US",
		"X-Bunq-Geolocation":       "0 0 0 00 NL",
		"X-Bunq-Client-Request-Id": "abc1234",
	}
	for key, value := range want {
		if request.Header[key] != value {
			t.Errorf("header %s = %q, want %q", key, request.Header[key], value)
		}
	}
	if _, present := request.Header[signature.HeaderClientAuthentication]; present {
		t.Error("authentication header sent for credentials without a token")
	}
	if _, present := request.Header["Content-Type"]; present {
		t.Error("Content-Type sent for a request without a body")
	}
	if request.Body != nil {
		t.Errorf("GET request has a body: %q", request.Body)
	}

	if err := signature.VerifyRequest(&clientKey.PublicKey, request.Header[signature.HeaderClientSignature],
		request.Method, request.URI, request.Header, request.Body); err != nil {
		t.Errorf("request signature does not verify: %v", err)
	}
}

func TestNewRequest_Configured(t *testing.T) {
	client, err := NewClient(Config{
		BaseURL:     "https://api.bunq.com/",
		APIVersion:  "/v2/",
		UserAgent:   "custom/2.0",
		Language:    "nl_NL",
		Region:      "nl_NL",
		Geolocation: "4.89 52.37 12 100 NL",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	request, err := client.NewRequest(testCredentials(t).WithToken("session-token"), http.MethodGet, "/user/7", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	if request.URL != "https://api.bunq.com/v2/user/7" {
		t.Errorf("URL = %q", request.URL)
	}
	if request.Header[signature.HeaderUserAgent] != "custom/2.0" {
		t.Errorf("User-Agent = %q", request.Header[signature.HeaderUserAgent])
	}
	if request.Header[signature.HeaderGeolocation] != "4.89 52.37 12 100 NL" {
		t.Errorf("Geolocation = %q", request.Header[signature.HeaderGeolocation])
	}
	if request.Header[signature.HeaderClientAuthentication] != "session-token" {
		t.Errorf("authentication header = %q, want session-token", request.Header[signature.HeaderClientAuthentication])
	}
	if len(request.Header[signature.HeaderClientRequestID]) != RequestIDLength {
		t.Errorf("request id %q has wrong length", request.Header[signature.HeaderClientRequestID])
	}
}

func TestNewRequest_BodyEncoding(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatal(err)
	}
	credentials := testCredentials(t)
	body := map[string]string{"description": "<tag> & more"}

	request, err := client.NewRequest(credentials, http.MethodPost, "/device-server", body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if string(request.Body) != `{"description":"<tag> & more"}` {
		t.Errorf("body = %s, want compact JSON without HTML escaping", request.Body)
	}
	if request.Header["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", request.Header["Content-Type"])
	}

	// The same body on a read-only method is dropped.
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		request, err := client.NewRequest(credentials, method, "/device-server", body)
		if err != nil {
			t.Fatalf("NewRequest %s: %v", method, err)
		}
		if request.Body != nil {
			t.Errorf("%s request carries a body: %s", method, request.Body)
		}
	}
}

func TestNewRequest_Rejects(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.NewRequest(Credentials{}, http.MethodGet, "/user", nil); err == nil {
		t.Error("expected error for zero credentials")
	}
	if _, err := client.NewRequest(testCredentials(t), http.MethodGet, "user", nil); err == nil {
		t.Error("expected error for a relative path without leading slash")
	}
	if _, err := client.NewRequest(testCredentials(t), http.MethodPost, "/x", func() {}); err == nil {
		t.Error("expected error for an unencodable body")
	}
}

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		id := newRequestID()
		if len(id) != RequestIDLength {
			t.Fatalf("request id %q has length %d", id, len(id))
		}
		for _, character := range id {
			alphanumeric := (character >= 'A' && character <= 'Z') ||
				(character >= 'a' && character <= 'z') ||
				(character >= '0' && character <= '9')
			if !alphanumeric {
				t.Fatalf("request id %q contains %q", id, character)
			}
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct ids in 50 draws", len(seen))
	}
}

func TestDo_RoundTrip(t *testing.T) {
	fake := newFakeBunq(t)
	fake.Route(http.MethodGet, "/v1/user", http.StatusOK,
		envelopeJSON(t, "UserPerson", map[string]any{"id": 42, "display_name": "Ada"}))
	client := fake.client(t)
	credentials := testCredentials(t).WithToken("session-token")

	response, err := client.Do(context.Background(), credentials, http.MethodGet, "/user", nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", response.StatusCode)
	}
	if err := client.Verify(credentials, response); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	requests := fake.Requests()
	if len(requests) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(requests))
	}
	if !requests[0].SignatureValid {
		t.Error("server rejected the request signature")
	}
	if requests[0].URI != "/v1/user" {
		t.Errorf("server saw URI %q", requests[0].URI)
	}
	if got := requests[0].Header.Get(signature.HeaderClientAuthentication); got != "session-token" {
		t.Errorf("server saw authentication %q", got)
	}
	if response.RequestID() != requests[0].Header.Get(signature.HeaderClientRequestID) {
		t.Error("response does not echo the request id")
	}
	if response.ResponseID() != "response-1" {
		t.Errorf("ResponseID = %q", response.ResponseID())
	}
}

func TestDo_PostBodySigned(t *testing.T) {
	fake := newFakeBunq(t)
	fake.Route(http.MethodPost, "/v1/device-server", http.StatusOK, envelopeJSON(t, "Id", map[string]any{"id": 5}))
	client := fake.client(t)

	_, err := client.Do(context.Background(), testCredentials(t).WithToken("installation-token"),
		http.MethodPost, "/device-server", DeviceServerBody{Description: "laptop", Secret: "key"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	requests := fake.Requests()
	if !requests[0].SignatureValid {
		t.Error("server rejected the signature over a request with a body")
	}
	if string(requests[0].Body) != `{"description":"laptop","secret":"key"}` {
		t.Errorf("server saw body %s", requests[0].Body)
	}
}

func TestDo_NonSuccessStatusIsNotAnError(t *testing.T) {
	fake := newFakeBunq(t)
	client := fake.client(t)
	credentials := testCredentials(t)

	response, err := client.Do(context.Background(), credentials, http.MethodGet, "/nowhere", nil)
	if err != nil {
		t.Fatalf("Do returned error for a 404: %v", err)
	}
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", response.StatusCode)
	}
	// Error responses are signed and verify like any other.
	if err := client.Verify(credentials, response); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestDo_TransportError(t *testing.T) {
	fake := newFakeBunq(t)
	client := fake.client(t)
	fake.Close()

	_, err := client.Do(context.Background(), testCredentials(t), http.MethodGet, "/user", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var urlError *url.Error
	if !errors.As(err, &urlError) {
		t.Errorf("transport cause not reachable through wrapping: %v", err)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	fake := newFakeBunq(t)
	client := fake.client(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Do(ctx, testCredentials(t), http.MethodGet, "/user", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	fake := newFakeBunq(t)
	fake.Route(http.MethodGet, "/v1/user", http.StatusOK, envelopeJSON(t, "UserPerson", map[string]any{"id": 1}))
	fake.Tamper()
	client := fake.client(t)
	credentials := testCredentials(t)

	response, err := client.Do(context.Background(), credentials, http.MethodGet, "/user", nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	err = client.Verify(credentials, response)
	if !IsVerificationFailure(err) {
		t.Fatalf("Verify error = %v, want verification failure", err)
	}
	var verification *VerificationError
	errors.As(err, &verification)
	if verification.ResponseID != "response-1" || verification.StatusCode != http.StatusOK {
		t.Errorf("verification error lacks response details: %+v", verification)
	}
}

func TestVerify_NoServerKey(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatal(err)
	}
	credentials, err := NewCredentials(clientKey, mustPublicPEM(t, clientKey))
	if err != nil {
		t.Fatal(err)
	}
	err = client.Verify(credentials, &Response{StatusCode: 200, Header: http.Header{}})
	if !IsVerificationFailure(err) {
		t.Errorf("Verify error = %v, want verification failure", err)
	}
}
