// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/bunq/lib/keys"
	"github.com/bureau-foundation/bunq/lib/signature"
)

var rsaKeys sync.Map

// RSAKey returns a 2048-bit key, the same one for every call with the
// same name within a test binary.
func RSAKey(name string) *rsa.PrivateKey {
	if cached, ok := rsaKeys.Load(name); ok {
		return cached.(*rsa.PrivateKey)
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("generating test RSA key: " + err.Error())
	}
	actual, _ := rsaKeys.LoadOrStore(name, key)
	return actual.(*rsa.PrivateKey)
}

// PublicPEM returns key's public half as SPKI PEM.
func PublicPEM(t testing.TB, key *rsa.PrivateKey) string {
	t.Helper()
	encoded, err := keys.EncodePublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKey: %v", err)
	}
	return encoded
}

// Request is one request as FakeBunq received it.
type Request struct {
	Method         string
	URI            string
	Header         http.Header
	Body           []byte
	SignatureValid bool
}

type fakeRoute struct {
	status int
	body   string
}

// FakeBunq is a signing fake of the bunq API.
type FakeBunq struct {
	server    *httptest.Server
	serverKey *rsa.PrivateKey

	mu        sync.Mutex
	clientKey *rsa.PublicKey
	routes    map[string]fakeRoute
	requests  []Request
	tamper    bool
}

// NewFakeBunq starts a fake signing responses with serverKey. It is
// closed when the test ends.
func NewFakeBunq(t testing.TB, serverKey *rsa.PrivateKey) *FakeBunq {
	t.Helper()
	fake := &FakeBunq{serverKey: serverKey, routes: make(map[string]fakeRoute)}
	fake.server = httptest.NewTLSServer(http.HandlerFunc(fake.serveHTTP))
	t.Cleanup(fake.server.Close)
	return fake
}

// URL returns the base URL, without API version.
func (fake *FakeBunq) URL() string { return fake.server.URL }

// HTTPClient returns a client that trusts the fake's certificate.
func (fake *FakeBunq) HTTPClient() *http.Client { return fake.server.Client() }

// Close stops the server early, for transport failure tests.
func (fake *FakeBunq) Close() { fake.server.Close() }

// ServerPublicKeyPEM returns the key installation responses should
// carry.
func (fake *FakeBunq) ServerPublicKeyPEM(t testing.TB) string {
	t.Helper()
	return PublicPEM(t, fake.serverKey)
}

// TrustClientKey sets the key request signatures are checked against.
func (fake *FakeBunq) TrustClientKey(key *rsa.PublicKey) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.clientKey = key
}

// Route answers method and path (including the version segment) with
// status and body.
func (fake *FakeBunq) Route(method, path string, status int, body string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.routes[method+" "+path] = fakeRoute{status: status, body: body}
}

// Tamper makes every later response body differ from what was signed.
func (fake *FakeBunq) Tamper() {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.tamper = true
}

// Requests returns a copy of every request received so far.
func (fake *FakeBunq) Requests() []Request {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]Request(nil), fake.requests...)
}

func (fake *FakeBunq) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)

	fake.mu.Lock()
	if fake.clientKey == nil && request.Method == http.MethodPost && strings.HasSuffix(request.URL.Path, "/installation") {
		fake.clientKey = installationKey(body)
	}
	clientKey := fake.clientKey
	fake.mu.Unlock()

	valid := false
	if clientKey != nil {
		valid = signature.VerifyRequest(clientKey,
			request.Header.Get(signature.HeaderClientSignature),
			request.Method, request.URL.RequestURI(),
			signature.FlattenHeader(request.Header), body) == nil
	}

	fake.mu.Lock()
	fake.requests = append(fake.requests, Request{
		Method:         request.Method,
		URI:            request.URL.RequestURI(),
		Header:         request.Header.Clone(),
		Body:           body,
		SignatureValid: valid,
	})
	responseID := "response-" + strconv.Itoa(len(fake.requests))
	route, found := fake.routes[request.Method+" "+request.URL.Path]
	tamper := fake.tamper
	fake.mu.Unlock()

	if !found {
		route = fakeRoute{status: http.StatusNotFound, body: `{"Error":[{"error_description":"Route not found"}]}`}
	}

	requestID := request.Header.Get(signature.HeaderClientRequestID)
	signed, err := signature.SignResponse(fake.serverKey, route.status, requestID, responseID, []byte(route.body))
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}

	responseBody := route.body
	if tamper {
		responseBody += " "
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.Header().Set(signature.HeaderClientRequestID, requestID)
	writer.Header().Set(signature.HeaderClientResponseID, responseID)
	writer.Header().Set(signature.HeaderServerSignature, signed)
	writer.WriteHeader(route.status)
	io.WriteString(writer, responseBody)
}

func installationKey(body []byte) *rsa.PublicKey {
	var installation struct {
		ClientPublicKey string `json:"client_public_key"`
	}
	if json.Unmarshal(body, &installation) != nil {
		return nil
	}
	key, err := keys.ParsePublicKey([]byte(installation.ClientPublicKey))
	if err != nil {
		return nil
	}
	return key
}

// EnvelopeJSON builds a {"Response":[...]} body from kind/value pairs.
// No pairs gives an empty listing.
func EnvelopeJSON(t testing.TB, elements ...any) string {
	t.Helper()
	if len(elements)%2 != 0 {
		t.Fatal("EnvelopeJSON needs kind/value pairs")
	}
	response := []map[string]any{}
	for index := 0; index < len(elements); index += 2 {
		response = append(response, map[string]any{elements[index].(string): elements[index+1]})
	}
	encoded, err := json.Marshal(map[string]any{"Response": response})
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}
	return string(encoded)
}
