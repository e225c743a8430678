// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bunq"
	"github.com/bureau-foundation/bunq/lib/keys"
	"github.com/bureau-foundation/bunq/lib/signature"
	"github.com/bureau-foundation/bunq/lib/statestore"
	"github.com/bureau-foundation/bunq/lib/testutil"
)

func TestBootstrap_FromEmptyState(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.routeBootstrap()

	output := h.mustRun("bootstrap", "--json")
	var result setupResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("bootstrap output %q: %v", output, err)
	}
	if result.InstallationID != 11 || result.DeviceID != 21 || result.SessionID != 31 || result.UserID != 42 {
		t.Errorf("result = %+v", result)
	}
	if result.ClientKeyFingerprint == "" || result.ServerKeyFingerprint == "" {
		t.Errorf("fingerprints missing: %+v", result)
	}
	if result.UserName != "Analytical Engines BV" {
		t.Errorf("user name = %q", result.UserName)
	}

	store := h.store()
	protected, err := store.KeyProtected()
	if err != nil || !protected {
		t.Errorf("generated key protected = %v, %v; want sealed under the passphrase file", protected, err)
	}
	for _, name := range statestore.Files {
		if !store.Has(name) {
			t.Errorf("state file %s missing after bootstrap", name)
		}
	}
	apiKey, err := store.Read(statestore.FileAPIKey)
	if err != nil || string(apiKey) != testAPIKey {
		t.Errorf("stored API key = %q, %v", apiKey, err)
	}
	manifest, err := store.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Environment != "sandbox" || manifest.DeviceID != 21 || manifest.SessionID != 31 ||
		manifest.Fingerprint != result.ClientKeyFingerprint || !manifest.SessionStartedAt.Equal(epoch) {
		t.Errorf("manifest = %+v", manifest)
	}

	requests := h.fake.Requests()
	if len(requests) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(requests))
	}
	for index, request := range requests {
		if !request.SignatureValid {
			t.Errorf("request %d (%s): signature rejected", index, request.URI)
		}
		if !strings.HasPrefix(request.Header.Get(signature.HeaderUserAgent), "bunq-go/") {
			t.Errorf("request %d User-Agent = %q", index, request.Header.Get(signature.HeaderUserAgent))
		}
	}
	var device bunq.DeviceServerBody
	if err := json.Unmarshal(requests[1].Body, &device); err != nil {
		t.Fatal(err)
	}
	if device.Description != "test device" || device.Secret != testAPIKey ||
		len(device.PermittedIPs) != 1 || device.PermittedIPs[0] != "203.0.113.7" {
		t.Errorf("device body = %+v", device)
	}
}

func TestBootstrap_KeepsInstallationWhenDeviceFails(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.seedKey()
	h.routeBootstrap()
	h.fake.Route(http.MethodPost, "/v1/device-server", http.StatusBadRequest,
		`{"Error":[{"error_description":"Device already registered."}]}`)

	err := h.run("bootstrap")
	if cli.CategoryOf(err) != cli.CategoryValidation {
		t.Fatalf("error = %v (%s), want a validation error", err, cli.CategoryOf(err))
	}
	store := h.store()
	if !store.Has(statestore.FileInstallationToken) || !store.Has(statestore.FileServerPublicKey) {
		t.Error("installation was not kept after the device step failed")
	}
	if store.Has(statestore.FileSessionToken) {
		t.Error("session token present after a failed bootstrap")
	}
}

func TestStepwiseSetup(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.seedKey()
	h.routeBootstrap()

	if output := h.mustRun("install"); !strings.Contains(output, "installation 11") {
		t.Errorf("install output = %q", output)
	}
	if output := h.mustRun("device", "register", "--description", "laptop"); output != "device 21\n" {
		t.Errorf("device register output = %q", output)
	}
	if output := h.mustRun("session", "start"); !strings.Contains(output, "session 31 for user 42") {
		t.Errorf("session start output = %q", output)
	}

	requests := h.fake.Requests()
	wantAuthentication := []string{"", "installation-token", "installation-token"}
	for index, request := range requests {
		if got := request.Header.Get(signature.HeaderClientAuthentication); got != wantAuthentication[index] {
			t.Errorf("request %d authentication = %q, want %q", index, got, wantAuthentication[index])
		}
	}
	if !strings.Contains(string(requests[1].Body), `"description":"laptop"`) {
		t.Errorf("device body = %s", requests[1].Body)
	}
}

func TestDeviceRegister_BeforeInstall(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.seedKey()

	err := h.run("device", "register")
	if cli.CategoryOf(err) != cli.CategoryNotFound {
		t.Fatalf("error = %v, want not_found", err)
	}
	if !strings.Contains(err.Error(), "bunq install") {
		t.Errorf("error should point at install: %v", err)
	}
	if requests := h.fake.Requests(); len(requests) != 0 {
		t.Errorf("server saw %d requests", len(requests))
	}
}

func TestKeygen(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	output := h.mustRun("keygen")
	if !strings.HasPrefix(output, "fingerprint: ") {
		t.Errorf("keygen output = %q", output)
	}

	err := h.run("keygen")
	if cli.CategoryOf(err) != cli.CategoryConflict || cli.ExitCode(err) != 5 {
		t.Errorf("second keygen error = %v, want conflict", err)
	}

	if err := h.run("keygen", "--bits", "1024", "--force"); cli.CategoryOf(err) != cli.CategoryValidation {
		t.Errorf("1024-bit keygen error = %v, want validation", err)
	}
}

func TestKeygen_ForceDiscardsTokens(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.seedSession()

	h.mustRun("keygen", "--force")
	store := h.store()
	for _, name := range []string{statestore.FileInstallationToken, statestore.FileSessionToken, statestore.FileServerPublicKey} {
		if store.Has(name) {
			t.Errorf("%s kept after a new key pair", name)
		}
	}
	manifest, err := store.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	if manifest.SessionID != 0 || manifest.InstallationID != 0 || manifest.Environment != "sandbox" {
		t.Errorf("manifest after keygen --force = %+v", manifest)
	}
}

func TestUnlock_SealedKeyWithoutPassphrase(t *testing.T) {
	h := newHarness(t, harnessOptions{noPassphrase: true})
	h.seedSession()

	err := h.run("user")
	if cli.CategoryOf(err) != cli.CategoryForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}
	if requests := h.fake.Requests(); len(requests) != 0 {
		t.Errorf("server saw %d requests", len(requests))
	}
}

func TestUnlock_WrongPassphrase(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	pair, err := keys.NewPair(testutil.RSAKey("client"))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.store().SaveKeyPair(pair, []byte("a different passphrase")); err != nil {
		t.Fatal(err)
	}

	err = h.run("install")
	if cli.CategoryOf(err) != cli.CategoryForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}
}
