// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func restore(t *testing.T) {
	t.Helper()
	commit, dirty, build, reader := GitCommit, GitDirty, BuildTime, readBuildInfo
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime, readBuildInfo = commit, dirty, build, reader
	})
}

func TestInfo_Injected(t *testing.T) {
	restore(t)
	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-03-01T00:00:00Z"

	if got, want := Info(), Version+" (abc1234-dirty, 2026-03-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(Full(), Info()+"\n  Go: ") {
		t.Errorf("Full() = %q", Full())
	}
}

func TestInfo_FromBuildInfo(t *testing.T) {
	restore(t)
	GitCommit = "unknown"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "false"},
		}}, true
	}
	if !strings.Contains(Info(), "(0123456,") {
		t.Errorf("Info() = %q, want the embedded revision", Info())
	}

	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	if !strings.Contains(Info(), "(unknown,") {
		t.Errorf("Info() without build info = %q", Info())
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "bunq-go/"+Short() {
		t.Errorf("UserAgent() = %q", got)
	}
}
