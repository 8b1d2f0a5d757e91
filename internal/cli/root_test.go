// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears API env vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("JAVXSEEK_HOME", home)
	t.Setenv("JAVXSEEK_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("JAVXSEEK_BASE_URL", "")
	return home
}

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "javxseek "+Version)
	assert.Contains(t, out, "commit:")
}

func TestConfigCommand_SetGetKeys(t *testing.T) {
	home := isolate(t)

	out, err := runCmd(t, "", "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "chat.history_cap\n")
	assert.Contains(t, out, "api.key\n")

	out, err = runCmd(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml")+"\n", out)

	_, err = runCmd(t, "", "config", "set", "chat.history_cap", "30")
	require.NoError(t, err)

	out, err = runCmd(t, "", "config", "get", "chat.history_cap")
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)
}

func TestConfigCommand_SetRejectsInvalid(t *testing.T) {
	home := isolate(t)

	_, err := runCmd(t, "", "config", "set", "chat.history_cap", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.history_cap")

	_, statErr := os.Stat(filepath.Join(home, "config.toml"))
	assert.True(t, os.IsNotExist(statErr), "invalid value must not be written")

	_, err = runCmd(t, "", "config", "set", "chat.no_such_key", "1")
	assert.Error(t, err)
}

func TestConfigCommand_EnvKeyNeverWritten(t *testing.T) {
	home := isolate(t)
	t.Setenv("JAVXSEEK_API_KEY", "sk-env-secret")

	_, err := runCmd(t, "", "config", "set", "chat.humor", "true")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-env-secret")
	assert.Contains(t, string(data), "humor = true")

	out, err := runCmd(t, "", "config", "get", "api.key")
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]\n", out)

	out, err = runCmd(t, "", "config", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"key": "[REDACTED]"`)
	assert.NotContains(t, out, "sk-env-secret")
}

func TestSessionCommands_Empty(t *testing.T) {
	isolate(t)

	out, err := runCmd(t, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "no stored sessions")

	out, err = runCmd(t, "", "style")
	require.NoError(t, err)
	assert.Contains(t, out, "progress: 0/10")

	out, err = runCmd(t, "", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "our story is just beginning")

	_, err = runCmd(t, "", "memory", "-n", "0")
	assert.Error(t, err)
}

func TestResetCommand_Confirm(t *testing.T) {
	isolate(t)

	out, err := runCmd(t, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "kept")

	out, err = runCmd(t, "", "reset", "--yes", "--session", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `session "alice" cleared`)
}

func TestAskCommand_NoKey(t *testing.T) {
	isolate(t)

	_, err := runCmd(t, "", "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key configured")
}

func TestAskCommand_RejectsUnknownMode(t *testing.T) {
	isolate(t)

	_, err := runCmd(t, "", "ask", "--mode", "sleepy", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sleepy")
}

func TestAskCommand_StreamsAndPersists(t *testing.T) {
	isolate(t)

	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer upstream.Close()

	t.Setenv("JAVXSEEK_API_KEY", "sk-test")
	t.Setenv("JAVXSEEK_BASE_URL", upstream.URL)

	out, err := runCmd(t, "", "ask", "--session", "bob", "hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)

	out, err = runCmd(t, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "bob")

	out, err = runCmd(t, "", "memory", "--session", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "hi there → Hello...")

	out, err = runCmd(t, "", "export", "--session", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "### You\n\nhi there\n")
	assert.Contains(t, out, "### Javx Seek\n\nHello\n")

	dir := t.TempDir()
	out, err = runCmd(t, "", "export", "--session", "bob", "--format", "json", "--out", dir)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".json"))
}

func TestChatCommand_NeedsTerminal(t *testing.T) {
	if IsTTY() {
		t.Skip("stdin is a terminal")
	}
	isolate(t)

	_, err := runCmd(t, "", "chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}
