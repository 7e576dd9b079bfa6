package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t          *testing.T
	configPath string
	storePath  string
	now        func() time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{"ICE_STORE_DRIVER", "ICE_STORE_PATH", "DATABASE_URL", "LOG_LEVEL", "ENVIRONMENT", "SIMPLEICE_CONFIG"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	h := &harness{
		t:          t,
		configPath: filepath.Join(dir, ".simpleice"),
		storePath:  filepath.Join(dir, "ices.json"),
	}
	content := "ICE_STORE_PATH=" + h.storePath + "\nLOG_LEVEL=error\n"
	require.NoError(t, os.WriteFile(h.configPath, []byte(content), 0600))
	return h
}

func (h *harness) run(stdin string, args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cli{stdin: strings.NewReader(stdin), stdout: &stdout, stderr: &stderr, now: h.now}
	code := c.run(append(args, "--config", h.configPath))
	return code, stdout.String(), stderr.String()
}

func TestNoArgumentsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "Commands:")
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"explode"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), `unknown command "explode"`)
}

func TestMissingConfigSuggestsCreateConfig(t *testing.T) {
	h := newHarness(t)
	h.configPath = filepath.Join(t.TempDir(), "absent")

	code, _, stderr := h.run("", "list")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "create-config")
}

func TestCreateConfig(t *testing.T) {
	h := newHarness(t)
	h.configPath = filepath.Join(t.TempDir(), ".simpleice")

	code, stdout, _ := h.run("", "create-config")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Empty config file created")

	code, _, stderr := h.run("", "create-config")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "already exists")
}

func TestListEmptyStore(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("", "list")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "No ICE mails to show\n", stdout)

	// listing never creates the store
	_, err := os.Stat(h.storePath)
	assert.True(t, os.IsNotExist(err))
}

func TestCorruptStoreIsReported(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.storePath, []byte("{oops"), 0600))

	code, _, stderr := h.run("", "new", "-d", "Will", "-m", "Find my safe")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "corrupt")

	data, err := os.ReadFile(h.storePath)
	require.NoError(t, err)
	assert.Equal(t, "{oops", string(data))
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("", "new", "--description", "Will", "--message", "Find my safe")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "New ICE mail created\n", stdout)

	code, stdout, _ = h.run("", "activate", "-i", "0", "--at", "2099-01-01 09:00")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "ICE mail activated for 01/01/2099\n", stdout)

	before, err := os.ReadFile(h.storePath)
	require.NoError(t, err)

	code, _, stderr := h.run("", "activate", "-i", "0", "--at", "2000-01-01 09:00")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Date cannot be in the past")

	code, _, stderr = h.run("", "activate", "-i", "0", "--at", "01/01/2099")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Invalid date format")

	after, err := os.ReadFile(h.storePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	code, stdout, _ = h.run("", "edit", "-i", "0", "--recipients", "a@x.com, b@x.com")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "ICE mail updated\n", stdout)

	code, stdout, _ = h.run("", "show", "-i", "0")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Will ~> ")
	assert.Contains(t, stdout, "Active")
	assert.Contains(t, stdout, "(01/01/2099)")
	assert.Contains(t, stdout, "Recipients: a@x.com,b@x.com")
	assert.Contains(t, stdout, "Find my safe")

	code, stdout, _ = h.run("", "deactivate", "-i", "0")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Operation cancelled")

	code, stdout, _ = h.run("", "deactivate", "-i", "0", "--yes")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "ICE mail deactivated\n", stdout)

	code, stdout, _ = h.run("", "deactivate", "-i", "0", "--yes")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "That ICE mail is not active\n", stdout)

	code, stdout, _ = h.run("", "list")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "[0] Will ~> ")
	assert.Contains(t, stdout, "Inactive")
	assert.NotContains(t, stdout, "Unknown")

	code, stdout, _ = h.run("", "remove", "-i", "0", "--yes")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "ICE mail 'Will' removed\n", stdout)

	data, err := os.ReadFile(h.storePath)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestNewFromStdin(t *testing.T) {
	h := newHarness(t)

	code, _, _ := h.run("Dear all,\nthe key is under the mat.\n", "new", "-d", "Key", "--message-file", "-")
	require.Equal(t, exitOK, code)

	code, stdout, _ := h.run("", "show", "-i", "0")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "the key is under the mat.")
}

func TestNewRequiresMessage(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("", "new", "-d", "Will")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Aborting")
}

func TestIndexIsRequired(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("", "show")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "--index is required")
}

func TestShowOnEmptyStore(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("", "show", "-i", "0")
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "No ICE mails to show\n", stdout)
}

func TestCheckListsDueMails(t *testing.T) {
	h := newHarness(t)

	for _, d := range []string{"soon", "later"} {
		code, _, _ := h.run("", "new", "-d", d, "-m", "body")
		require.Equal(t, exitOK, code)
	}
	code, _, _ := h.run("", "activate", "-i", "0", "--at", "2099-01-01 09:00")
	require.Equal(t, exitOK, code)
	code, _, _ = h.run("", "activate", "-i", "1", "--at", "2099-06-01 09:00")
	require.Equal(t, exitOK, code)
	code, _, _ = h.run("", "edit", "-i", "0", "-r", "a@x.com")
	require.Equal(t, exitOK, code)

	code, stdout, _ := h.run("", "check")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "No ICE mails are due\n", stdout)

	h.now = func() time.Time { return time.Date(2099, 3, 1, 0, 0, 0, 0, time.Local) }
	code, stdout, _ = h.run("", "check")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "[0] soon ~> ")
	assert.Contains(t, stdout, "-> a@x.com")
	assert.NotContains(t, stdout, "later")
}
