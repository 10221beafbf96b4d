package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/IntakeDesk/internal/api"
	"github.com/dharsanguruparan/IntakeDesk/internal/config"
	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/pdf/pdftest"
	"github.com/dharsanguruparan/IntakeDesk/internal/shell"
	"github.com/dharsanguruparan/IntakeDesk/internal/storage"
)

func startAPI(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{MaxFileSize: 1 << 20, ShutdownTimeout: time.Second}
	ts := httptest.NewServer(api.New(cfg, storage.NewMemoryStore(), logger.Discard()).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	if a == nil {
		a = &app{}
	}
	cmd := newRootCommand(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrdersCommands(t *testing.T) {
	url := startAPI(t)
	base := []string{"--api", url, "--log-level", "error"}

	out, err := run(t, nil, append(base, "orders", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No orders yet")

	out, err = run(t, nil, append(base, "orders", "create", "--first", "Jane", "--last", "Doe", "--dob", "1990-01-01", "--status", "processing")...)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 Jane Doe")
	assert.Contains(t, out, "DOB: 1990-01-01 • Status: processing")

	_, err = run(t, nil, append(base, "orders", "create", "--first", "Jane", "--last", "Doe", "--status", "lost")...)
	require.Error(t, err)

	_, err = run(t, nil, append(base, "orders", "create", "--first", " ", "--last", "Doe")...)
	require.EqualError(t, err, "first name is required")

	out, err = run(t, nil, append(base, "orders", "delete", "1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No orders yet")

	_, err = run(t, nil, append(base, "orders", "delete", "1")...)
	require.ErrorContains(t, err, "Order not found")

	_, err = run(t, nil, append(base, "orders", "delete", "abc")...)
	require.ErrorContains(t, err, "invalid order id")
}

func TestUploadAndHealthCommands(t *testing.T) {
	url := startAPI(t)
	base := []string{"--api", url, "--log-level", "error"}

	out, err := run(t, nil, append(base, "health")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"message": "API is working"`)

	path := filepath.Join(t.TempDir(), "intake.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Document("Patient Name: Jane Doe", "DOB: 02/03/1980"), 0o600))
	out, err = run(t, nil, append(base, "upload", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "File: intake.pdf")
	assert.Contains(t, out, `"dob": "1980-02-03"`)

	_, err = run(t, nil, append(base, "upload", filepath.Join(t.TempDir(), "missing.pdf"))...)
	require.Error(t, err)
}

type quitDriver struct{}

func (quitDriver) Input(context.Context, shell.InputConfig) (string, error) { return "", shell.ErrAborted }

func (quitDriver) Select(context.Context, shell.SelectConfig) (int, error) {
	return int(shell.ActionQuit), nil
}

func TestShellCommand(t *testing.T) {
	url := startAPI(t)
	out, err := run(t, &app{prompt: quitDriver{}}, "--api", url, "--log-level", "error", "shell", "--width", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Orders")
	assert.Contains(t, out, "Document")
}

func TestInvalidAPIURL(t *testing.T) {
	_, err := run(t, nil, "--api", "not a url", "health")
	require.ErrorContains(t, err, "must be absolute")
}
