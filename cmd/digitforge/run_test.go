package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitforge/internal/dataset"
	"digitforge/internal/dataset/datasettest"
)

func TestRunCommand(t *testing.T) {
	resetFlags()
	raw := datasettest.GzipOptDigits(datasettest.Glyphs(dataset.DigitsCount, 5))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	preview := filepath.Join(t.TempDir(), "preview.png")
	cmd := runCMD()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{
		"--data=" + t.TempDir(),
		"--data-url=" + srv.URL,
		"--hidden=16",
		"--max-iter=3",
		"--split-seed=5",
		"--verbose=false",
		"--log-level=warn",
		"--preview=" + preview,
	})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "The model correctly predicted digits with")
	_, err := os.Stat(preview)
	assert.NoError(t, err)
}

func TestRunCommandRejectsBadFraction(t *testing.T) {
	resetFlags()
	cmd := runCMD()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--test-fraction=1"})
	assert.Error(t, cmd.Execute())
}

func TestRunCommandConfigFile(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mlp:\n  solver: newton\n"), 0o644))
	cmd := runCMD()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", path})
	assert.Error(t, cmd.Execute())
}
