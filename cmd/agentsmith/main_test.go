package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikeboe/agentsmith/pkg/config"
	"github.com/mikeboe/agentsmith/pkg/mockserver"
	"github.com/mikeboe/agentsmith/pkg/mockserver/pdftest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePDF = pdftest.New("The thesis studies retrieval for chat assistants.")

func newBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := mockserver.NewService(&config.BackendConfig{ChunkSize: 1000, ChunkOverlap: 200, APIBase: "https://api.openai.com/v1"})
	svc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(mockserver.NewRouter(svc, prometheus.NewRegistry()))
	t.Cleanup(server.Close)
	return server.URL
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AGENTSMITH_CONFIG", "")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api-url", url, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	url := newBackend(t)
	pdf := filepath.Join(t.TempDir(), "thesis.pdf")
	require.NoError(t, os.WriteFile(pdf, samplePDF, 0o644))

	out, err := run(t, url, "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents uploaded.")

	out, err = run(t, url, "upload", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ thesis.pdf: 1 pages, 1 chunks")
	assert.Contains(t, out, "📄 thesis.pdf")

	out, err = run(t, url, "ask", "--rag", "what", "does", "the", "thesis", "study?")
	require.NoError(t, err)
	assert.Contains(t, out, "From your documents")
	assert.Contains(t, out, "Sources: thesis.pdf")

	out, err = run(t, url, "ask", "Hello")
	require.NoError(t, err)
	assert.Contains(t, out, "You said: Hello")

	out, err = run(t, url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:            healthy")
	assert.Contains(t, out, "Chunks loaded:     1")

	out, err = run(t, url, "docs", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "All documents cleared")

	out, err = run(t, url, "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents uploaded.")
}

func TestUpload_PartialFailure(t *testing.T) {
	url := newBackend(t)
	pdf := filepath.Join(t.TempDir(), "ok.pdf")
	require.NoError(t, os.WriteFile(pdf, samplePDF, 0o644))

	out, err := run(t, url, "upload", pdf, "notes.txt")
	assert.EqualError(t, err, "1 of 2 uploads failed")
	assert.Contains(t, out, "✅ ok.pdf")
	assert.Contains(t, out, "❌ notes.txt: only .pdf files can be uploaded")
}

func TestBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()

	_, err := run(t, url, "health")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	url := newBackend(t)
	path := filepath.Join(t.TempDir(), "agentsmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: "+url+"\nupload_path: /upload-pdf\n"), 0o600))
	pdf := filepath.Join(t.TempDir(), "legacy.pdf")
	require.NoError(t, os.WriteFile(pdf, samplePDF, 0o644))

	t.Setenv("AGENTSMITH_CONFIG", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--log-level", "error", "upload", pdf})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "✅ legacy.pdf")
}
