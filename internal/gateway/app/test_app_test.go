package app

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repofix/internal/gateway/config"
	"repofix/internal/gateway/handler"
	"repofix/internal/gateway/middleware"
)

func startApp(t *testing.T, cfg config.Config) string {
	t.Helper()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Serve(ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, a.Shutdown(ctx))
		assert.NoError(t, <-done)
	})
	return "http://" + ln.Addr().String()
}

func fakeConfig(reply string) config.Config {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderFake
	cfg.LLM.FakeReply = reply
	cfg.LLM.RetryBase = time.Millisecond
	cfg.Server.ClientRPS = 0
	return cfg
}

func uploadBody(t *testing.T, path, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", path)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestAppServesFix(t *testing.T) {
	base := startApp(t, fakeConfig("START_FILE: a.js\nlet x=1;\nEND_FILE"))

	body, ct := uploadBody(t, "a.js", "var x=1")
	resp, err := http.Post(base+"/api/fix", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, "1", resp.Header.Get(handler.ChangedFilesHeader))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	http.DefaultClient.CloseIdleConnections()
}

func TestAppPreflightAndHealth(t *testing.T) {
	base := startApp(t, fakeConfig(""))

	req, err := http.NewRequest(http.MethodOptions, base+"/api/fix", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"model":"FakeLLM"}`, string(raw))
	http.DefaultClient.CloseIdleConnections()
}

func TestAppRateLimitsClients(t *testing.T) {
	cfg := fakeConfig("")
	cfg.Server.ClientRPS = 0.001
	cfg.Server.ClientBurst = 1
	base := startApp(t, cfg)

	first, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	first.Body.Close()
	second, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	second.Body.Close()

	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	http.DefaultClient.CloseIdleConnections()
}

func TestConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxFiles = 7
	cfg.LLM.MaxAttempts = 4

	assert.Equal(t, 7, FixerLimits(cfg).MaxFiles)
	assert.Equal(t, 4, LLMOptions(cfg).MaxAttempts)
	assert.Equal(t, cfg.LLM.Timeout, LLMOptions(cfg).Timeout)
}
