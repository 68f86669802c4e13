package httpclient

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := New(Options{Logger: logger})
	resp, err := client.Get(srv.URL + "/v1beta/models?key=secret")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/v1beta/models")
	assert.NotContains(t, buf.String(), "secret")
}

func TestNewDefaultsTimeout(t *testing.T) {
	client := New(Options{})
	assert.Positive(t, client.Timeout)
	_, wrapped := client.Transport.(*loggingTransport)
	assert.False(t, wrapped)
}
