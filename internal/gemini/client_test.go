package gemini

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-studio/internal/studio"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestGenerateImageSendsPromptAndImages(t *testing.T) {
	var got generateContentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/"+DefaultImageModel+":generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"candidates":[{"finishReason":"STOP","content":{"parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`)
	})

	resp, err := c.GenerateImage(t.Context(), "draw", Blob{MimeType: "image/jpeg", Data: []byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, []string{"data:image/png;base64,aW1n"}, resp.Images)
	assert.Equal(t, "here you go", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "draw", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "YWJj", got.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, got.GenerationConfig.ResponseModalities)
	require.NotNil(t, got.GenerationConfig.ImageConfig)
	assert.Equal(t, "1:1", got.GenerationConfig.ImageConfig.AspectRatio)
}

func TestGenerateImageRetriesWithoutImageConfig(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if calls.Add(1) == 1 {
			assert.Contains(t, string(body), "imageConfig")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"Invalid JSON payload received. Unknown name \"imageConfig\""}}`)
			return
		}
		assert.NotContains(t, string(body), "imageConfig")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"eA=="}}]}}]}`)
	})

	resp, err := c.GenerateImage(t.Context(), "draw")
	require.NoError(t, err)
	assert.Len(t, resp.Images, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGenerateImageBlocked(t *testing.T) {
	cases := map[string]string{
		"prompt feedback": `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"no candidates":   `{"candidates":[]}`,
		"finish reason":   `{"candidates":[{"finishReason":"IMAGE_SAFETY","content":{"parts":[]}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})
			_, err := c.GenerateImage(t.Context(), "draw")
			require.Error(t, err)
			assert.True(t, errors.Is(err, studio.ErrContentBlocked))
		})
	}
}

func TestGenerateImageHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "quota")
	})
	_, err := c.GenerateImage(t.Context(), "draw")
	require.Error(t, err)
	assert.False(t, errors.Is(err, studio.ErrContentBlocked))
	assert.True(t, strings.Contains(err.Error(), "429"))
}

func TestGenerateImageRejectsEmptyPrompt(t *testing.T) {
	c := New(Options{HTTPClient: http.DefaultClient})
	_, err := c.GenerateImage(t.Context(), "  ")
	require.Error(t, err)
}
