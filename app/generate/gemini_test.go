package generate

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGemini_Generate(t *testing.T) {
	var got geminiRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := `{"candidates":[{"content":{"parts":[{"text":"here you go"},` +
			`{"inlineData":{"mimeType":"image/jpeg","data":"` + base64.StdEncoding.EncodeToString([]byte("jpeg-data")) + `"}}]},` +
			`"finishReason":"STOP"}]}`
		_, _ = w.Write([]byte(resp))
	}))
	defer ts.Close()

	g := NewGemini(GeminiParams{BaseURL: ts.URL + "/", Model: "test-model", APIKey: "secret", Timeout: time.Second})
	img, err := g.Generate(t.Context(), Request{Label: []byte("label"), MimeType: "image/webp", Prompt: "a jar", AspectRatio: "4:3"})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Equal(t, []byte("jpeg-data"), img.Data)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/webp", parts[0].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("label")), parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "SCENE DESCRIPTION: a jar.")
	assert.Contains(t, parts[1].Text, "Do NOT alter, redesign, or reinterpret the uploaded design")
	require.NotNil(t, got.GenerationConfig.ImageConfig)
	assert.Equal(t, "4:3", got.GenerationConfig.ImageConfig.AspectRatio)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, got.GenerationConfig.ResponseModalities)
}

func TestGemini_Defaults(t *testing.T) {
	g := NewGemini(GeminiParams{APIKey: "k"})
	assert.Equal(t, defaultGeminiURL, g.BaseURL)
	assert.Equal(t, defaultGeminiModel, g.Model)
	assert.Equal(t, "gemini gemini-2.5-flash-image at https://generativelanguage.googleapis.com", g.String())

	req := g.makeRequest(Request{Label: []byte("x"), Prompt: "p"})
	assert.Equal(t, "image/png", req.Contents[0].Parts[0].InlineData.MimeType)
	assert.Nil(t, req.GenerationConfig.ImageConfig)
}

func TestGemini_Failures(t *testing.T) {
	tbl := []struct {
		name   string
		status int
		body   string
		noImg  bool
		errMsg string
	}{
		{name: "text only", status: 200, body: `{"candidates":[{"content":{"parts":[{"text":"sorry"}]},"finishReason":"STOP"}]}`, noImg: true},
		{name: "no candidates", status: 200, body: `{"candidates":[]}`, noImg: true},
		{name: "blocked", status: 200, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, noImg: true, errMsg: "SAFETY"},
		{name: "finish reason", status: 200, body: `{"candidates":[{"content":{"parts":[]},"finishReason":"IMAGE_SAFETY"}]}`,
			noImg: true, errMsg: "IMAGE_SAFETY"},
		{name: "api error", status: 400, body: `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			errMsg: "returned 400: INVALID_ARGUMENT API key not valid"},
		{name: "plain error", status: 503, body: `overloaded`, errMsg: "unexpected status code: 503"},
		{name: "bad json", status: 200, body: `{"candidates":`, errMsg: "failed to parse response"},
		{name: "bad base64", status: 200, body: `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"!!!"}}]}}]}`,
			errMsg: "failed to decode image data"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			g := NewGemini(GeminiParams{BaseURL: ts.URL, APIKey: "k"})
			_, err := g.Generate(t.Context(), Request{Label: []byte("label"), Prompt: "p"})
			require.Error(t, err)
			if tt.noImg {
				assert.ErrorIs(t, err, ErrNoImage)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestGemini_MissingMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"data":"` +
			base64.StdEncoding.EncodeToString(png) + `"}}]}}]}`))
	}))
	defer ts.Close()

	img, err := NewGemini(GeminiParams{BaseURL: ts.URL}).Generate(t.Context(), Request{Label: []byte("l")})
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
}

func TestGemini_RequestValidation(t *testing.T) {
	g := NewGemini(GeminiParams{BaseURL: "http://127.0.0.1:1"})
	_, err := g.Generate(t.Context(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrNoLabel)

	_, err = g.Generate(t.Context(), Request{Label: []byte("l"), AspectRatio: "2:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported aspect ratio")

	_, err = g.Generate(t.Context(), Request{Label: []byte("l")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call")
}
