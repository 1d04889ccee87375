package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient("g-test",
		WithBaseURL(srv.URL),
		WithModel("gemini-mock"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestGenerateURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://generativelanguage.googleapis.com/v1beta", "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent"},
		{"https://generativelanguage.googleapis.com/v1beta/", "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent"},
		{"http://localhost:8080", "http://localhost:8080/v1beta/models/m:generateContent"},
		{"http://localhost:8080/v1", "http://localhost:8080/v1/models/m:generateContent"},
		{"", "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, generateURL(tc.base, "m"), "base=%q", tc.base)
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(" ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")

	c, err := NewClient("k", WithModel("  "))
	require.NoError(t, err)
	require.Equal(t, defaultModel, c.model)
	require.Equal(t, defaultBaseURL, c.baseURL)
}

func TestGenerate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-mock:generateContent", r.URL.Path)
		require.Equal(t, "g-test", r.Header.Get("x-goog-api-key"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"contents":[{"role":"user","parts":[{"text":"hello"}]}]}`, string(reqBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "  London"}, {"text": "\n"}]},
				"finishReason": "STOP"
			}]
		}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv).Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "  London\n", out)
}

func TestGenerate_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "hi")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "403")
}

func TestGenerate_MalformedResponses(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"not json", `not-json`, "decode response"},
		{"no candidates", `{"candidates":[]}`, "no candidates"},
		{"blocked", `{"promptFeedback":{"blockReason":"SAFETY"}}`, "prompt blocked: SAFETY"},
		{"no parts", `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`, "empty candidate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Generate(context.Background(), "hi")
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestGenerate_NilHTTPClientFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = nil
	out, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}
