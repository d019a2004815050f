package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: url, Model: "test-model"}, logger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func TestInvokeSendsJSONSchemaFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Invoke(context.Background(), llm.Request{
		Messages:       llm.SystemAndUser("sys", "user"),
		ResponseFormat: llm.JSONSchema("prompt_variation", map[string]any{"type": "object"}),
	})
	require.NoError(t, err)

	content, err := resp.Content()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, content)
	assert.Equal(t, "test-model", captured["model"])
	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "prompt_variation", schema["name"])
	assert.Equal(t, true, schema["strict"])
	assert.Len(t, captured["messages"], 2)
}

func TestInvokeRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	c := newTestClient(t, server.URL, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	_, err := c.Invoke(context.Background(), llm.Request{Messages: llm.SystemAndUser("s", "u"), ResponseFormat: llm.JSONObject()})

	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

func TestInvokeBacksOffWithoutRetryAfter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	var slept []time.Duration
	c := newTestClient(t, server.URL,
		WithHTTPClient(server.Client()),
		WithRetryBackoff(10*time.Millisecond, 15*time.Millisecond),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	_, err := c.Invoke(context.Background(), llm.Request{Messages: llm.SystemAndUser("s", "u")})

	var statusErr *httpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, slept)
}

func TestInvokeDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Invoke(context.Background(), llm.Request{Messages: llm.SystemAndUser("s", "u")})

	require.Error(t, err)
	var statusErr *httpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestInvokeSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Invoke(context.Background(), llm.Request{Messages: llm.SystemAndUser("s", "u")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestInvokeRespectsContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := llm.Complete(context.Background(), c, 50*time.Millisecond, llm.Request{Messages: llm.SystemAndUser("s", "u")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestNewClientDefaults(t *testing.T) {
	_, err := NewClient(Config{}, logger.Nop())
	assert.Error(t, err)

	c, err := NewClient(Config{APIKey: " key "}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, defaultModel, c.cfg.Model)
	assert.Equal(t, "key", c.cfg.APIKey)
	assert.Equal(t, 2*time.Second, (&Client{retryBaseDelay: time.Second, retryMaxDelay: 10 * time.Second}).backoffDelay(2))
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("3")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)
	_, ok = parseRetryAfter("-1")
	assert.False(t, ok)
	_, ok = parseRetryAfter("")
	assert.False(t, ok)
}
