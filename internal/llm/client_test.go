package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, status int, body string, capture *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleRequest() CompletionRequest {
	return CompletionRequest{
		Model: "llama3-70b-8192",
		Messages: []ChatMessage{
			{Role: "system", Content: "be kind"},
			{Role: "assistant", Content: "Salam"},
			{Role: "user", Content: "I feel anxious"},
		},
		Temperature: 0.7,
		MaxTokens:   800,
	}
}

func TestHTTPClientComplete_Success(t *testing.T) {
	var got chatRequest
	srv := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"Take heart..."}}]}`, &got)
	c := NewHTTPClient(srv.URL+"/", "test-key", time.Second, zap.NewNop())

	out, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Take heart...", out)

	assert.Equal(t, "llama3-70b-8192", got.Model)
	assert.Equal(t, 800, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "I feel anxious", got.Messages[2].Content)
}

func TestHTTPClientComplete_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		key    string
		want   error
		class  string
	}{
		{name: "auth", status: http.StatusOK, body: `{}`, key: "wrong", want: ErrAuth, class: "auth"},
		{name: "rate limit", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, key: "test-key", want: ErrRateLimited, class: "rate_limited"},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, key: "test-key", want: ErrUpstream, class: "upstream"},
		{name: "bad json", status: http.StatusOK, body: `not json`, key: "test-key", want: ErrMalformedResponse, class: "malformed_response"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, key: "test-key", want: ErrMalformedResponse, class: "malformed_response"},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, key: "test-key", want: ErrMalformedResponse, class: "malformed_response"},
		{name: "quota in body", status: http.StatusOK, body: `{"error":{"message":"over quota","type":"insufficient_quota"}}`, key: "test-key", want: ErrRateLimited, class: "rate_limited"},
		{name: "api error", status: http.StatusOK, body: `{"error":{"message":"model not found","type":"invalid_request_error"}}`, key: "test-key", want: ErrUpstream, class: "upstream"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.status, tc.body, nil)
			c := NewHTTPClient(srv.URL, tc.key, time.Second, zap.NewNop())

			_, err := c.Complete(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, tc.class, FailureClass(err))
		})
	}
}

func TestHTTPClientComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, "test-key", time.Second, nil)
	_, err := c.Complete(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestHTTPClientComplete_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewHTTPClient(srv.URL, "test-key", time.Second, nil)
	_, err := c.Complete(ctx, sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "timeout", FailureClass(err))
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	c := NewHTTPClient("", "k", 0, nil)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, 60*time.Second, c.client.Timeout)
}

func TestMockClient_RecordsRequests(t *testing.T) {
	m := &MockClient{Response: "ok"}
	_, ok := m.LastRequest()
	assert.False(t, ok)

	out, err := m.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, m.Calls())
	last, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "llama3-70b-8192", last.Model)
}
