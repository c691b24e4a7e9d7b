// ABOUTME: Tests for the webhook client against an httptest backend
// ABOUTME: Verifies request envelopes, decoding failures, strict status, and metrics

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/simplevista/internal/session"
)

// capturedRequest is one request seen by the fake backend.
type capturedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]any
}

// fakeBackend records requests and replies with a fixed status and body per path.
type fakeBackend struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	replies  map[string]string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		status: http.StatusOK,
		replies: map[string]string{
			"/webhook/endpoint":          `[{"id":1,"name":"row"}]`,
			"/webhook/ratatouille-chat": `{"id":42,"type":"ai","text":"hello **there**","timestamp":"2024-01-01T00:00:00Z"}`,
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		fb.mu.Lock()
		fb.requests = append(fb.requests, capturedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		status, reply := fb.status, fb.replies[r.URL.Path]
		fb.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) captured() []capturedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]capturedRequest(nil), fb.requests...)
}

func testClient(srv *httptest.Server, creds session.CredentialSource, strict bool, opts ...Option) *Client {
	cfg := Config{
		QueryURL:     srv.URL + "/webhook/endpoint",
		ChatURL:      srv.URL + "/webhook/ratatouille-chat",
		StrictStatus: strict,
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(cfg, creds, opts...)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{}, nil)
	assert.Equal(t, DefaultConfig(), c.Config())
	assert.Equal(t, "0c2d1184a2d57952e266b0810d683ad7", c.Config().ProjectKey)
	assert.Equal(t, "https://n8n.ridaflows.com/webhook/endpoint", c.Config().QueryURL)
	assert.Equal(t, "https://n8n.ridaflows.com/webhook/ratatouille-chat", c.Config().ChatURL)
}

func TestDoQuery_SendsEnvelope(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := testClient(srv, session.StaticCredentials("abc123"), false)

	queries := []string{"SELECT * FROM users", "", "naïve 'quotes' \"and\" newlines\n"}
	for _, q := range queries {
		got, err := c.DoQuery(context.Background(), q)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1,"name":"row"}]`, string(got))
	}

	reqs := fb.captured()
	require.Len(t, reqs, len(queries))
	for i, q := range queries {
		assert.Equal(t, http.MethodPost, reqs[i].Method)
		assert.Equal(t, "/webhook/endpoint", reqs[i].Path)
		assert.Equal(t, "application/json", reqs[i].ContentType)
		assert.Equal(t, map[string]any{
			"query":        q,
			"projectKey":   DefaultProjectKey,
			"adminUserKey": "abc123",
		}, reqs[i].Body)
	}
}

func TestDoQuery_MissingCredentialIsEmptyString(t *testing.T) {
	fb, srv := newFakeBackend(t)

	for _, creds := range []session.CredentialSource{nil, session.CookieCredentials("theme=dark")} {
		c := testClient(srv, creds, false)
		_, err := c.DoQuery(context.Background(), "q")
		require.NoError(t, err)
	}

	for _, req := range fb.captured() {
		v, ok := req.Body["adminUserKey"]
		require.True(t, ok, "adminUserKey must be present")
		assert.Equal(t, "", v)
	}
}

func TestDoQuery_CredentialFromContext(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := testClient(srv, session.ContextCredentials{}, false)

	ctx := session.WithAdminUserKey(context.Background(), "from-cookie")
	_, err := c.DoQuery(ctx, "q")
	require.NoError(t, err)

	reqs := fb.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "from-cookie", reqs[0].Body["adminUserKey"])
}

func TestDoFetch_FixedFieldsWin(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := testClient(srv, session.StaticCredentials("real"), false)

	_, err := c.doFetch(context.Background(), OpQuery, c.cfg.QueryURL, map[string]any{
		"query":        "q",
		"projectKey":   "spoofed",
		"adminUserKey": "spoofed",
	}, nil, nil)
	require.NoError(t, err)

	reqs := fb.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, DefaultProjectKey, reqs[0].Body["projectKey"])
	assert.Equal(t, "real", reqs[0].Body["adminUserKey"])
}

func TestSubmitChatMessage(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := testClient(srv, session.StaticCredentials("abc123"), false)

	resp, err := c.SubmitChatMessage(context.Background(), "What's for dinner?")
	require.NoError(t, err)
	assert.Equal(t, &ChatResponse{ID: 42, Type: "ai", Text: "hello **there**", Timestamp: "2024-01-01T00:00:00Z"}, resp)

	reqs := fb.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/webhook/ratatouille-chat", reqs[0].Path)
	assert.Equal(t, map[string]any{
		"message":      "What's for dinner?",
		"projectKey":   DefaultProjectKey,
		"adminUserKey": "abc123",
	}, reqs[0].Body)
}

func TestSubmitChatMessage_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"missing text", `{"id":1,"type":"ai","timestamp":"t"}`},
		{"wrong type", `{"id":1,"type":"human","text":"x","timestamp":"t"}`},
		{"string id", `{"id":"1","type":"ai","text":"x","timestamp":"t"}`},
		{"array", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, srv := newFakeBackend(t)
			fb.replies["/webhook/ratatouille-chat"] = tt.reply
			c := testClient(srv, nil, false)

			resp, err := c.SubmitChatMessage(context.Background(), "hi")
			assert.Nil(t, resp)

			var derr *DecodeError
			require.True(t, errors.As(err, &derr), "expected DecodeError, got %v", err)
			assert.Equal(t, tt.reply, string(derr.Body))
		})
	}
}

func TestSubmitChatMessage_DecodeErrorKeepsStatus(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.status = http.StatusInternalServerError
	fb.replies["/webhook/ratatouille-chat"] = `{"id":1e400,"type":"ai","text":"x","timestamp":"t"}`
	c := testClient(srv, nil, false)

	resp, err := c.SubmitChatMessage(context.Background(), "hi")
	assert.Nil(t, resp)

	var derr *DecodeError
	require.True(t, errors.As(err, &derr), "expected DecodeError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, derr.StatusCode)
}

func TestDoFetch_UnmarshalErrorKeepsStatus(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.status = http.StatusAccepted
	c := testClient(srv, nil, false)

	var out struct {
		ID string `json:"id"`
	}
	_, err := c.doFetch(context.Background(), OpChat, c.cfg.ChatURL, map[string]any{"message": "hi"}, nil, &out)

	var derr *DecodeError
	require.True(t, errors.As(err, &derr), "expected DecodeError, got %v", err)
	assert.Equal(t, http.StatusAccepted, derr.StatusCode)
	assert.Equal(t, c.cfg.ChatURL, derr.Endpoint)
	assert.Contains(t, string(derr.Body), `"id":42`)
}

func TestDoQuery_NonJSONBody(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.replies["/webhook/endpoint"] = "<html>Bad Gateway</html>"
	c := testClient(srv, nil, false)

	_, err := c.DoQuery(context.Background(), "q")

	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	assert.ErrorIs(t, err, errNotJSON)
	assert.Equal(t, http.StatusOK, derr.StatusCode)
}

func TestDoQuery_NonSuccessStatus(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.status = http.StatusInternalServerError
	fb.replies["/webhook/endpoint"] = `{"message":"Workflow failed"}`

	t.Run("lenient returns body", func(t *testing.T) {
		got, err := testClient(srv, nil, false).DoQuery(context.Background(), "q")
		require.NoError(t, err)
		assert.JSONEq(t, `{"message":"Workflow failed"}`, string(got))
	})

	t.Run("strict returns StatusError", func(t *testing.T) {
		_, err := testClient(srv, nil, true).DoQuery(context.Background(), "q")

		var serr *StatusError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
		assert.Contains(t, serr.Error(), "Workflow failed")
	})
}

func TestDoQuery_TransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New(Config{QueryURL: "http://" + addr + "/webhook/endpoint"}, nil)
	_, err = c.DoQuery(context.Background(), "q")
	require.Error(t, err)

	var derr *DecodeError
	assert.False(t, errors.As(err, &derr))
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "transport cause should be reachable: %v", err)
}

func TestDoQuery_ContextCanceled(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := testClient(srv, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DoQuery(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics(t *testing.T) {
	fb, srv := newFakeBackend(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := testClient(srv, nil, false, WithMetrics(m))

	_, err := c.DoQuery(context.Background(), "q")
	require.NoError(t, err)
	_, err = c.SubmitChatMessage(context.Background(), "hi")
	require.NoError(t, err)

	fb.mu.Lock()
	fb.replies["/webhook/ratatouille-chat"] = `not json`
	fb.mu.Unlock()
	_, err = c.SubmitChatMessage(context.Background(), "hi")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues(OpQuery, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues(OpChat, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues(OpChat, OutcomeDecode)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}
