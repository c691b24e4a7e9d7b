// ABOUTME: Client for the query and chat webhooks
// ABOUTME: Both operations share doFetch, which adds the project key and admin credential

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/2389/simplevista/internal/session"
)

// Default webhook settings for the hosted n8n deployment.
const (
	DefaultProjectKey = "0c2d1184a2d57952e266b0810d683ad7"
	DefaultQueryURL   = "https://n8n.ridaflows.com/webhook/endpoint"
	DefaultChatURL    = "https://n8n.ridaflows.com/webhook/ratatouille-chat"
)

// Operation names used in logs and metrics.
const (
	OpQuery = "query"
	OpChat  = "chat"
)

// Body field names added to every request.
const (
	fieldProjectKey   = "projectKey"
	fieldAdminUserKey = "adminUserKey"
)

// Config holds the webhook endpoints and the project key sent with every call.
type Config struct {
	ProjectKey string
	QueryURL   string
	ChatURL    string

	// StrictStatus turns non-2xx responses into *StatusError instead of decoding them.
	StrictStatus bool
}

// DefaultConfig returns the settings of the hosted deployment.
func DefaultConfig() Config {
	return Config{
		ProjectKey: DefaultProjectKey,
		QueryURL:   DefaultQueryURL,
		ChatURL:    DefaultChatURL,
	}
}

// ChatResponse is the reply of the chat webhook.
type ChatResponse struct {
	ID        float64 `json:"id"`
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	Timestamp string  `json:"timestamp"`
}

// Client calls the webhooks. It holds no mutable state and is safe for concurrent use.
type Client struct {
	cfg        Config
	creds      session.CredentialSource
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for webhook calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches call metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client. Empty Config fields fall back to the defaults.
// creds may be nil, in which case the credential is always sent empty.
func New(cfg Config, creds session.CredentialSource, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.ProjectKey == "" {
		cfg.ProjectKey = defaults.ProjectKey
	}
	if cfg.QueryURL == "" {
		cfg.QueryURL = defaults.QueryURL
	}
	if cfg.ChatURL == "" {
		cfg.ChatURL = defaults.ChatURL
	}

	c := &Client{
		cfg:        cfg,
		creds:      creds,
		httpClient: http.DefaultClient,
		logger:     slog.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client's effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// DoQuery sends a query to the query webhook and returns the decoded JSON reply.
func (c *Client) DoQuery(ctx context.Context, query string) (json.RawMessage, error) {
	return c.doFetch(ctx, OpQuery, c.cfg.QueryURL, map[string]any{"query": query}, nil, nil)
}

// SubmitChatMessage sends a chat message and returns the AI reply.
func (c *Client) SubmitChatMessage(ctx context.Context, message string) (*ChatResponse, error) {
	var resp ChatResponse
	if _, err := c.doFetch(ctx, OpChat, c.cfg.ChatURL, map[string]any{"message": message}, chatSchema, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doFetch merges body with the fixed fields, POSTs it to url and returns the JSON reply,
// checked against schema when one is given and decoded into out when it is non-nil.
// The fixed fields overwrite caller fields of the same name.
func (c *Client) doFetch(ctx context.Context, op, url string, body map[string]any, schema *gojsonschema.Schema, out any) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(op, outcomeOf(err), time.Since(start).Seconds())
	}()

	payload := make(map[string]any, len(body)+2)
	for k, v := range body {
		payload[k] = v
	}
	payload[fieldProjectKey] = c.cfg.ProjectKey
	payload[fieldAdminUserKey] = c.adminUserKey(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	callID := uuid.NewString()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("webhook call failed", "call_id", callID, "op", op, "endpoint", url, "duration", time.Since(start), "error", err)
		return nil, fmt.Errorf("posting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}

	c.logger.Debug("webhook call",
		"call_id", callID,
		"op", op,
		"endpoint", url,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(respBody),
	)

	if c.cfg.StrictStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &StatusError{Endpoint: url, StatusCode: resp.StatusCode, Body: respBody}
	}

	if !json.Valid(respBody) {
		return nil, &DecodeError{Endpoint: url, StatusCode: resp.StatusCode, Body: respBody, Err: errNotJSON}
	}
	if schema != nil {
		if err := validate(schema, respBody); err != nil {
			return nil, &DecodeError{Endpoint: url, StatusCode: resp.StatusCode, Body: respBody, Err: err}
		}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, &DecodeError{Endpoint: url, StatusCode: resp.StatusCode, Body: respBody, Err: err}
		}
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) adminUserKey(ctx context.Context) string {
	if c.creds == nil {
		return ""
	}
	return c.creds.AdminUserKey(ctx)
}

// outcomeOf maps a call error onto its metrics label.
func outcomeOf(err error) string {
	switch err.(type) {
	case nil:
		return OutcomeOK
	case *DecodeError:
		return OutcomeDecode
	case *StatusError:
		return OutcomeStatus
	default:
		return OutcomeTransport
	}
}
