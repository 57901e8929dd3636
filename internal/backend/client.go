// Package backend is the HTTP client for the archive API. It keeps the
// signed-in session, refreshes expired tokens and reports auth changes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshSkew = 30 * time.Second

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

// Client talks to the archive API under /api/v1
type Client struct {
	baseURL string
	http    *http.Client
	store   SessionStore
	logger  zerolog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	session   *domain.AuthSession
	listeners map[int]AuthListener
	nextID    int

	refreshGroup singleflight.Group
}

// NewClient creates a client and restores any persisted session.
// A nil httpClient uses http.DefaultClient; request deadlines come from the
// caller's context.
func NewClient(baseURL string, httpClient *http.Client, store SessionStore, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if store == nil {
		store = &MemorySessionStore{}
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/") + "/api/v1",
		http:      httpClient,
		store:     store,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]AuthListener),
	}

	session, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("Discarding unreadable session")
		_ = store.Clear()
	}
	c.session = session
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, mode authMode) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if mode != authNone {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		if token == "" && mode == authRequired {
			return &APIError{Status: http.StatusUnauthorized, Code: "not_authenticated", Message: "You are not signed in."}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "invalid_response", Message: "Unexpected response from server"}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Error) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(env.Error, &body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(env.Error, &msg); err == nil && msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}
