package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 12 * time.Second

const maxErrorBody = 4096

type HTTPClient struct {
	baseURL    string
	identity   identity.Provider
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewHTTPClient(baseURL string, id identity.Provider, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		identity:   id,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) ListAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var resp map[string][]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/"+collection, nil, true, &resp); err != nil {
		return nil, err
	}
	records, ok := resp[collection]
	if !ok {
		return nil, fmt.Errorf("%w: response has no %q field", ErrSyncFailure, collection)
	}
	return records, nil
}

func (c *HTTPClient) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var resp json.RawMessage
	endpoint := "/" + collection + "?id=" + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) Create(ctx context.Context, collection string, record any) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/"+collection, record, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) Update(ctx context.Context, collection, id string, partial any) (json.RawMessage, error) {
	body, err := withID(id, partial)
	if err != nil {
		return nil, err
	}
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/"+collection, body, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+collection, map[string]string{"id": id}, true, nil)
}

func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp struct {
		Salt []byte `json:"salt"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/salt", map[string]string{"username": username}, false, &resp); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

func (c *HTTPClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	req := map[string]any{"username": username, "salt": salt, "verifier": verifier}
	return c.do(ctx, http.MethodPost, "/auth/register", req, false, nil)
}

func (c *HTTPClient) Login(ctx context.Context, username string, verifier []byte) (*LoginResult, error) {
	req := map[string]any{"username": username, "verifier": verifier}
	var resp LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) PresignPhotoUpload(ctx context.Context, contentType string) (*PresignedURL, error) {
	var resp PresignedURL
	if err := c.do(ctx, http.MethodPost, "/photos/upload-url", map[string]string{"contentType": contentType}, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) PresignPhotoDownload(ctx context.Context, key string) (*PresignedURL, error) {
	var resp PresignedURL
	if err := c.do(ctx, http.MethodPost, "/photos/download-url", map[string]string{"key": key}, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, false, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any, auth bool, out any) error {
	var token string
	if auth {
		token = identity.AccessToken(c.identity)
		if token == "" {
			return ErrUnauthenticated
		}
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrValidation, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, &buf)
	if err != nil {
		return mapError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return mapStatus(resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return mapError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// withID flattens partial into a JSON object and sets its "id" field.
func withID(id string, partial any) (map[string]any, error) {
	fields := map[string]any{}
	if partial != nil {
		raw, err := json.Marshal(partial)
		if err != nil {
			return nil, fmt.Errorf("%w: encode record: %v", ErrValidation, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: record is not an object: %v", ErrValidation, err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	fields["id"] = id
	return fields, nil
}
