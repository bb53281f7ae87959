// Package communicator implements the client's HTTP call protocol: token
// attachment per auth mode and a bounded refresh-then-retry on 401.
package communicator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ownyourdata/semcon/internal/common"
)

// AuthMode selects how a call handles the bearer token.
type AuthMode int

const (
	// AuthNone never attaches a token.
	AuthNone AuthMode = iota
	// AuthOptional attaches the cached token when present and never
	// forces a refresh.
	AuthOptional
	// AuthRequired attaches the token and retries once through the
	// refresh callback on 401.
	AuthRequired
)

// maxAttempts bounds the 401 retry loop: the original call plus exactly
// one retry after a refresh.
const maxAttempts = 2

// Response is a completed upstream exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues a single HTTP exchange. Implementations return an error
// only for connection-level failures; HTTP error statuses come back as a
// Response.
type Transport interface {
	Do(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error)
}

// RefreshFunc obtains a fresh bearer token.
type RefreshFunc func(ctx context.Context) (string, error)

// UpstreamError is a non-401 HTTP error status. It unwraps onto the
// matching sentinel so callers can errors.Is against the taxonomy.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return common.ErrInvalidInput
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusServiceUnavailable:
		return common.ErrUnavailable
	}
	return nil
}

// Communicator owns the cached token and the retry protocol. The token is
// shared mutable state: concurrent refreshes race benignly, last writer
// wins, and each retry reads whatever token is current at retry time.
type Communicator struct {
	mu        sync.Mutex
	token     string
	transport Transport
	refresh   RefreshFunc
}

func New(transport Transport, refresh RefreshFunc) *Communicator {
	return &Communicator{transport: transport, refresh: refresh}
}

// Token returns the cached bearer token.
func (c *Communicator) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetToken replaces the cached bearer token.
func (c *Communicator) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Call runs one exchange under the given auth mode.
//
// Required-auth calls that see a 401 on the first attempt invoke the
// refresh callback, replace the cached token and reissue the call exactly
// once; a second 401 is final. Optional and none modes never refresh.
func (c *Communicator) Call(ctx context.Context, method, url string, body []byte, mode AuthMode, header http.Header) (*Response, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		h := cloneHeader(header)
		if mode != AuthNone {
			if token := c.Token(); token != "" {
				h.Set(common.AuthHeaderName, "Bearer "+token)
			}
		}

		resp, err := c.transport.Do(ctx, method, url, body, h)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			if mode == AuthRequired && attempt < maxAttempts && c.refresh != nil {
				token, err := c.refresh(ctx)
				if err != nil {
					return nil, fmt.Errorf("token refresh: %w", err)
				}
				c.SetToken(token)
				continue
			}
			return nil, common.ErrUnauthorized
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: resp.Body}
		}
		return resp, nil
	}
	return nil, common.ErrUnauthorized
}

func cloneHeader(h http.Header) http.Header {
	out := http.Header{}
	for k, vs := range h {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
