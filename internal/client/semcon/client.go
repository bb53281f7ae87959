// Package semcon is the container client: typed wrappers over the data
// surface plus token acquisition and service discovery.
package semcon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/ownyourdata/semcon/internal/client/communicator"
	"github.com/ownyourdata/semcon/internal/client/tokenstore"
	"github.com/ownyourdata/semcon/internal/common"
)

// Support is the container's /api/active self-description.
type Support struct {
	Active bool     `json:"active"`
	Auth   bool     `json:"auth"`
	Repos  bool     `json:"repos"`
	Scopes []string `json:"scopes"`
}

// Info is the container's /api/meta/info self-description.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// WriteResponse is the result of a write: dri/id for plain content, did
// for DID-anchored content.
type WriteResponse struct {
	DRI string `json:"dri"`
	ID  int64  `json:"id"`
	DID string `json:"did"`
}

// RecordRef identifies a record.
type RecordRef struct {
	DRI string `json:"dri"`
	ID  int64  `json:"id"`
}

// UpdateResponse reports where updated content lives; Removed is set when
// the update merged into another record.
type UpdateResponse struct {
	DRI     string     `json:"dri"`
	ID      int64      `json:"id"`
	Removed *RecordRef `json:"removed"`
}

// PageInfo mirrors the server's pagination headers.
type PageInfo struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	PageItems   int
}

// ItemsPage is one page of shaped records.
type ItemsPage struct {
	Items []json.RawMessage
	Page  PageInfo
}

// Query is a structured containment read.
type Query struct {
	Data    map[string]any `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	DataNot map[string]any `json:"data-not,omitempty"`
	MetaNot map[string]any `json:"meta-not,omitempty"`
}

// Options configure a Client.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Tokens persists the bearer token; defaults to an in-memory store.
	Tokens tokenstore.Store
	// Transport defaults to net/http.
	Transport communicator.Transport
}

// Client talks to one container. The support/info descriptions are
// memoized per instance and invalidated whenever the token refreshes, so
// a re-authenticated session re-reads what the container offers.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string

	comm   *communicator.Communicator
	tokens tokenstore.Store

	mu      sync.Mutex
	support *Support
	info    *Info
}

// New builds a Client and primes the token cache from the store.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", common.ErrInvalidInput)
	}
	if opts.Tokens == nil {
		opts.Tokens = tokenstore.NewMemoryStore()
	}
	if opts.Transport == nil {
		opts.Transport = communicator.NewHTTPTransport(nil)
	}

	c := &Client{
		baseURL:      opts.BaseURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		tokens:       opts.Tokens,
	}
	c.comm = communicator.New(opts.Transport, c.refreshToken)

	token, err := opts.Tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	c.comm.SetToken(token)
	return c, nil
}

// mode selects the auth mode for data calls: required when credentials
// are configured (the refresh flow can then answer a 401), optional
// otherwise.
func (c *Client) mode() communicator.AuthMode {
	if c.clientID != "" {
		return communicator.AuthRequired
	}
	return communicator.AuthOptional
}

// refreshToken exchanges the client credentials for a fresh token and
// drops the memoized service descriptions.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", err
	}

	resp, err := c.comm.Call(ctx, http.MethodPost, c.url("/oauth/token", nil), body, communicator.AuthNone, nil)
	if err != nil {
		return "", err
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if err := c.tokens.Set(ctx, res.AccessToken); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	c.invalidate()
	return res.AccessToken, nil
}

// Authenticate eagerly fetches a token. Callers may instead rely on the
// lazy 401-triggered refresh.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.refreshToken(ctx)
	if err != nil {
		return err
	}
	c.comm.SetToken(token)
	return nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.support = nil
	c.info = nil
}

// Support returns the memoized /api/active description.
func (c *Client) Support(ctx context.Context) (*Support, error) {
	c.mu.Lock()
	cached := c.support
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	resp, err := c.comm.Call(ctx, http.MethodGet, c.url("/api/active", nil), nil, communicator.AuthNone, nil)
	if err != nil {
		return nil, err
	}
	support := &Support{}
	if err := json.Unmarshal(resp.Body, support); err != nil {
		return nil, fmt.Errorf("active response: %w", err)
	}

	c.mu.Lock()
	c.support = support
	c.mu.Unlock()
	return support, nil
}

// Info returns the memoized /api/meta/info description.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	c.mu.Lock()
	cached := c.info
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	resp, err := c.comm.Call(ctx, http.MethodGet, c.url("/api/meta/info", nil), nil, c.mode(), nil)
	if err != nil {
		return nil, err
	}
	info := &Info{}
	if err := json.Unmarshal(resp.Body, info); err != nil {
		return nil, fmt.Errorf("info response: %w", err)
	}

	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	return info, nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.comm.Call(ctx, http.MethodGet, c.url("/version", nil), nil, communicator.AuthNone, nil)
	if err != nil {
		return "", err
	}
	var res struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return "", fmt.Errorf("version response: %w", err)
	}
	return res.Version, nil
}

// PostData writes a raw envelope body (any shape the server accepts).
func (c *Client) PostData(ctx context.Context, body []byte) (*WriteResponse, error) {
	resp, err := c.comm.Call(ctx, http.MethodPost, c.url("/api/data", nil), body, c.mode(), nil)
	if err != nil {
		return nil, err
	}
	res := &WriteResponse{}
	if err := json.Unmarshal(resp.Body, res); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return res, nil
}

// PostItem writes one item. A string item that already holds serialized
// JSON is passed through as is; anything else (including non-JSON
// strings) is marshalled.
func (c *Client) PostItem(ctx context.Context, item any) (*WriteResponse, error) {
	body, err := itemBody(item)
	if err != nil {
		return nil, err
	}
	return c.PostData(ctx, body)
}

// UpdateItem rewrites the record at loc with a new envelope body.
func (c *Client) UpdateItem(ctx context.Context, loc Locator, body []byte) (*UpdateResponse, error) {
	resp, err := c.comm.Call(ctx, http.MethodPut, c.url("/api/data", loc.query()), body, c.mode(), nil)
	if err != nil {
		return nil, err
	}
	res := &UpdateResponse{}
	if err := json.Unmarshal(resp.Body, res); err != nil {
		return nil, fmt.Errorf("update response: %w", err)
	}
	return res, nil
}

// DeleteItem removes the record at loc.
func (c *Client) DeleteItem(ctx context.Context, loc Locator) (*RecordRef, error) {
	resp, err := c.comm.Call(ctx, http.MethodDelete, c.url("/api/data", loc.query()), nil, c.mode(), nil)
	if err != nil {
		return nil, err
	}
	ref := &RecordRef{}
	if err := json.Unmarshal(resp.Body, ref); err != nil {
		return nil, fmt.Errorf("delete response: %w", err)
	}
	return ref, nil
}

// GetItem reads one record by locator, shaped by format ("" for full).
func (c *Client) GetItem(ctx context.Context, loc Locator, format string) (json.RawMessage, error) {
	q := loc.query()
	if format != "" {
		q.Set("f", format)
	}
	resp, err := c.comm.Call(ctx, http.MethodGet, c.url("/api/data", q), nil, c.mode(), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetItems reads a page of records.
func (c *Client) GetItems(ctx context.Context, opts ListOptions) (*ItemsPage, error) {
	return c.list(ctx, opts.query(), nil)
}

// GetMetaItems reads a page of identity+meta projections.
func (c *Client) GetMetaItems(ctx context.Context, opts ListOptions) (*ItemsPage, error) {
	opts.Format = "meta"
	return c.list(ctx, opts.query(), nil)
}

// QueryItems runs a structured containment read.
func (c *Client) QueryItems(ctx context.Context, query Query, opts ListOptions) (*ItemsPage, error) {
	body, err := json.Marshal(map[string]Query{"query": query})
	if err != nil {
		return nil, err
	}
	return c.list(ctx, opts.query(), body)
}

// Schemas lists the distinct schema values known to the container.
func (c *Client) Schemas(ctx context.Context) ([]string, error) {
	resp, err := c.comm.Call(ctx, http.MethodGet, c.url("/api/meta/schemas", nil), nil, c.mode(), nil)
	if err != nil {
		return nil, err
	}
	var schemas []string
	if err := json.Unmarshal(resp.Body, &schemas); err != nil {
		return nil, fmt.Errorf("schemas response: %w", err)
	}
	return schemas, nil
}

func (c *Client) list(ctx context.Context, q url.Values, body []byte) (*ItemsPage, error) {
	resp, err := c.comm.Call(ctx, http.MethodGet, c.url("/api/data", q), body, c.mode(), nil)
	if err != nil {
		return nil, err
	}

	page := &ItemsPage{Page: pageInfo(resp.Header)}
	if err := json.Unmarshal(resp.Body, &page.Items); err != nil {
		return nil, fmt.Errorf("list response: %w", err)
	}
	return page, nil
}

func pageInfo(h http.Header) PageInfo {
	return PageInfo{
		CurrentPage: headerInt(h, "current-page"),
		TotalPages:  headerInt(h, "total-pages"),
		TotalCount:  headerInt(h, "total-count"),
		PageItems:   headerInt(h, "page-items"),
	}
}

func headerInt(h http.Header, name string) int {
	n, _ := strconv.Atoi(h.Get(name))
	return n
}

// itemBody serializes an item for the wire, passing pre-serialized JSON
// strings through untouched.
func itemBody(item any) ([]byte, error) {
	if s, ok := item.(string); ok && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	body, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return body, nil
}
