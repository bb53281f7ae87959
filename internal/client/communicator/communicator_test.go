package communicator

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownyourdata/semcon/internal/common"
)

// scriptedTransport replays a fixed status sequence and records what it saw.
type scriptedTransport struct {
	statuses []int
	err      error

	calls   int
	tokens  []string
	methods []string
}

func (t *scriptedTransport) Do(_ context.Context, method, _ string, _ []byte, header http.Header) (*Response, error) {
	t.calls++
	t.methods = append(t.methods, method)
	t.tokens = append(t.tokens, header.Get("Authorization"))
	if t.err != nil {
		return nil, t.err
	}
	status := t.statuses[t.calls-1]
	return &Response{StatusCode: status, Header: http.Header{}, Body: []byte(`{}`)}, nil
}

func TestRequired_RefreshRetrySucceeds(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{401, 200}}
	refreshed := 0
	c := New(tr, func(context.Context) (string, error) {
		refreshed++
		return "fresh", nil
	})
	c.SetToken("stale")

	resp, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthRequired, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 2, tr.calls)
	assert.Equal(t, "Bearer stale", tr.tokens[0])
	assert.Equal(t, "Bearer fresh", tr.tokens[1])
	assert.Equal(t, "fresh", c.Token())
}

func TestRequired_RetryBoundIsExactlyTwoAttempts(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{401, 401, 401}}
	refreshed := 0
	c := New(tr, func(context.Context) (string, error) {
		refreshed++
		return "fresh", nil
	})
	c.SetToken("stale")

	_, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthRequired, nil)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 2, tr.calls)
	assert.Equal(t, 1, refreshed)
}

func TestRequired_RefreshFailurePropagates(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{401}}
	c := New(tr, func(context.Context) (string, error) {
		return "", errors.New("idp down")
	})

	_, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthRequired, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token refresh")
	assert.Equal(t, 1, tr.calls)
}

func TestOptional_NoTokenNoRefreshNoRetry(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{401}}
	refreshed := 0
	c := New(tr, func(context.Context) (string, error) {
		refreshed++
		return "fresh", nil
	})

	_, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthOptional, nil)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 0, refreshed)
	assert.Empty(t, tr.tokens[0])
}

func TestNone_TokenNeverAttached(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{200}}
	c := New(tr, nil)
	c.SetToken("secret")

	_, err := c.Call(context.Background(), http.MethodPost, "http://x/oauth/token", []byte(`{}`), AuthNone, nil)
	require.NoError(t, err)
	assert.Empty(t, tr.tokens[0])
}

func TestUpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{404, common.ErrNotFound},
		{400, common.ErrInvalidInput},
		{503, common.ErrUnavailable},
	}
	for _, tc := range cases {
		tr := &scriptedTransport{statuses: []int{tc.status}}
		c := New(tr, nil)

		_, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthNone, nil)
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, tc.status, upstream.StatusCode)
	}
}

func TestUpstreamError_UnmappedStatus(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{500}}
	c := New(tr, nil)

	_, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthNone, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.NotErrorIs(t, err, common.ErrUnauthorized)
}

func TestTransportFailure(t *testing.T) {
	tr := &scriptedTransport{err: errors.New("connection refused")}
	c := New(tr, nil)

	_, err := c.Call(context.Background(), http.MethodGet, "http://x/api/data", nil, AuthNone, nil)
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, 1, tr.calls)
}
