package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ownyourdata/semcon/internal/logging"
	"github.com/ownyourdata/semcon/internal/server/auth"
	"github.com/ownyourdata/semcon/internal/server/config"
	"github.com/ownyourdata/semcon/internal/server/repositories/repomanager"
	"github.com/ownyourdata/semcon/internal/server/services"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{}
		cfg.LoadDefaults()
	}

	rm := repomanager.NewMemoryRepositoryManager()
	log := logging.NewNopLogger()
	store := services.NewStoreService(nil, rm, log)
	query := services.NewQueryService(nil, rm, log)
	gate := auth.NewGate(cfg.AuthEnabled, []byte(cfg.SecretKey), rm.DIDs(nil))

	srv := NewServer(cfg, log, store, query, gate, "1.0.0-test")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestWriteDedupScenario(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"a":1,"b":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first struct {
		DRI string `json:"dri"`
		ID  int64  `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &first))
	require.NotEmpty(t, first.DRI)

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"b":2,"a":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second struct {
		DRI string `json:"dri"`
		ID  int64  `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &second))
	require.Equal(t, first, second)

	// Still exactly one record.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/data", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("total-count"))

	var listing []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing, 1)
}

func TestReadByLocatorAndFormats(t *testing.T) {
	ts := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"a":1,"meta":{"schema":"Thing"}}`)
	var ref struct {
		DRI string `json:"dri"`
		ID  int64  `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &ref))

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/data?dri=%s&f=plain", ts.URL, ref.DRI), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"a":1}`, string(body))

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/data?id=%d", ts.URL, ref.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var full map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &full))
	require.JSONEq(t, `{"a":1}`, string(full["data"]))
	require.JSONEq(t, `{"schema":"Thing"}`, string(full["meta"]))

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/data?dri=zQmMissing", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, string(body), "error")
}

func TestUpdateCollisionOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	_, bodyA := doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"n":"a"}`)
	_, bodyB := doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"n":"b"}`)

	var a, b struct {
		DRI string `json:"dri"`
		ID  int64  `json:"id"`
	}
	require.NoError(t, json.Unmarshal(bodyA, &a))
	require.NoError(t, json.Unmarshal(bodyB, &b))

	resp, body := doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/data?id=%d", ts.URL, a.ID), `{"n":"b"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		DRI     string `json:"dri"`
		ID      int64  `json:"id"`
		Removed *struct {
			DRI string `json:"dri"`
			ID  int64  `json:"id"`
		} `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.Equal(t, b.ID, res.ID)
	require.NotNil(t, res.Removed)
	require.Equal(t, a.ID, res.Removed.ID)
	require.Equal(t, a.DRI, res.Removed.DRI)
}

func TestDeleteOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"x":1}`)
	var ref struct {
		DRI string `json:"dri"`
		ID  int64  `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &ref))

	resp, _ := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/data?dri=%s", ts.URL, ref.DRI), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/data?id=%d", ts.URL, ref.ID), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/data", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContainmentQueryOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"n":1,"meta":{"processed":true}}`)
	doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"n":2,"meta":{"processed":false}}`)
	doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"n":3}`)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/data",
		`{"query":{"meta-not":{"processed":true}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "2", resp.Header.Get("total-count"))

	var listing []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing, 2)
}

func TestPaginationHeaders(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 0; i < 5; i++ {
		doJSON(t, http.MethodPost, ts.URL+"/api/data", fmt.Sprintf(`{"n":%d}`, i))
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/data?page=2&items=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "2", resp.Header.Get("current-page"))
	require.Equal(t, "3", resp.Header.Get("total-pages"))
	require.Equal(t, "5", resp.Header.Get("total-count"))
	require.Equal(t, "2", resp.Header.Get("page-items"))

	var listing []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing, 2)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/data?page=all", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("total-pages"))
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing, 5)
}

func TestAuthorizationGateOverHTTP(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AuthEnabled = true
	cfg.TokenValidityDuration = time.Minute
	cfg.Clients = []config.ClientCredential{
		{ID: "owner", Secret: "s1", PublicKey: "zOwner"},
		{ID: "stranger", Secret: "s2", PublicKey: "zStranger"},
	}
	ts := newTestServer(t, cfg)

	body := `{
		"did-document": {"key": "zOwner:zRevoke", "log": "https://log.example/x@ptr"},
		"did-log": [{"op": "create"}, {"op": "terminate"}],
		"data": {"value": 7}
	}`
	resp, out := doJSON(t, http.MethodPost, ts.URL+"/api/data", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var didRes struct {
		DID string `json:"did"`
	}
	require.NoError(t, json.Unmarshal(out, &didRes))
	require.Contains(t, didRes.DID, "did:oyd:")

	// The listing is gated too, so locate the record with the owner token.
	ownerToken := fetchToken(t, ts.URL, "owner", "s1")
	resp, out = authedGet(t, ts.URL+"/api/data", ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(out, &listing))
	require.Len(t, listing, 1)
	url := fmt.Sprintf("%s/api/data?id=%d", ts.URL, listing[0].ID)

	// No token.
	resp, out = doJSON(t, http.MethodGet, url, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"error":"Not authorized"}`, string(out))

	// Wrong key.
	strangerToken := fetchToken(t, ts.URL, "stranger", "s2")
	resp, out = authedGet(t, url, strangerToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"error":"Not authorized"}`, string(out))

	// Owner key.
	resp, out = authedGet(t, url, ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(out), `"value":7`)
}

func TestAuthorizationGateCoversListings(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AuthEnabled = true
	cfg.TokenValidityDuration = time.Minute
	cfg.Clients = []config.ClientCredential{
		{ID: "owner", Secret: "s1", PublicKey: "zOwner"},
	}
	ts := newTestServer(t, cfg)

	// One DID-owned record and one public record.
	anchored := `{
		"did-document": {"key": "zOwner:zRevoke"},
		"did-log": [{"op": "create"}],
		"data": {"value": 7, "meta": {"schema": "Owned"}}
	}`
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/data", anchored)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"open":true,"meta":{"schema":"Public"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Tokenless multi-record reads touching the owned record are rejected.
	reads := []struct {
		name string
		url  string
		body string
	}{
		{"full listing", ts.URL + "/api/data", ""},
		{"schema filter", ts.URL + "/api/data?schema=Owned", ""},
		{"containment query", ts.URL + "/api/data", `{"query":{"data":{"value":7}}}`},
	}
	for _, read := range reads {
		resp, out := doJSON(t, http.MethodGet, read.url, read.body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, read.name)
		require.JSONEq(t, `{"error":"Not authorized"}`, string(out), read.name)
	}

	// Reads resolving only public records stay open.
	resp, out := doJSON(t, http.MethodGet, ts.URL+"/api/data?schema=Public", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(out), `"open":true`)

	// The owner's token opens every path.
	ownerToken := fetchToken(t, ts.URL, "owner", "s1")
	resp, out = authedGet(t, ts.URL+"/api/data", ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "2", resp.Header.Get("total-count"))
	require.Contains(t, string(out), `"value":7`)
}

func fetchToken(t *testing.T, baseURL, clientID, secret string) string {
	t.Helper()
	body := fmt.Sprintf(`{"client_id":%q,"client_secret":%q,"grant_type":"client_credentials"}`, clientID, secret)
	resp, out := doJSON(t, http.MethodPost, baseURL+"/oauth/token", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, "Bearer", res.TokenType)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func authedGet(t *testing.T, url, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Clients = []config.ClientCredential{{ID: "c", Secret: "good"}}
	ts := newTestServer(t, cfg)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/oauth/token",
		`{"client_id":"c","client_secret":"bad","grant_type":"client_credentials"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"error":"Not authorized"}`, string(body))

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/oauth/token",
		`{"client_id":"c","client_secret":"good","grant_type":"password"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServiceEndpoints(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ContainerName = "test container"
	cfg.ContainerDescription = "a container"
	cfg.Scopes = []string{"read"}
	ts := newTestServer(t, cfg)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/version", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"version":"1.0.0-test"}`, string(body))

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/active", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"active":true,"auth":false,"repos":false,"scopes":["read"]}`, string(body))

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/meta/info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"name":"test container","description":"a container"}`, string(body))

	doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"a":1,"meta":{"schema":"Thing"}}`)
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/meta/schemas", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `["Thing"]`, string(body))
}

func TestSchemaFilterForcesArrayOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	doJSON(t, http.MethodPost, ts.URL+"/api/data", `{"a":1,"meta":{"schema":"Thing"}}`)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/data?schema=Thing", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing, 1)
}

func TestMalformedWriteRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/data", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "error")
}
