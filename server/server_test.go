package server_test

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/commit"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/server"
	"github.com/diffeo-labs/atomic-data-go/store/memstore"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))
	srv := server.New(s, "https://localhost", nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, "https://localhost"
}

func TestGetResourceReturnsJSONAD(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/resources/" + url.QueryEscape(ids.ClassClass))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ids.ClassClass, body["@id"])
}

func TestGetMissingResourceReturns404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/resources/" + url.QueryEscape("https://localhost/nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/resolve?path=" + url.QueryEscape("class description"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["value"])
}

func TestPostCommitAppliesAndReturnsStoredCommit(t *testing.T) {
	ts, baseURL := newTestServer(t)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := commit.AgentSubject(baseURL, pub)

	builder := commit.NewBuilder(baseURL+"/thing", signer, 1).
		WithSet(ids.Shortname, "thing").
		WithSet(ids.Description, "a thing")
	signed, err := builder.Sign(priv)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]interface{}{
		"subject":    signed.Subject,
		"created_at": signed.CreatedAt,
		"signer":     signed.Signer,
		"set":        signed.Set,
		"signature":  signed.Signature,
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/commits", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/resources/" + url.QueryEscape(baseURL+"/thing"))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestPostImportBulkInsertsJSONAD(t *testing.T) {
	ts, _ := newTestServer(t)

	payload, err := json.Marshal([]map[string]interface{}{
		{"@id": "https://localhost/bulk-1", ids.Shortname: "bulk-1"},
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/import", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/resources/" + url.QueryEscape("https://localhost/bulk-1"))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestPostCommitBadSignatureReturns401(t *testing.T) {
	ts, baseURL := newTestServer(t)

	payload, err := json.Marshal(map[string]interface{}{
		"subject":    baseURL + "/thing",
		"created_at": 1,
		"signer":     baseURL + "/agents/not-a-real-key",
		"set":        map[string]string{ids.Shortname: "thing"},
		"signature":  "bm90LWEtcmVhbC1zaWduYXR1cmU=",
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/commits", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
