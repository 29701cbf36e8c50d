package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cametumbling/badge-crawler/internal/authn"
	"github.com/cametumbling/badge-crawler/internal/badge"
	"github.com/cametumbling/badge-crawler/internal/ingest"
	"github.com/cametumbling/badge-crawler/internal/queue"
	"github.com/cametumbling/badge-crawler/internal/store"
)

const adminKey = "admin-secret"

func newTestServer(t *testing.T) (*httptest.Server, *authn.Authenticator) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := store.New(rdb)
	q := queue.New(db)
	auth := authn.New(db, adminKey)
	badges, err := badge.New(t.TempDir())
	require.NoError(t, err)

	s := New(db, auth, q, badges, zap.NewNop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, auth
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestCreateAccountRequiresAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/create_account", "", "someone")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/create_account", adminKey, "someone")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotEmpty(t, string(body))
}

func TestSubmitRejectsBadURL(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/submit", adminKey, "not-a-url")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/submit", adminKey, "https://a.example/")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestWorkRoundTrip(t *testing.T) {
	srv, auth := newTestServer(t)
	ctx := context.Background()

	token, err := auth.CreateAccount(ctx, "worker one")
	require.NoError(t, err)

	resp := do(t, http.MethodPost, srv.URL+"/submit", adminKey, "https://a.example/")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/work", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "https://a.example/", string(body))

	resp = do(t, http.MethodGet, srv.URL+"/work", token, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	report := ingest.WorkReport{OrigURL: "https://a.example/", ResultURL: "https://a.example/", Success: true}
	payload, err := json.Marshal(report)
	require.NoError(t, err)
	resp = do(t, http.MethodPost, srv.URL+"/work", token, string(payload))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestBadgeUploadAndFetch(t *testing.T) {
	srv, auth := newTestServer(t)
	ctx := context.Background()
	token, err := auth.CreateAccount(ctx, "worker badges")
	require.NoError(t, err)

	hash := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	resp := do(t, http.MethodPost, srv.URL+"/badge/"+hash, token, "PNGDATA")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/badge/"+hash, token, "PNGDATA")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/badge/"+hash, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "PNGDATA", string(body))
}

func TestGraphRequiresAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/graph", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/graph", adminKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatisticsIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/statistics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats Statistics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
}
