package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthline/chartpress/internal/artifact"
	"github.com/hearthline/chartpress/internal/domain"
)

func testServer(t *testing.T) (*Server, *artifact.Memory) {
	t.Helper()
	store := artifact.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", store, logger), store
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestListArtifacts(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, domain.NewArtifact("maps/a.svg", "image/svg+xml", []byte("<svg/>"))))
	require.NoError(t, store.Put(ctx, domain.NewArtifact("spikes/b.html", "text/html", []byte("<html/>"))))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Artifacts []string `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"maps/a.svg", "spikes/b.html"}, body.Artifacts)
}

func TestGetArtifact(t *testing.T) {
	srv, store := testServer(t)
	require.NoError(t, store.Put(context.Background(),
		domain.NewArtifact("maps/a.svg", "image/svg+xml", []byte("<svg/>"))))

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/maps/a.svg", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, "<svg/>", rec.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/maps/nope.svg", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
