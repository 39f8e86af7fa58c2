package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/mocks"
	"github.com/ovehub/asset-manager/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testDirectory struct {
	*mocks.FakeAssetStore
	*mocks.FakeAccessChecker
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.FakeAssetStore) {
	t.Helper()
	assets := mocks.NewFakeAssetStore()
	access := &mocks.FakeAccessChecker{AllowAll: true}
	scheduler := service.NewScheduler(mocks.NewFakeTaskStore(), mocks.NewFakeWorkerStore(),
		access, domain.StoreConfig{Name: "default"}, nil)
	return buildRouter(scheduler, &testDirectory{assets, access}, testSecret, nil), assets
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          "alice",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"write_groups": []string{"team-a"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestQueueEndpointsRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workers/queue", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScheduleAndListThroughRouter(t *testing.T) {
	router, assets := newTestRouter(t)

	meta := domain.NewAssetMeta("asset-1", "Archive", "project-a")
	meta.Filename = "archive.zip"
	meta.Upload()
	assets.PutMeta("project-a", meta)

	body, err := json.Marshal(map[string]any{
		"store_id":    "default",
		"project_id":  "project-a",
		"asset_id":    "asset-1",
		"worker_type": "extract",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/workers/queue", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/workers/queue", nil)
	req.Header.Set("Authorization", bearerToken(t))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asset-1")
}

func TestWorkerRegistryThroughRouter(t *testing.T) {
	router, _ := newTestRouter(t)

	body, err := json.Marshal(map[string]any{
		"name":       "worker-1",
		"type":       "extract",
		"extensions": []string{".zip"},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workers", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "worker-1")
}
