package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovehub/asset-manager/internal/api"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/mocks"
	"github.com/ovehub/asset-manager/internal/service"
)

func newWorkerHandler(t *testing.T) (*api.WorkerHandler, *mocks.FakeWorkerStore) {
	t.Helper()
	workers := mocks.NewFakeWorkerStore()
	scheduler := service.NewScheduler(mocks.NewFakeTaskStore(), workers,
		&mocks.FakeAccessChecker{AllowAll: true}, domain.StoreConfig{Name: "default"}, nil)
	return api.NewWorkerHandler(scheduler, nil), workers
}

func registerRequest(t *testing.T, name string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodPost, "/api/workers", jsonBody(t, api.RegisterWorkerRequest{
		Name:       name,
		Type:       "extract",
		Extensions: []string{".zip"},
	}))
}

func TestRegisterWorker(t *testing.T) {
	handler, workers := newWorkerHandler(t)

	rec := httptest.NewRecorder()
	handler.RegisterWorker(rec, registerRequest(t, "worker-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.WorkerDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.WorkerStatusReady, created.Status, "registration defaults to READY")

	registered, err := workers.List(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "worker-1")
	require.NoError(t, err)
	require.Len(t, registered, 1)
}

func TestRegisterWorkerDuplicateName(t *testing.T) {
	handler, _ := newWorkerHandler(t)

	handler.RegisterWorker(httptest.NewRecorder(), registerRequest(t, "worker-1"))

	rec := httptest.NewRecorder()
	handler.RegisterWorker(rec, registerRequest(t, "worker-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterWorkerMissingExtensions(t *testing.T) {
	handler, _ := newWorkerHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/workers",
		jsonBody(t, api.RegisterWorkerRequest{Name: "worker-1", Type: "extract"}))
	rec := httptest.NewRecorder()
	handler.RegisterWorker(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWorkersFilterByName(t *testing.T) {
	handler, _ := newWorkerHandler(t)
	handler.RegisterWorker(httptest.NewRecorder(), registerRequest(t, "worker-1"))
	handler.RegisterWorker(httptest.NewRecorder(), registerRequest(t, "worker-2"))

	rec := httptest.NewRecorder()
	handler.ListWorkers(rec, httptest.NewRequest(http.MethodGet, "/api/workers?name=worker-2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.WorkerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Workers, 1)
	assert.Equal(t, "worker-2", resp.Workers[0].Name)

	rec = httptest.NewRecorder()
	handler.ListWorkers(rec, httptest.NewRequest(http.MethodGet, "/api/workers", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Workers, 2)
}

func TestRemoveWorker(t *testing.T) {
	handler, workers := newWorkerHandler(t)
	handler.RegisterWorker(httptest.NewRecorder(), registerRequest(t, "worker-1"))

	req := httptest.NewRequest(http.MethodDelete, "/api/workers",
		jsonBody(t, api.RemoveWorkerRequest{Name: "worker-1"}))
	rec := httptest.NewRecorder()
	handler.RemoveWorker(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	remaining, err := workers.List(req.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRemoveWorkerUnknownName(t *testing.T) {
	handler, _ := newWorkerHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/workers",
		jsonBody(t, api.RemoveWorkerRequest{Name: "ghost"}))
	rec := httptest.NewRecorder()
	handler.RemoveWorker(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateWorkerStatus(t *testing.T) {
	handler, workers := newWorkerHandler(t)
	handler.RegisterWorker(httptest.NewRecorder(), registerRequest(t, "worker-1"))

	req := httptest.NewRequest(http.MethodPatch, "/api/workers",
		jsonBody(t, api.WorkerStatusRequest{Name: "worker-1", Status: "ERROR", ErrorMsg: "disk full"}))
	rec := httptest.NewRecorder()
	handler.UpdateWorkerStatus(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	registered, err := workers.List(req.Context(), "worker-1")
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, domain.WorkerStatusError, registered[0].Status)
	assert.Equal(t, "disk full", registered[0].Error)
}

func TestUpdateWorkerStatusInvalidValue(t *testing.T) {
	handler, _ := newWorkerHandler(t)
	handler.RegisterWorker(httptest.NewRecorder(), registerRequest(t, "worker-1"))

	req := httptest.NewRequest(http.MethodPatch, "/api/workers",
		jsonBody(t, api.WorkerStatusRequest{Name: "worker-1", Status: "SLEEPING"}))
	rec := httptest.NewRecorder()
	handler.UpdateWorkerStatus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
