package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotService struct {
	snap    domain.OfflineSnapshot
	loadErr error
	patches []domain.SnapshotPatch
}

func (f *fakeSnapshotService) Load(context.Context) (domain.OfflineSnapshot, error) {
	return f.snap, f.loadErr
}

func (f *fakeSnapshotService) Save(_ context.Context, patch domain.SnapshotPatch) (domain.OfflineSnapshot, error) {
	f.patches = append(f.patches, patch)
	if patch.Games != nil {
		f.snap.Games = patch.Games
	}
	if patch.Venues != nil {
		f.snap.Venues = patch.Venues
	}
	if patch.User != nil {
		f.snap.User = patch.User
	}
	f.snap.LastUpdated = time.Now()
	return f.snap, nil
}

func newSnapshotRouter(svc snapshotService) *chi.Mux {
	router := chi.NewRouter()
	newSnapshotHandler(encoder{}, svc).Routes(router)
	return router
}

func TestSnapshotHandler_Get(t *testing.T) {
	svc := &fakeSnapshotService{snap: domain.OfflineSnapshot{
		Games: []domain.Game{{ID: "g1"}},
	}}
	router := newSnapshotRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var snap domain.OfflineSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.Len(t, snap.Games, 1)
	assert.Equal(t, "g1", snap.Games[0].ID)
}

func TestSnapshotHandler_Get_ServiceError(t *testing.T) {
	svc := &fakeSnapshotService{loadErr: errors.New("store unavailable")}
	router := newSnapshotRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSnapshotHandler_Put(t *testing.T) {
	svc := &fakeSnapshotService{}
	router := newSnapshotRouter(svc)

	body := `{"venues":[{"id":"v1","name":"Jade Tiger"}]}`
	req := httptest.NewRequest("PUT", "/", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, svc.patches, 1)
	require.Len(t, svc.patches[0].Venues, 1)
	assert.Equal(t, "Jade Tiger", svc.patches[0].Venues[0].Name)
	assert.Nil(t, svc.patches[0].Games)
}

func TestSnapshotHandler_Put_RejectsMalformedBody(t *testing.T) {
	svc := &fakeSnapshotService{}
	router := newSnapshotRouter(svc)

	req := httptest.NewRequest("PUT", "/", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.patches)
}
