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
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncService struct {
	state   domain.SyncState
	queue   []domain.SyncQueueItem
	flushes int

	enqueued []domain.Mutation
}

func (f *fakeSyncService) Enqueue(_ context.Context, m domain.Mutation) (domain.SyncQueueItem, error) {
	f.enqueued = append(f.enqueued, m)
	payload, _ := json.Marshal(m)
	item := domain.SyncQueueItem{
		ID:         "test-item",
		Operation:  m.Operation(),
		Entity:     m.Entity(),
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	f.queue = append(f.queue, item)
	f.state.PendingCount = len(f.queue)
	return item, nil
}

func (f *fakeSyncService) Flush(context.Context) { f.flushes++ }

func (f *fakeSyncService) Queue() []domain.SyncQueueItem { return f.queue }

func (f *fakeSyncService) State() domain.SyncState { return f.state }

func newSyncRouter(svc syncService) *chi.Mux {
	router := chi.NewRouter()
	newSyncHandler(encoder{}, svc).Routes(router)
	return router
}

func TestSyncHandler_GetStatus(t *testing.T) {
	svc := &fakeSyncService{state: domain.SyncState{IsOnline: true, PendingCount: 2, LastError: "nope"}}
	router := newSyncRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var state domain.SyncState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.True(t, state.IsOnline)
	assert.Equal(t, 2, state.PendingCount)
	assert.Equal(t, "nope", state.LastError)
}

func TestSyncHandler_GetQueue(t *testing.T) {
	svc := &fakeSyncService{queue: []domain.SyncQueueItem{
		{ID: "a", Entity: domain.SyncEntityGame, Operation: domain.SyncOpCreate},
		{ID: "b", Entity: domain.SyncEntityProfile, Operation: domain.SyncOpUpdate},
	}}
	router := newSyncRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/queue", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var items []domain.SyncQueueItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
}

func TestSyncHandler_Enqueue(t *testing.T) {
	svc := &fakeSyncService{}
	router := newSyncRouter(svc)

	body := `{"entity":"GAME","operation":"CREATE","payload":{"game":{"id":"g1"}}}`
	req := httptest.NewRequest("POST", "/queue", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, svc.enqueued, 1)

	m, ok := svc.enqueued[0].(domain.CreateGame)
	require.True(t, ok)
	assert.Equal(t, "g1", m.Game.ID)

	var item domain.SyncQueueItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &item))
	assert.Equal(t, domain.SyncEntityGame, item.Entity)
	assert.Equal(t, domain.SyncOpCreate, item.Operation)
}

func TestSyncHandler_Enqueue_RejectsUnsupportedPair(t *testing.T) {
	svc := &fakeSyncService{}
	router := newSyncRouter(svc)

	body := `{"entity":"VENUE","operation":"DELETE","payload":{}}`
	req := httptest.NewRequest("POST", "/queue", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.enqueued)
}

func TestSyncHandler_Enqueue_RejectsMalformedBody(t *testing.T) {
	svc := &fakeSyncService{}
	router := newSyncRouter(svc)

	req := httptest.NewRequest("POST", "/queue", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSyncHandler_Flush(t *testing.T) {
	svc := &fakeSyncService{state: domain.SyncState{IsOnline: true}}
	router := newSyncRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/flush", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, svc.flushes)
}

func TestDecodeMutation_AllSupportedPairs(t *testing.T) {
	cases := []struct {
		entity    domain.SyncEntity
		operation domain.SyncOperation
		payload   string
	}{
		{domain.SyncEntityGame, domain.SyncOpCreate, `{"game":{"id":"g"}}`},
		{domain.SyncEntityGame, domain.SyncOpUpdate, `{"game_id":"g","status":"completed"}`},
		{domain.SyncEntityGame, domain.SyncOpDelete, `{"game_id":"g"}`},
		{domain.SyncEntityVenue, domain.SyncOpUpdate, `{"venue":{"id":"v"}}`},
		{domain.SyncEntityUser, domain.SyncOpUpdate, `{"user":{"id":"u"}}`},
		{domain.SyncEntityProfile, domain.SyncOpUpdate, `{"profile":{"user_id":"u"}}`},
	}

	for _, tc := range cases {
		t.Run(string(tc.entity)+"/"+string(tc.operation), func(t *testing.T) {
			m, err := decodeMutation(enqueueRequest{
				Entity:    tc.entity,
				Operation: tc.operation,
				Payload:   json.RawMessage(tc.payload),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.entity, m.Entity())
			assert.Equal(t, tc.operation, m.Operation())
		})
	}
}

func TestDecodeMutation_PayloadFieldsCarried(t *testing.T) {
	m, err := decodeMutation(enqueueRequest{
		Entity:    domain.SyncEntityGame,
		Operation: domain.SyncOpUpdate,
		Payload:   json.RawMessage(`{"game_id":"g9","status":"cancelled"}`),
	})
	require.NoError(t, err)

	upd, ok := m.(domain.UpdateGameStatus)
	require.True(t, ok)
	assert.Equal(t, "g9", upd.GameID)
	assert.Equal(t, domain.GameStatusCancelled, upd.Status)
}

func TestDecodeMutation_MissingPayload(t *testing.T) {
	_, err := decodeMutation(enqueueRequest{
		Entity:    domain.SyncEntityGame,
		Operation: domain.SyncOpCreate,
	})
	assert.Error(t, err)
}
