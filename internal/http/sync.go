package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/go-chi/chi/v5"
)

type syncService interface {
	Enqueue(ctx context.Context, m domain.Mutation) (domain.SyncQueueItem, error)
	Flush(ctx context.Context)
	Queue() []domain.SyncQueueItem
	State() domain.SyncState
}

type syncHandler struct {
	encoder encoder
	service syncService
}

func newSyncHandler(encoder encoder, service syncService) *syncHandler {
	return &syncHandler{
		encoder: encoder,
		service: service,
	}
}

func (h syncHandler) Routes(r chi.Router) {
	r.Get("/status", h.getStatus)
	r.Get("/queue", h.getQueue)
	r.Post("/queue", h.enqueue)
	r.Post("/flush", h.flush)
}

func (h syncHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	h.encoder.StatusResponse(r.Context(), w, h.service.State(), http.StatusOK)
}

func (h syncHandler) getQueue(w http.ResponseWriter, r *http.Request) {
	h.encoder.StatusResponse(r.Context(), w, h.service.Queue(), http.StatusOK)
}

type enqueueRequest struct {
	Entity    domain.SyncEntity    `json:"entity"`
	Operation domain.SyncOperation `json:"operation"`
	Payload   json.RawMessage      `json:"payload"`
}

func (h syncHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.encoder.StatusError(w, http.StatusBadRequest, errors.Wrap(err, "malformed request body"))
		return
	}

	mutation, err := decodeMutation(req)
	if err != nil {
		h.encoder.StatusError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.service.Enqueue(r.Context(), mutation)
	if err != nil {
		h.encoder.Error(w, err)
		return
	}

	h.encoder.StatusCreatedData(w, item)
}

func (h syncHandler) flush(w http.ResponseWriter, r *http.Request) {
	h.service.Flush(r.Context())
	h.encoder.StatusResponse(r.Context(), w, h.service.State(), http.StatusOK)
}

// decodeMutation maps an entity/operation pair onto its typed mutation.
// Pairs outside the table are rejected before they can reach the queue.
func decodeMutation(req enqueueRequest) (domain.Mutation, error) {
	unmarshal := func(dest interface{}) error {
		if len(req.Payload) == 0 {
			return errors.New("missing payload")
		}
		return json.Unmarshal(req.Payload, dest)
	}

	switch {
	case req.Entity == domain.SyncEntityGame && req.Operation == domain.SyncOpCreate:
		var m domain.CreateGame
		if err := unmarshal(&m); err != nil {
			return nil, err
		}
		return m, nil
	case req.Entity == domain.SyncEntityGame && req.Operation == domain.SyncOpUpdate:
		var m domain.UpdateGameStatus
		if err := unmarshal(&m); err != nil {
			return nil, err
		}
		return m, nil
	case req.Entity == domain.SyncEntityGame && req.Operation == domain.SyncOpDelete:
		var m domain.DeleteGame
		if err := unmarshal(&m); err != nil {
			return nil, err
		}
		return m, nil
	case req.Entity == domain.SyncEntityVenue && req.Operation == domain.SyncOpUpdate:
		var m domain.UpdateVenue
		if err := unmarshal(&m); err != nil {
			return nil, err
		}
		return m, nil
	case req.Entity == domain.SyncEntityUser && req.Operation == domain.SyncOpUpdate:
		var m domain.UpdateUser
		if err := unmarshal(&m); err != nil {
			return nil, err
		}
		return m, nil
	case req.Entity == domain.SyncEntityProfile && req.Operation == domain.SyncOpUpdate:
		var m domain.UpdateProfile
		if err := unmarshal(&m); err != nil {
			return nil, err
		}
		return m, nil
	}

	return nil, errors.New("unsupported mutation: %s %s", req.Operation, req.Entity)
}
