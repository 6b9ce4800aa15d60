package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/go-chi/chi/v5"
)

type snapshotService interface {
	Save(ctx context.Context, patch domain.SnapshotPatch) (domain.OfflineSnapshot, error)
	Load(ctx context.Context) (domain.OfflineSnapshot, error)
}

type snapshotHandler struct {
	encoder encoder
	service snapshotService
}

func newSnapshotHandler(encoder encoder, service snapshotService) *snapshotHandler {
	return &snapshotHandler{
		encoder: encoder,
		service: service,
	}
}

func (h snapshotHandler) Routes(r chi.Router) {
	r.Get("/", h.getSnapshot)
	r.Put("/", h.saveSnapshot)
}

func (h snapshotHandler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Load(r.Context())
	if err != nil {
		h.encoder.Error(w, err)
		return
	}

	h.encoder.StatusResponse(r.Context(), w, snap, http.StatusOK)
}

func (h snapshotHandler) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	var patch domain.SnapshotPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.encoder.StatusError(w, http.StatusBadRequest, errors.Wrap(err, "malformed request body"))
		return
	}

	snap, err := h.service.Save(r.Context(), patch)
	if err != nil {
		h.encoder.Error(w, err)
		return
	}

	h.encoder.StatusResponse(r.Context(), w, snap, http.StatusOK)
}
