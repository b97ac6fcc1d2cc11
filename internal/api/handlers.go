package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/places-ingest/internal/ingest"
	"github.com/sells-group/places-ingest/internal/store"
)

// maxBodyBytes caps the search request body.
const maxBodyBytes = 1 << 20

type handlers struct {
	searcher Searcher
	places   PlaceReader
}

type detailBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write JSON response failed", zap.String("component", "api"), zap.Error(err))
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailBody{Detail: detail})
}

func unexpected(msg string) string {
	return "Unexpected error: " + msg
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.places != nil {
		if err := h.places.Ping(r.Context()); err != nil {
			zap.L().Warn("health check failed", zap.String("component", "api"), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var req ingest.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		var ve *ingest.ValidationError
		if errors.As(err, &ve) {
			writeDetail(w, http.StatusBadRequest, ve.Msg)
			return
		}
		zap.L().Error("search failed", zap.String("component", "api"), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, unexpected(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getPlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "placeID")
	place, err := h.places.GetPlace(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Place not found")
			return
		}
		zap.L().Error("get place failed", zap.String("component", "api"), zap.String("place_id", id), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, unexpected(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, place)
}
