package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/compete-engine/internal/explore"
)

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	views, err := s.explorer.Saved(r.Context(), NowFromContext(r.Context(), s.clock))
	if err != nil {
		slog.Error("failed to list saved competitions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list saved competitions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"competitions": views,
		"total":        len(views),
	})
}

func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", 0)
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "days must be a non-negative integer")
		return
	}

	views, err := s.explorer.Panic(r.Context(), days, NowFromContext(r.Context(), s.clock))
	if err != nil {
		slog.Error("failed to list panic room", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list panic room")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"competitions": views,
		"total":        len(views),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.setSaved(w, r, true)
}

func (s *Server) handleUnsave(w http.ResponseWriter, r *http.Request) {
	s.setSaved(w, r, false)
}

func (s *Server) setSaved(w http.ResponseWriter, r *http.Request, saved bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "competition id is required")
		return
	}

	var err error
	if saved {
		err = s.explorer.Save(r.Context(), id)
	} else {
		err = s.explorer.Unsave(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, explore.ErrCompetitionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "competition not found")
			return
		}
		slog.Error("failed to update saved state", "error", err, "id", id, "saved", saved)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update saved state")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":    id,
		"saved": saved,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.explorer.Sync(r.Context())
	if err != nil {
		if errors.Is(err, explore.ErrSyncDisabled) {
			respondError(w, http.StatusServiceUnavailable, "sync_disabled", err.Error())
			return
		}
		slog.Error("saved sync failed", "error", err)
		respondError(w, http.StatusBadGateway, "sync_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}
