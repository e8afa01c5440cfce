package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/compete-engine/internal/explore"
	"github.com/terra-clan/compete-engine/internal/models"
)

const defaultPageLimit = 50

// SearchRequest is the JSON body of POST /competitions/search
type SearchRequest struct {
	Filter    models.FilterSpec `json:"filter"`
	Sort      string            `json:"sort,omitempty"`
	Ascending bool              `json:"ascending,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
}

func filterFromQuery(r *http.Request) models.FilterSpec {
	spec := models.DefaultFilterSpec()
	spec.Search = r.URL.Query().Get("search")
	spec.Category = queryValues(r, "category")
	spec.Difficulty = queryValues(r, "difficulty")
	spec.TimeCommitment = queryValues(r, "timeCommitment")
	spec.QuickFilters = queryValues(r, "quick")
	return spec
}

func (s *Server) handleListCompetitions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultPageLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "offset must be a non-negative integer")
		return
	}

	opts := explore.ListOptions{
		Filter:    filterFromQuery(r),
		Sort:      r.URL.Query().Get("sort"),
		Ascending: r.URL.Query().Get("order") == "asc",
		Limit:     limit,
		Offset:    offset,
	}

	s.list(w, r, opts)
}

func (s *Server) handleSearchCompetitions(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Limit < 0 || req.Offset < 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "limit and offset must be non-negative")
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultPageLimit
	}

	s.list(w, r, explore.ListOptions{
		Filter:    req.Filter,
		Sort:      req.Sort,
		Ascending: req.Ascending,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, opts explore.ListOptions) {
	now := NowFromContext(r.Context(), s.clock)

	res, err := s.explorer.List(r.Context(), opts, now)
	if err != nil {
		switch {
		case errors.Is(err, explore.ErrUnknownQuickFilter):
			respondError(w, http.StatusBadRequest, "unknown_quick_filter", err.Error())
		case errors.Is(err, explore.ErrInvalidSortKey):
			respondError(w, http.StatusBadRequest, "invalid_sort", err.Error())
		default:
			slog.Error("failed to list competitions", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to list competitions")
		}
		return
	}

	filterMatches.Observe(float64(res.Total))
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", explore.DefaultUpcomingDays)
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "days must be a non-negative integer")
		return
	}

	views, err := s.explorer.Upcoming(r.Context(), days, NowFromContext(r.Context(), s.clock))
	if err != nil {
		slog.Error("failed to list upcoming competitions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list upcoming competitions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"competitions": views,
		"total":        len(views),
		"days":         days,
	})
}

func (s *Server) handleGetCompetition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "competition id is required")
		return
	}

	view, err := s.explorer.Get(r.Context(), id, NowFromContext(r.Context(), s.clock))
	if err != nil {
		if errors.Is(err, explore.ErrCompetitionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "competition not found")
			return
		}
		slog.Error("failed to get competition", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get competition")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := s.explorer.Facets(r.Context())
	if err != nil {
		slog.Error("failed to compute facets", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute facets")
		return
	}

	respondJSON(w, http.StatusOK, facets)
}

func (s *Server) handleQuickFilters(w http.ResponseWriter, r *http.Request) {
	names := s.explorer.QuickFilters()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"quickFilters": names,
		"total":        len(names),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.explorer.Stats(r.Context())
	if err != nil {
		slog.Error("failed to compute stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
