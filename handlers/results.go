package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"phronesis/models"
)

type ResultsResponse struct {
	Results []models.ResultRow `json:"results"`
	Count   int                `json:"count"`
	Total   int64              `json:"total"`
	HasMore bool               `json:"has_more"`
}

// ResultsHandler lists persisted interview results, newest first
func (s *Server) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, "result persistence is disabled")
		return
	}

	limit, offset := pagination(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rows, total, err := s.results.ListResults(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch results")
		return
	}
	if rows == nil {
		rows = []models.ResultRow{}
	}

	writeJSON(w, http.StatusOK, ResultsResponse{
		Results: rows,
		Count:   len(rows),
		Total:   total,
		HasMore: int64(offset+limit) < total,
	})
}
