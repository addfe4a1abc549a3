package handlers

import (
	"net/http"
	"strconv"

	"phronesis/interview"
	"phronesis/models"
)

type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	Turns     []models.DialogueTurn `json:"turns"`
	Total     int64                 `json:"total"`
	HasMore   bool                  `json:"has_more"`
}

// HistoryHandler pages through the dialogue turns of a session
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request, id string) {
	limit, offset := pagination(r)

	s.withSession(w, id, func(session *interview.Session) {
		turns := session.Turns()
		total := int64(len(turns))

		start := min(offset, len(turns))
		end := min(start+limit, len(turns))

		writeJSON(w, http.StatusOK, HistoryResponse{
			SessionID: session.ID,
			Turns:     turns[start:end],
			Total:     total,
			HasMore:   int64(offset+limit) < total,
		})
	})
}

// pagination reads limit and offset, defaulting to 50 and capping at 100
func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
