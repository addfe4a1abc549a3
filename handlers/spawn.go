package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"phronesis/interview"
	"phronesis/models"
	"phronesis/prompts"
)

type SpawnResponse struct {
	SessionID string             `json:"session_id"`
	Stage     models.Stage       `json:"stage"`
	Welcome   string             `json:"welcome"`
	Options   []models.Archetype `json:"options"`
}

type SessionResponse struct {
	SessionID       string                 `json:"session_id"`
	Stage           models.Stage           `json:"stage"`
	Choice          models.ArchetypeChoice `json:"choice"`
	TurnCount       int                    `json:"turn_count"`
	Threshold       int                    `json:"closing_threshold"`
	AwaitingOpening bool                   `json:"awaiting_opening"`
	Turns           []models.DialogueTurn  `json:"turns"`
	Report          models.Report          `json:"report,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// CreateSessionHandler starts an interview and returns the welcome greeting
// with the location options
func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	session := s.registry.Create()
	s.logger.Info("session created", zap.String("session_id", session.ID))

	writeJSON(w, http.StatusCreated, SpawnResponse{
		SessionID: session.ID,
		Stage:     session.Stage(),
		Welcome:   prompts.WelcomeMessage,
		Options:   s.catalog.Locations,
	})
}

func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request, id string) {
	s.withSession(w, id, func(session *interview.Session) {
		writeJSON(w, http.StatusOK, sessionResponse(session))
	})
}

func (s *Server) DeleteSessionHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !s.registry.Delete(id) {
		writeErr(w, interview.ErrSessionNotFound)
		return
	}
	s.logger.Info("session deleted", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func sessionResponse(session *interview.Session) SessionResponse {
	return SessionResponse{
		SessionID:       session.ID,
		Stage:           session.Stage(),
		Choice:          session.Choice(),
		TurnCount:       session.TurnCount(),
		Threshold:       session.Threshold(),
		AwaitingOpening: session.AwaitingOpening(),
		Turns:           session.Turns(),
		Report:          session.Report(),
		CreatedAt:       session.CreatedAt,
	}
}
