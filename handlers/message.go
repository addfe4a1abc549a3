package handlers

import (
	"context"
	"net/http"

	"phronesis/interview"
	"phronesis/models"
	"phronesis/prompts"
)

type LocationRequest struct {
	Location string `json:"location"`
}

type ToolRequest struct {
	Tool string `json:"tool"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

// StageResponse is a conductor reply plus what the front-end should ask next
type StageResponse struct {
	*interview.Reply
	Prompt  string             `json:"prompt,omitempty"`
	Options []models.Archetype `json:"options,omitempty"`
}

func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req LocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}

	s.withSession(w, id, func(session *interview.Session) {
		reply, err := s.conductor.ChooseLocation(session, models.Location(req.Location))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StageResponse{
			Reply:   reply,
			Prompt:  prompts.ToolQuestion,
			Options: s.catalog.Tools,
		})
	})
}

// ToolHandler records the tool and returns the opening model turn
func (s *Server) ToolHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req ToolRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}

	s.withSession(w, id, func(session *interview.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), s.modelTimeout)
		defer cancel()

		reply, err := s.conductor.ChooseTool(ctx, session, models.Tool(req.Tool))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StageResponse{Reply: reply})
	})
}

// OpeningHandler retries a failed opening turn
func (s *Server) OpeningHandler(w http.ResponseWriter, r *http.Request, id string) {
	s.withSession(w, id, func(session *interview.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), s.modelTimeout)
		defer cancel()

		reply, err := s.conductor.RetryOpening(ctx, session)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StageResponse{Reply: reply})
	})
}

// MessageHandler submits a user turn and waits for the model's reply. Model
// and persistence failures come back inline with a 200.
func (s *Server) MessageHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req MessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}

	s.withSession(w, id, func(session *interview.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), s.modelTimeout)
		defer cancel()

		reply, err := s.conductor.Submit(ctx, session, req.Text)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StageResponse{Reply: reply})
	})
}
