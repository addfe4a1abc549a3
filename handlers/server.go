package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"phronesis/interview"
	"phronesis/models"
)

// ResultLister reads persisted interview results
type ResultLister interface {
	ListResults(ctx context.Context, limit, offset int) ([]models.ResultRow, int64, error)
}

// Server exposes interview sessions over HTTP
type Server struct {
	registry     *interview.Registry
	conductor    *interview.Conductor
	catalog      models.Catalog
	results      ResultLister
	logger       *zap.Logger
	modelTimeout time.Duration
}

// Options wires the server's collaborators. Results may be nil when
// persistence is disabled.
type Options struct {
	Registry     *interview.Registry
	Conductor    *interview.Conductor
	Catalog      models.Catalog
	Results      ResultLister
	Logger       *zap.Logger
	ModelTimeout time.Duration
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 60 * time.Second
	}
	return &Server{
		registry:     opts.Registry,
		conductor:    opts.Conductor,
		catalog:      opts.Catalog,
		results:      opts.Results,
		logger:       opts.Logger.Named("http"),
		modelTimeout: opts.ModelTimeout,
	}
}

// Routes returns the request multiplexer
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/archetypes", s.handleArchetypes)
	mux.HandleFunc("/results", s.ResultsHandler)

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.CreateSessionHandler)

	// /sessions/{id} and /sessions/{id}/{action}
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return mux
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.GetSessionHandler(w, r, id)
		case http.MethodDelete:
			s.DeleteSessionHandler(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	action := parts[1]
	if action == "history" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.HistoryHandler(w, r, id)
		return
	}

	var handler func(http.ResponseWriter, *http.Request, string)
	switch action {
	case "location":
		handler = s.LocationHandler
	case "tool":
		handler = s.ToolHandler
	case "opening":
		handler = s.OpeningHandler
	case "messages":
		handler = s.MessageHandler
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	handler(w, r, id)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.registry.Len(),
	})
}

func (s *Server) handleArchetypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.catalog)
}

// withSession acquires the session for the duration of fn
func (s *Server) withSession(w http.ResponseWriter, id string, fn func(*interview.Session)) {
	session, release, err := s.registry.Acquire(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	defer release()
	fn(session)
}

type errorResponse struct {
	Error string       `json:"error"`
	Stage models.Stage `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps interview errors to status codes
func writeErr(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var te *interview.TransitionError
	if errors.As(err, &te) {
		resp.Stage = te.Stage
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrSessionBusy),
		errors.Is(err, interview.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, interview.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
