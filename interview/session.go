// Package interview walks a user through the location, tool and dialogue
// stages and decides when to ask the model for its closing report.
package interview

import (
	"fmt"
	"strings"
	"time"

	"phronesis/models"
	"phronesis/prompts"
	"phronesis/report"
)

// DefaultClosingThreshold is the user turn count at which the closing
// directive starts being appended
const DefaultClosingThreshold = 5

// EffectKind names work the caller must perform after a transition
type EffectKind string

const (
	EffectSendToModel   EffectKind = "send_to_model"
	EffectPersistReport EffectKind = "persist_report"
	EffectShowError     EffectKind = "show_error"
)

// ModelRequest is what must be forwarded to the chat collaborator
type ModelRequest struct {
	History []models.ChatMessage
	Message string
	Opening bool
	Closing bool
}

// Effect is one piece of work produced by a transition
type Effect struct {
	Kind    EffectKind
	Request ModelRequest
	Report  models.Report
	Err     error
}

// Transition describes the result of a successful session operation
type Transition struct {
	From       models.Stage
	To         models.Stage
	Effects    []Effect
	Turn       *models.DialogueTurn
	Extraction *models.ExtractionResult
}

// Options configures a Session
type Options struct {
	ClosingThreshold int
	Catalog          models.Catalog
	Now              func() time.Time
}

// Session is the state of one user's interview. It is not safe for concurrent
// use; the Registry hands it to one caller at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	stage     models.Stage
	choice    models.ArchetypeChoice
	turns     []models.DialogueTurn
	turnCount int
	report    models.Report

	openingPrompt   string
	awaitingOpening bool
	pending         bool

	threshold int
	catalog   models.Catalog
	now       func() time.Time
}

// NewSession creates a session in the first stage
func NewSession(id string, opts Options) *Session {
	if opts.ClosingThreshold <= 0 {
		opts.ClosingThreshold = DefaultClosingThreshold
	}
	if opts.Catalog.Locations == nil && opts.Catalog.Tools == nil {
		opts.Catalog = models.DefaultCatalog()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		ID:        id,
		CreatedAt: opts.Now(),
		stage:     models.StageChooseLocation,
		threshold: opts.ClosingThreshold,
		catalog:   opts.Catalog,
		now:       opts.Now,
	}
}

// Stage returns the current stage
func (s *Session) Stage() models.Stage { return s.stage }

// Choice returns the recorded archetypes
func (s *Session) Choice() models.ArchetypeChoice { return s.choice }

// TurnCount returns the number of user turns recorded in the dialogue stage
func (s *Session) TurnCount() int { return s.turnCount }

// Report returns the structured report once the session is complete
func (s *Session) Report() models.Report { return s.report }

// AwaitingOpening reports whether the opening model turn is still outstanding
func (s *Session) AwaitingOpening() bool { return s.awaitingOpening }

// Pending reports whether a model request is in flight
func (s *Session) Pending() bool { return s.pending }

// Threshold returns the closing threshold
func (s *Session) Threshold() int { return s.threshold }

// Catalog returns the catalog the session describes archetypes with
func (s *Session) Catalog() models.Catalog { return s.catalog }

// Turns returns a copy of the dialogue turns in order
func (s *Session) Turns() []models.DialogueTurn {
	out := make([]models.DialogueTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// History returns the conversation as the model has seen it: the opening
// prompt followed by every turn. The welcome greeting is never included.
func (s *Session) History() []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(s.turns)+1)
	if s.openingPrompt != "" {
		out = append(out, models.ChatMessage{Speaker: models.SpeakerUser, Text: s.openingPrompt})
	}
	for _, t := range s.turns {
		out = append(out, models.ChatMessage{Speaker: t.Speaker, Text: t.Text})
	}
	return out
}

// ChooseLocation records the location archetype
func (s *Session) ChooseLocation(loc models.Location) (Transition, error) {
	const op = "choose_location"
	if s.stage != models.StageChooseLocation {
		return Transition{}, transitionErr(op, s.stage, "")
	}
	parsed, err := models.ParseLocation(string(loc))
	if err != nil {
		return Transition{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidInput, err)
	}

	from := s.stage
	s.choice.Location = parsed
	s.stage = models.StageChooseTool
	return Transition{From: from, To: s.stage}, nil
}

// ChooseTool records the tool archetype, enters the dialogue stage and asks
// for the opening model turn
func (s *Session) ChooseTool(tool models.Tool) (Transition, error) {
	const op = "choose_tool"
	if s.stage != models.StageChooseTool {
		return Transition{}, transitionErr(op, s.stage, "")
	}
	parsed, err := models.ParseTool(string(tool))
	if err != nil {
		return Transition{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidInput, err)
	}

	from := s.stage
	s.choice.Tool = parsed
	s.stage = models.StageDialogue
	s.openingPrompt = prompts.BuildOpeningPrompt(s.catalog, s.choice)
	s.awaitingOpening = true
	s.pending = true

	return Transition{
		From:    from,
		To:      s.stage,
		Effects: []Effect{s.openingEffect()},
	}, nil
}

// RetryOpening re-issues the opening request after it failed
func (s *Session) RetryOpening() (Transition, error) {
	const op = "retry_opening"
	if s.stage != models.StageDialogue || !s.awaitingOpening {
		return Transition{}, transitionErr(op, s.stage, "no opening turn outstanding")
	}
	if s.pending {
		return Transition{}, transitionErr(op, s.stage, "request already in flight")
	}

	s.pending = true
	return Transition{
		From:    s.stage,
		To:      s.stage,
		Effects: []Effect{s.openingEffect()},
	}, nil
}

func (s *Session) openingEffect() Effect {
	return Effect{
		Kind: EffectSendToModel,
		Request: ModelRequest{
			Message: s.openingPrompt,
			Opening: true,
		},
	}
}

// SubmitUserTurn records a user utterance and returns the request to forward.
// Once the turn count reaches the threshold the outgoing message carries the
// closing directive; the stored turn does not.
func (s *Session) SubmitUserTurn(text string) (Transition, error) {
	const op = "submit_user_turn"
	switch {
	case s.stage != models.StageDialogue:
		return Transition{}, transitionErr(op, s.stage, "")
	case s.awaitingOpening:
		return Transition{}, transitionErr(op, s.stage, "opening turn not received yet")
	case s.pending:
		return Transition{}, transitionErr(op, s.stage, "request already in flight")
	}
	if strings.TrimSpace(text) == "" {
		return Transition{}, fmt.Errorf("%s: %w: empty text", op, ErrInvalidInput)
	}

	prior := s.History()
	turn := s.appendTurn(models.SpeakerUser, text)
	s.turnCount++
	s.pending = true

	req := ModelRequest{History: prior, Message: text}
	if s.turnCount >= s.threshold {
		req.Message = prompts.WithClosingDirective(text)
		req.Closing = true
	}

	return Transition{
		From:    s.stage,
		To:      s.stage,
		Turn:    &turn,
		Effects: []Effect{{Kind: EffectSendToModel, Request: req}},
	}, nil
}

// RecordAgentResponse folds a model response into the session. The display
// text is always appended as an agent turn; a recovered report completes the
// interview.
func (s *Session) RecordAgentResponse(raw string) (Transition, error) {
	const op = "record_agent_response"
	if s.stage != models.StageDialogue {
		return Transition{}, transitionErr(op, s.stage, "")
	}
	if !s.pending {
		return Transition{}, transitionErr(op, s.stage, "no request in flight")
	}

	ext := report.Extract(raw)
	from := s.stage
	turn := s.appendTurn(models.SpeakerAgent, ext.DisplayText)
	s.pending = false
	s.awaitingOpening = false

	tr := Transition{From: from, Turn: &turn, Extraction: &ext}
	if ext.HasReport() {
		s.report = ext.Report
		s.stage = models.StageComplete
		tr.Effects = append(tr.Effects, Effect{Kind: EffectPersistReport, Report: ext.Report})
	}
	tr.To = s.stage
	return tr, nil
}

// RecordModelFailure clears the in-flight request after the chat collaborator
// failed. The session stays in the dialogue stage and the user may retry.
func (s *Session) RecordModelFailure(cause error) (Transition, error) {
	const op = "record_model_failure"
	if s.stage != models.StageDialogue || !s.pending {
		return Transition{}, transitionErr(op, s.stage, "no request in flight")
	}

	s.pending = false
	return Transition{
		From:    s.stage,
		To:      s.stage,
		Effects: []Effect{{Kind: EffectShowError, Err: cause}},
	}, nil
}

func (s *Session) appendTurn(speaker models.Speaker, text string) models.DialogueTurn {
	turn := models.DialogueTurn{
		Speaker:       speaker,
		Text:          text,
		SequenceIndex: len(s.turns),
		CreatedAt:     s.now(),
	}
	s.turns = append(s.turns, turn)
	return turn
}
