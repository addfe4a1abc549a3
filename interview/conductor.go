package interview

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"phronesis/models"
)

// ChatClient forwards a message and its prior history to the hosted model
type ChatClient interface {
	Send(ctx context.Context, history []models.ChatMessage, message string) (string, error)
}

// ResultSink appends the summary row of a completed interview
type ResultSink interface {
	AppendResult(ctx context.Context, row models.ResultRow) error
}

// Reply is what a front-end shows after one operation
type Reply struct {
	SessionID   string               `json:"session_id"`
	Stage       models.Stage         `json:"stage"`
	TurnCount   int                  `json:"turn_count"`
	UserTurn    *models.DialogueTurn `json:"user_turn,omitempty"`
	AgentTurn   *models.DialogueTurn `json:"agent_turn,omitempty"`
	Report      models.Report        `json:"report,omitempty"`
	ParseFailed bool                 `json:"parse_failed,omitempty"`
	Persisted   bool                 `json:"persisted,omitempty"`
	ModelError  string               `json:"error,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// Conductor drives sessions: it applies an operation and performs the
// effects the resulting transition asks for
type Conductor struct {
	chat   ChatClient
	sink   ResultSink
	logger *zap.Logger
	now    func() time.Time
}

// NewConductor wires the collaborators. sink may be nil, in which case
// completed reports are not persisted.
func NewConductor(chat ChatClient, sink ResultSink, logger *zap.Logger) *Conductor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conductor{
		chat:   chat,
		sink:   sink,
		logger: logger.Named("conductor"),
		now:    time.Now,
	}
}

// ChooseLocation records the location archetype
func (c *Conductor) ChooseLocation(s *Session, loc models.Location) (*Reply, error) {
	if _, err := s.ChooseLocation(loc); err != nil {
		return nil, err
	}
	c.log(s).Info("location chosen", zap.String("location", string(loc)))
	return c.reply(s), nil
}

// ChooseTool records the tool archetype and fetches the opening model turn
func (c *Conductor) ChooseTool(ctx context.Context, s *Session, tool models.Tool) (*Reply, error) {
	tr, err := s.ChooseTool(tool)
	if err != nil {
		return nil, err
	}
	c.log(s).Info("tool chosen", zap.String("tool", string(tool)))

	out := c.reply(s)
	if err := c.apply(ctx, s, tr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RetryOpening asks for the opening model turn again after a failure
func (c *Conductor) RetryOpening(ctx context.Context, s *Session) (*Reply, error) {
	tr, err := s.RetryOpening()
	if err != nil {
		return nil, err
	}

	out := c.reply(s)
	if err := c.apply(ctx, s, tr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit records a user turn and runs the model round trip. Model and
// persistence failures are reported inside the Reply, not as errors.
func (c *Conductor) Submit(ctx context.Context, s *Session, text string) (*Reply, error) {
	tr, err := s.SubmitUserTurn(text)
	if err != nil {
		return nil, err
	}

	out := c.reply(s)
	out.UserTurn = tr.Turn
	if err := c.apply(ctx, s, tr, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conductor) apply(ctx context.Context, s *Session, tr Transition, out *Reply) error {
	for _, eff := range tr.Effects {
		switch eff.Kind {
		case EffectSendToModel:
			if err := c.send(ctx, s, eff.Request, out); err != nil {
				return err
			}
		case EffectPersistReport:
			out.Report = eff.Report
			c.persist(ctx, s, eff.Report, out)
		case EffectShowError:
			out.ModelError = fmt.Sprintf("System Error: %v", eff.Err)
		}
	}

	out.Stage = s.Stage()
	out.TurnCount = s.TurnCount()
	return nil
}

func (c *Conductor) send(ctx context.Context, s *Session, req ModelRequest, out *Reply) error {
	log := c.log(s)
	start := time.Now()
	log.Debug("sending to model",
		zap.Int("history_len", len(req.History)),
		zap.Bool("opening", req.Opening),
		zap.Bool("closing", req.Closing))

	raw, err := c.chat.Send(ctx, req.History, req.Message)
	if err != nil {
		log.Warn("model request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		next, ferr := s.RecordModelFailure(err)
		if ferr != nil {
			return ferr
		}
		return c.apply(ctx, s, next, out)
	}

	next, err := s.RecordAgentResponse(raw)
	if err != nil {
		return err
	}
	out.AgentTurn = next.Turn
	if next.Extraction != nil && next.Extraction.ParseFailed {
		out.ParseFailed = true
		log.Warn("report block could not be parsed, showing raw response")
	}
	log.Info("model replied",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("stage", string(next.To)))

	return c.apply(ctx, s, next, out)
}

func (c *Conductor) persist(ctx context.Context, s *Session, rep models.Report, out *Reply) {
	log := c.log(s)
	if c.sink == nil {
		log.Warn("result persistence is not configured, skipping")
		out.Warnings = append(out.Warnings, "결과 저장소가 설정되지 않아 저장을 건너뛰었습니다.")
		return
	}

	row := models.NewResultRow(s.ID, c.now(), s.Catalog(), s.Choice(), rep, s.Turns())
	if err := c.sink.AppendResult(ctx, row); err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		log.Warn("failed to persist result", zap.Error(err))
		out.Warnings = append(out.Warnings, "결과 저장에 실패했습니다: "+err.Error())
		return
	}
	out.Persisted = true
	log.Info("result persisted", zap.String("title", row.Title))
}

func (c *Conductor) reply(s *Session) *Reply {
	return &Reply{
		SessionID: s.ID,
		Stage:     s.Stage(),
		TurnCount: s.TurnCount(),
	}
}

func (c *Conductor) log(s *Session) *zap.Logger {
	return c.logger.With(
		zap.String("session_id", s.ID),
		zap.String("stage", string(s.Stage())),
		zap.Int("turn_count", s.TurnCount()),
	)
}
