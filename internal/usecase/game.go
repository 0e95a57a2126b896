package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

const (
	outcomeWon  = "won"
	outcomeLost = "lost"

	resultOK     = "ok"
	resultFailed = "failed"
)

var validate = validator.New()

type TitleRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type TeachRequest struct {
	Question string `json:"question" validate:"required,max=300"`
	Side     string `json:"side" validate:"required,oneof=yes no"`
}

// View is what a transport renders after every interaction: a question
// prompt, a guess prompt or a finished game.
type View struct {
	SessionID    string       `json:"session_id"`
	State        entity.State `json:"state"`
	Step         int          `json:"step"`
	NodeID       int64        `json:"node_id"`
	Text         string       `json:"text"`
	ImageURL     string       `json:"image_url,omitempty"`
	CanUndo      bool         `json:"can_undo"`
	PendingTitle string       `json:"pending_title,omitempty"`
}

type TitleCheck struct {
	Input   string `json:"input"`
	Title   string `json:"title,omitempty"`
	Found   bool   `json:"found"`
	Message string `json:"message,omitempty"`
}

type sessionRepo interface {
	Save(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

type gameSession interface {
	Start(ctx context.Context, session *entity.Session) (*entity.Node, error)
	Current(ctx context.Context, session *entity.Session) (*entity.Node, error)
	Answer(ctx context.Context, session *entity.Session, side entity.Side) (*entity.Node, error)
	Undo(ctx context.Context, session *entity.Session) (*entity.Node, error)
	ConfirmWin(ctx context.Context, session *entity.Session) (*entity.Node, error)
	RejectGuess(ctx context.Context, session *entity.Session) (*entity.Node, error)
}

type teacher interface {
	Teach(ctx context.Context, leafID int64, newTitle, question string, side entity.Side) (*entity.Node, error)
}

type statsReporter interface {
	Summary(ctx context.Context) (*entity.Summary, error)
}

type oracle interface {
	LookupImage(ctx context.Context, name string) string
	ValidateName(ctx context.Context, name string) (string, bool)
}

type recorder interface {
	SessionStarted()
	Answered(side string)
	Undone()
	Finished(outcome string)
	Taught(result string)
}

type GameUseCase struct {
	logger *slog.Logger

	sessions sessionRepo
	game     gameSession
	teacher  teacher
	stats    statsReporter
	oracle   oracle
	metrics  recorder
}

func NewGameUseCase(
	logger *slog.Logger,
	sessions sessionRepo,
	game gameSession,
	teacher teacher,
	stats statsReporter,
	oracle oracle,
	metrics recorder,
) *GameUseCase {
	return &GameUseCase{
		logger:   logger.With("component", "game"),
		sessions: sessions,
		game:     game,
		teacher:  teacher,
		stats:    stats,
		oracle:   oracle,
		metrics:  metrics,
	}
}

// NewSession issues a fresh session id and starts a game on it.
func (that *GameUseCase) NewSession(ctx context.Context) (*View, error) {
	return that.Start(ctx, uuid.NewString())
}

func (that *GameUseCase) Start(ctx context.Context, sessionID string) (*View, error) {
	session := entity.NewSession(sessionID)

	node, err := that.game.Start(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	if err = that.save(ctx, session); err != nil {
		return nil, err
	}

	that.metrics.SessionStarted()

	return that.view(ctx, session, node), nil
}

// Current renders the session as it is.
func (that *GameUseCase) Current(ctx context.Context, sessionID string) (*View, error) {
	session, err := that.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	node, err := that.game.Current(ctx, session)
	if err != nil {
		return nil, err
	}

	return that.view(ctx, session, node), nil
}

func (that *GameUseCase) Answer(ctx context.Context, sessionID, choice string) (*View, error) {
	side, err := entity.ParseSide(choice)
	if err != nil {
		return nil, err
	}

	return that.mutate(ctx, sessionID, func(session *entity.Session) (*entity.Node, error) {
		node, err := that.game.Answer(ctx, session, side)
		if err != nil {
			return nil, err
		}

		that.metrics.Answered(string(side))

		return node, nil
	})
}

func (that *GameUseCase) Undo(ctx context.Context, sessionID string) (*View, error) {
	return that.mutate(ctx, sessionID, func(session *entity.Session) (*entity.Node, error) {
		node, err := that.game.Undo(ctx, session)
		if err != nil {
			return nil, err
		}

		that.metrics.Undone()

		return node, nil
	})
}

func (that *GameUseCase) ConfirmWin(ctx context.Context, sessionID string) (*View, error) {
	return that.mutate(ctx, sessionID, func(session *entity.Session) (*entity.Node, error) {
		node, err := that.game.ConfirmWin(ctx, session)
		if err != nil {
			return nil, err
		}

		that.metrics.Finished(outcomeWon)

		return node, nil
	})
}

func (that *GameUseCase) RejectGuess(ctx context.Context, sessionID string) (*View, error) {
	return that.mutate(ctx, sessionID, func(session *entity.Session) (*entity.Node, error) {
		node, err := that.game.RejectGuess(ctx, session)
		if err != nil {
			return nil, err
		}

		that.metrics.Finished(outcomeLost)

		return node, nil
	})
}

// CheckTitle asks the oracle for the canonical spelling of the title the
// player had in mind. A miss is reported in the result, not as an error.
func (that *GameUseCase) CheckTitle(ctx context.Context, sessionID string, req TitleRequest) (*TitleCheck, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrValidation, err.Error())
	}

	session, err := that.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State != entity.StateLost {
		return nil, fmt.Errorf("%w: check title from %q", apperror.ErrInvalidTransition, session.State)
	}

	title, ok := that.oracle.ValidateName(ctx, req.Name)
	if !ok {
		return &TitleCheck{
			Input:   req.Name,
			Message: fmt.Sprintf("No matches found for '%s'.", req.Name),
		}, nil
	}

	return &TitleCheck{
		Input: req.Name,
		Title: title,
		Found: true,
	}, nil
}

// ConfirmTitle remembers the title to teach once the player agreed with it.
func (that *GameUseCase) ConfirmTitle(ctx context.Context, sessionID string, req TitleRequest) (*View, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrValidation, err.Error())
	}

	return that.mutate(ctx, sessionID, func(session *entity.Session) (*entity.Node, error) {
		if session.State != entity.StateLost {
			return nil, fmt.Errorf("%w: confirm title from %q", apperror.ErrInvalidTransition, session.State)
		}

		session.PendingTitle = strings.TrimSpace(req.Name)

		return that.game.Current(ctx, session)
	})
}

// Teach grows the tree with the confirmed title and starts a new game.
func (that *GameUseCase) Teach(ctx context.Context, sessionID string, req TeachRequest) (*View, error) {
	log := that.logger.With("method", "Teach", "session_id", sessionID)

	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrValidation, err.Error())
	}

	side, err := entity.ParseSide(req.Side)
	if err != nil {
		return nil, err
	}

	session, err := that.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State != entity.StateLost {
		return nil, fmt.Errorf("%w: teach from %q", apperror.ErrInvalidTransition, session.State)
	}

	if session.PendingTitle == "" {
		return nil, apperror.ErrNoPendingTitle
	}

	if _, err = that.teacher.Teach(ctx, session.CurrentNodeID, session.PendingTitle, req.Question, side); err != nil {
		that.metrics.Taught(resultFailed)

		// the leaf became a question after this game was lost
		if errors.Is(err, apperror.ErrInvalidState) || errors.Is(err, apperror.ErrConflict) {
			log.Warn("leaf was taught by another player", "node_id", session.CurrentNodeID, "error", err)
			return nil, fmt.Errorf("%w: node %d was taught meanwhile", apperror.ErrConflict, session.CurrentNodeID)
		}

		log.Error("failed to teach", "error", err)
		return nil, err
	}

	that.metrics.Taught(resultOK)

	return that.Start(ctx, sessionID)
}

// EndSession discards the session once its transport goes away. Ending an
// unknown session is not an error.
func (that *GameUseCase) EndSession(ctx context.Context, sessionID string) error {
	err := that.sessions.DeleteByID(ctx, sessionID)
	if err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

func (that *GameUseCase) Stats(ctx context.Context) (*entity.Summary, error) {
	summary, err := that.stats.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return summary, nil
}

func (that *GameUseCase) mutate(
	ctx context.Context,
	sessionID string,
	fn func(session *entity.Session) (*entity.Node, error),
) (*View, error) {
	session, err := that.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	node, err := fn(session)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidTransition) || errors.Is(err, apperror.ErrInvalidState) {
			that.logger.Error("session contract violated", "session_id", sessionID, "state", session.State, "error", err)
		}
		return nil, err
	}

	if err = that.save(ctx, session); err != nil {
		return nil, err
	}

	return that.view(ctx, session, node), nil
}

// load returns the stored session; a session the store does not know is
// started fresh at the root.
func (that *GameUseCase) load(ctx context.Context, sessionID string) (*entity.Session, error) {
	session, err := that.sessions.GetByID(ctx, sessionID)
	if err == nil {
		return session, nil
	}

	if !errors.Is(err, apperror.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session = entity.NewSession(sessionID)
	if _, err = that.game.Start(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	that.metrics.SessionStarted()

	return session, nil
}

func (that *GameUseCase) save(ctx context.Context, session *entity.Session) error {
	if err := that.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (that *GameUseCase) view(ctx context.Context, session *entity.Session, node *entity.Node) *View {
	view := &View{
		SessionID:    session.ID,
		State:        session.State,
		Step:         session.StepCount,
		NodeID:       node.ID,
		Text:         node.Text,
		CanUndo:      len(session.History) > 0,
		PendingTitle: session.PendingTitle,
	}

	if node.IsLeaf() && session.State != entity.StateLost {
		view.ImageURL = that.oracle.LookupImage(ctx, node.Text)
	}

	return view
}
