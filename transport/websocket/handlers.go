package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
)

const (
	actionConnect = "connect"
	actionStart   = "game:start"
	actionCurrent = "game:current"
	actionAnswer  = "game:answer"
	actionUndo    = "game:undo"
	actionWin     = "game:win"
	actionReject  = "game:reject"
	actionCheck   = "game:check"
	actionConfirm = "game:confirm"
	actionTeach   = "game:teach"
	actionStats   = "stats"
)

// handleConnect binds the connection to a session id from the payload, if
// one is given, and replies with the current game.
func (that *Server) handleConnect(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(c, msg.Action, "invalid payload")
	}

	if payload.SessionID != "" {
		c.sessionID = payload.SessionID
	}

	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.Current(ctx, c.sessionID)
	})
}

func (that *Server) handleStart(ctx context.Context, c *client, msg *Message) error {
	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.Start(ctx, c.sessionID)
	})
}

func (that *Server) handleCurrent(ctx context.Context, c *client, msg *Message) error {
	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.Current(ctx, c.sessionID)
	})
}

func (that *Server) handleAnswer(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(c, msg.Action, "invalid payload")
	}

	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.Answer(ctx, c.sessionID, payload.Choice)
	})
}

func (that *Server) handleUndo(ctx context.Context, c *client, msg *Message) error {
	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.Undo(ctx, c.sessionID)
	})
}

func (that *Server) handleWin(ctx context.Context, c *client, msg *Message) error {
	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.ConfirmWin(ctx, c.sessionID)
	})
}

func (that *Server) handleReject(ctx context.Context, c *client, msg *Message) error {
	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.RejectGuess(ctx, c.sessionID)
	})
}

func (that *Server) handleCheck(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(c, msg.Action, "invalid payload")
	}

	check, err := that.game.CheckTitle(ctx, c.sessionID, usecase.TitleRequest{Name: payload.Name})
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	return that.sendMessage(c, msg.Action, ResponsePayload{Title: check})
}

func (that *Server) handleConfirm(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(c, msg.Action, "invalid payload")
	}

	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.ConfirmTitle(ctx, c.sessionID, usecase.TitleRequest{Name: payload.Name})
	})
}

func (that *Server) handleTeach(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(c, msg.Action, "invalid payload")
	}

	req := usecase.TeachRequest{Question: payload.Question, Side: payload.Side}

	return that.replyView(c, msg.Action, func() (*usecase.View, error) {
		return that.game.Teach(ctx, c.sessionID, req)
	})
}

func (that *Server) handleStats(ctx context.Context, c *client, msg *Message) error {
	summary, err := that.game.Stats(ctx)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	return that.sendMessage(c, msg.Action, ResponsePayload{Stats: summary})
}

func (that *Server) replyView(c *client, action string, fn func() (*usecase.View, error)) error {
	view, err := fn()
	if err != nil {
		return that.replyError(c, action, err)
	}

	return that.sendMessage(c, action, ResponsePayload{Game: view})
}

// replyError reports domain errors to the client as is and hides the rest.
func (that *Server) replyError(c *client, action string, err error) error {
	switch {
	case errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrInvalidChoice),
		errors.Is(err, apperror.ErrInvalidTransition),
		errors.Is(err, apperror.ErrInvalidState),
		errors.Is(err, apperror.ErrNoPendingTitle),
		errors.Is(err, apperror.ErrConflict):
		return that.sendErrorResponse(c, action, err.Error())
	}

	if sendErr := that.sendErrorResponse(c, action, "internal error"); sendErr != nil {
		return sendErr
	}

	return fmt.Errorf("failed to handle %s: %w", action, err)
}

func decodePayload(msg *Message) (*RequestPayload, error) {
	var payload RequestPayload
	if len(msg.Payload) == 0 {
		return &payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &payload, nil
}
