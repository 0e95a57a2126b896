package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
)

const sessionCookieName = "user_session"

type answerRequest struct {
	Choice string `json:"choice"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := that.game.Stats(r.Context())
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, summary)
}

func (that *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var (
		view *usecase.View
		err  error
	)

	if sessionID, ok := sessionFromCookie(r); ok {
		view, err = that.game.Start(r.Context(), sessionID)
	} else {
		view, err = that.game.NewSession(r.Context())
	}

	if err != nil {
		that.writeError(w, r, err)
		return
	}

	setSessionCookie(w, view.SessionID)
	that.writeJSON(w, http.StatusOK, view)
}

func (that *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.Current(r.Context(), sessionID)
	})
}

func (that *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !that.decode(w, r, &req) {
		return
	}

	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.Answer(r.Context(), sessionID, req.Choice)
	})
}

func (that *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.Undo(r.Context(), sessionID)
	})
}

func (that *Server) handleWin(w http.ResponseWriter, r *http.Request) {
	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.ConfirmWin(r.Context(), sessionID)
	})
}

func (that *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.RejectGuess(r.Context(), sessionID)
	})
}

func (that *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req usecase.TitleRequest
	if !that.decode(w, r, &req) {
		return
	}

	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.CheckTitle(r.Context(), sessionID, req)
	})
}

func (that *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req usecase.TitleRequest
	if !that.decode(w, r, &req) {
		return
	}

	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.ConfirmTitle(r.Context(), sessionID, req)
	})
}

func (that *Server) handleTeach(w http.ResponseWriter, r *http.Request) {
	var req usecase.TeachRequest
	if !that.decode(w, r, &req) {
		return
	}

	that.withSession(w, r, func(sessionID string) (any, error) {
		return that.game.Teach(r.Context(), sessionID, req)
	})
}

// handleEnd discards the caller's game and expires the session cookie.
func (that *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := sessionFromCookie(r); ok {
		if err := that.game.EndSession(r.Context(), sessionID); err != nil {
			that.writeError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// withSession runs fn for the caller's session. Callers without a session
// cookie get a new game instead.
func (that *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(sessionID string) (any, error)) {
	sessionID, ok := sessionFromCookie(r)
	if !ok {
		view, err := that.game.NewSession(r.Context())
		if err != nil {
			that.writeError(w, r, err)
			return
		}

		setSessionCookie(w, view.SessionID)
		that.writeJSON(w, http.StatusOK, view)
		return
	}

	response, err := fn(sessionID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, response)
}

func (that *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}

	return true
}

func (that *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := that.logger.With("method", "writeError", "path", r.URL.Path)

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		that.writeJSON(w, status, errorResponse{Error: "Internal Server Error"})
		return
	}

	log.Info("request rejected", "status", status, "error", err)
	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrInvalidTransition),
		errors.Is(err, apperror.ErrInvalidState),
		errors.Is(err, apperror.ErrNoPendingTitle),
		errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sessionFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	return cookie.Value, true
}

func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
