package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type gameUseCase interface {
	NewSession(ctx context.Context) (*usecase.View, error)
	Start(ctx context.Context, sessionID string) (*usecase.View, error)
	Current(ctx context.Context, sessionID string) (*usecase.View, error)
	Answer(ctx context.Context, sessionID, choice string) (*usecase.View, error)
	Undo(ctx context.Context, sessionID string) (*usecase.View, error)
	ConfirmWin(ctx context.Context, sessionID string) (*usecase.View, error)
	RejectGuess(ctx context.Context, sessionID string) (*usecase.View, error)
	CheckTitle(ctx context.Context, sessionID string, req usecase.TitleRequest) (*usecase.TitleCheck, error)
	ConfirmTitle(ctx context.Context, sessionID string, req usecase.TitleRequest) (*usecase.View, error)
	Teach(ctx context.Context, sessionID string, req usecase.TeachRequest) (*usecase.View, error)
	Stats(ctx context.Context) (*entity.Summary, error)
	EndSession(ctx context.Context, sessionID string) error
}

type Server struct {
	logger   *slog.Logger
	game     gameUseCase
	gatherer prometheus.Gatherer
}

func New(logger *slog.Logger, game gameUseCase, gatherer prometheus.Gatherer) *Server {
	return &Server{
		logger:   logger.With("component", "rest"),
		game:     game,
		gatherer: gatherer,
	}
}

func (that *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/ping", pingHandler)
	router.Get("/stats", that.handleStats)
	router.Handle("/metrics", promhttp.HandlerFor(that.gatherer, promhttp.HandlerOpts{}))

	router.Route("/api/game", func(r chi.Router) {
		r.Get("/", that.handleCurrent)
		r.Post("/start", that.handleStart)
		r.Post("/answer", that.handleAnswer)
		r.Post("/undo", that.handleUndo)
		r.Post("/win", that.handleWin)
		r.Post("/reject", that.handleReject)
		r.Post("/check", that.handleCheck)
		r.Post("/confirm", that.handleConfirm)
		r.Post("/teach", that.handleTeach)
		r.Post("/end", that.handleEnd)
	})

	return router
}

// Start - serves HTTP until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
