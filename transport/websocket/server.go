package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
)

const (
	sessionCookieName = "user_session"
	writeWait         = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type gameUseCase interface {
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

type handlerFunc func(ctx context.Context, client *client, msg *Message) error

type Server struct {
	logger   *slog.Logger
	game     gameUseCase
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

// client is one websocket connection bound to a game session.
type client struct {
	conn      *websocket.Conn
	sessionID string

	writeMutex sync.Mutex
}

func New(logger *slog.Logger, game gameUseCase) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		game:   game,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionStart] = server.handleStart
	server.handlers[actionCurrent] = server.handleCurrent
	server.handlers[actionAnswer] = server.handleAnswer
	server.handlers[actionUndo] = server.handleUndo
	server.handlers[actionWin] = server.handleWin
	server.handlers[actionReject] = server.handleReject
	server.handlers[actionCheck] = server.handleCheck
	server.handlers[actionConfirm] = server.handleConfirm
	server.handlers[actionTeach] = server.handleTeach
	server.handlers[actionStats] = server.handleStats

	return server
}

func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
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

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	sessionID, header := that.sessionCookie(req)

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	defer conn.Close()

	log.Info("WebSocket connection established")

	c := &client{conn: conn, sessionID: sessionID}

	if err = that.handleMessages(ctx, c); err != nil {
		log.Error("error handling messages", "error", err)
	}

	that.handleDisconnect(ctx, c)
}

// handleDisconnect discards the game bound to a closed connection.
func (that *Server) handleDisconnect(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleDisconnect")

	if err := that.game.EndSession(context.WithoutCancel(ctx), c.sessionID); err != nil {
		log.Error("failed to end session", "error", err)
		return
	}

	log.Debug("session ended")
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := that.logger.With("method", "handleMessages")

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("client disconnected")
				return nil
			}

			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				log.Warn("failed to unmarshal message", "error", err)
				continue
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)

			if err := that.sendErrorResponse(c, message.Action, "unknown action"); err != nil {
				return err
			}

			continue
		}

		if err := handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// sessionCookie returns the caller's session id, issuing a cookie when the
// request carries none.
func (that *Server) sessionCookie(req *http.Request) (string, http.Header) {
	log := that.logger.With("method", "sessionCookie")

	cookie, err := req.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		log.Debug("session cookie found")
		return cookie.Value, nil
	}

	cookie = &http.Cookie{
		Name:    sessionCookieName,
		Value:   uuid.NewString(),
		Expires: time.Now().Add(24 * time.Hour),
		Path:    "/ws",
	}

	log.Debug("session cookie not found, new one created")

	return cookie.Value, http.Header{"Set-Cookie": []string{cookie.String()}}
}

func (that *Server) sendMessage(c *client, action string, payload ResponsePayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	if err = c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = c.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *Server) sendErrorResponse(c *client, action, errorMsg string) error {
	if err := that.sendMessage(c, action, ResponsePayload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
