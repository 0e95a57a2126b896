package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rocketscienceinc/guessgame-backend/internal/config"
	"github.com/rocketscienceinc/guessgame-backend/internal/metrics"
	"github.com/rocketscienceinc/guessgame-backend/internal/oracle"
	"github.com/rocketscienceinc/guessgame-backend/internal/repository"
	"github.com/rocketscienceinc/guessgame-backend/internal/repository/storage"
	"github.com/rocketscienceinc/guessgame-backend/internal/service"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
	"github.com/rocketscienceinc/guessgame-backend/transport/rest"
	"github.com/rocketscienceinc/guessgame-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// backends holds the opened stores and the hooks that close them.
type backends struct {
	nodes    repository.NodeRepository
	sessions repository.SessionRepository
	closers  []func() error
}

func (that *backends) close(log *slog.Logger) {
	for i := len(that.closers) - 1; i >= 0; i-- {
		if err := that.closers[i](); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	stores, err := openBackends(ctx, conf)
	if err != nil {
		return err
	}
	defer stores.close(log)

	if err = seedRoot(ctx, log, stores.nodes, conf.Tree.RootText); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gameUseCase := newGameUseCase(logger, conf, stores, registry)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, gameUseCase, registry)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameUseCase)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func newGameUseCase(logger *slog.Logger, conf *config.Config, stores *backends, reg prometheus.Registerer) *usecase.GameUseCase {
	appMetrics := metrics.New(reg)
	tree := service.NewDecisionTree(logger, stores.nodes)

	return usecase.NewGameUseCase(
		logger,
		stores.sessions,
		service.NewGameSession(tree),
		service.NewTeacher(logger, tree),
		service.NewStatsReporter(stores.nodes),
		oracle.New(logger, appMetrics, conf.Oracle.BaseURL, conf.Oracle.APIKey, conf.Oracle.Timeout),
		appMetrics,
	)
}

// RunSeed provisions the root leaf and exits.
func RunSeed(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "seed")

	stores, err := openBackends(ctx, conf)
	if err != nil {
		return err
	}
	defer stores.close(log)

	return seedRoot(ctx, log, stores.nodes, conf.Tree.RootText)
}

// RunStats writes the tree summary to out as JSON.
func RunStats(ctx context.Context, logger *slog.Logger, conf *config.Config, out io.Writer) error {
	log := logger.With("component", "stats")

	stores, err := openBackends(ctx, conf)
	if err != nil {
		return err
	}
	defer stores.close(log)

	summary, err := service.NewStatsReporter(stores.nodes).Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	if err = encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}

	return nil
}

func seedRoot(ctx context.Context, log *slog.Logger, nodes repository.NodeRepository, rootText string) error {
	created, err := nodes.Seed(ctx, rootText)
	if err != nil {
		return fmt.Errorf("could not seed decision tree: %w", err)
	}

	if created {
		log.Info("seeded decision tree", "root", rootText)
	}

	return nil
}

func openBackends(ctx context.Context, conf *config.Config) (*backends, error) {
	stores := &backends{}

	var redisStorage *storage.RedisStorage
	if conf.NeedsRedis() {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, ErrAddrNotFound
		}

		var err error
		redisStorage, err = storage.NewRedisStorage(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		stores.closers = append(stores.closers, redisStorage.Close)
	}

	switch conf.Storage.Driver {
	case config.DriverSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if err != nil {
			stores.close(slog.Default())
			return nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		stores.closers = append(stores.closers, sqliteStorage.Close)

		if err = sqliteStorage.Init(ctx); err != nil {
			stores.close(slog.Default())
			return nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		stores.nodes = repository.NewSQLiteNodeRepository(sqliteStorage.Connection)
	default:
		stores.nodes = repository.NewNodeRepository(redisStorage.Connection)
	}

	switch conf.Session.Store {
	case config.SessionStoreMemory:
		stores.sessions = repository.NewMemorySessionRepository(conf.Session.TTL)
	default:
		stores.sessions = repository.NewSessionRepository(redisStorage.Connection, conf.Session.TTL)
	}

	return stores, nil
}
