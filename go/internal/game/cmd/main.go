package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/quizroyale/go/internal/dbconfig"
	"github.com/mcdev12/quizroyale/go/internal/game/adminrpc"
	"github.com/mcdev12/quizroyale/go/internal/game/config"
	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/gateway"
	"github.com/mcdev12/quizroyale/go/internal/game/health"
	"github.com/mcdev12/quizroyale/go/internal/game/metrics"
	"github.com/mcdev12/quizroyale/go/internal/game/orchestrator"
	"github.com/mcdev12/quizroyale/go/internal/game/questions"
	"github.com/mcdev12/quizroyale/go/internal/game/relay"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/game/scheduler"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := dbconfig.NewConfigFromEnv()
	registry := room.NewRegistry()
	prom := metrics.NewPrometheus()

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.MaxMessageSize = cfg.WebSocket.MaxMessageSize
	connCfg.SendBufferSize = cfg.WebSocket.SendBufferSize
	connCfg.MessageRate = rate.Limit(cfg.WebSocket.MessageRate)
	connCfg.MessageBurst = cfg.WebSocket.MessageBurst
	connCfg.ReadTimeout = cfg.WebSocket.PongWait
	connManager := gateway.NewConnectionManager(connCfg, nil)

	broadcasters := events.MultiBroadcaster{connManager}

	// NATS is optional: without it the server only talks websocket
	var (
		natsConn *nats.Conn
		js       jetstream.JetStream
	)
	relayCfg := relay.DefaultConfig()
	if cfg.NATS.Enabled() {
		relayCfg.URL = cfg.NATS.URL
		relayCfg.EventStream = cfg.NATS.EventStream
		relayCfg.CommandStream = cfg.NATS.CommandStream
		relayCfg.ConsumerName = cfg.NATS.Consumer

		natsConn, js, err = relay.Connect(relayCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer natsConn.Close()

		if err := relay.EnsureStreams(ctx, js, relayCfg); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure streams")
		}
		broadcasters = append(broadcasters, relay.NewPublisher(js, relayCfg.EventSubjects))
	}

	checker := health.NewChecker(natsConn, registry.Len, func() int {
		return connManager.Stats().TotalConnections
	})

	// Question source
	var provider questions.Provider
	if cfg.QuestionsFile != "" {
		static, err := questions.LoadStaticProvider(cfg.QuestionsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.QuestionsFile).Msg("failed to load question bank")
		}
		provider = static
	} else {
		pool, err := dbCfg.NewPool(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to question database")
		}
		defer pool.Close()
		provider = questions.NewPostgresProvider(pool)
		checker.AddDatabase("questions", pool.Ping)
	}

	controller := orchestrator.NewController(
		registry,
		provider,
		metrics.NewBroadcaster(broadcasters, prom),
		orchestrator.Config{
			QuestionDuration:  cfg.QuestionDuration,
			StartDelay:        cfg.StartDelay,
			DefaultMaxPlayers: cfg.DefaultMaxPlayers,
			Metrics:           prom,
		},
	)
	connManager.SetService(controller)
	go connManager.Start(ctx)

	if js != nil {
		consumer, err := relay.NewCommandConsumer(ctx, js, controller, relayCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create command consumer")
		}
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("command consumer failed")
			}
		}()
	}

	if cfg.SchedulerEnabled {
		db, err := dbCfg.OpenSQL(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to scheduler database")
		}
		defer db.Close()
		checker.AddDatabase("scheduler", db.PingContext)

		schedCfg := scheduler.DefaultConfig()
		schedCfg.DatabaseURL = dbCfg.DSN()
		listener, err := scheduler.NewListener(scheduler.NewSQLStore(db), controller, schedCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		go func() {
			if err := listener.Start(ctx); err != nil {
				log.Error().Err(err).Msg("scheduler stopped with error")
			}
		}()
	}

	admin := adminrpc.NewService(controller, registry.NewCode)
	server := setupServer(cfg.Port, gateway.NewHandler(connManager, controller), admin, prom, checker)

	log.Info().
		Str("port", cfg.Port).
		Dur("question_duration", cfg.QuestionDuration).
		Dur("start_delay", cfg.StartDelay).
		Bool("nats", cfg.NATS.Enabled()).
		Bool("scheduler", cfg.SchedulerEnabled).
		Msg("starting game server")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop every countdown before the process exits
	for _, r := range registry.List() {
		if err := controller.CancelGame(shutdownCtx, r.Code); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			log.Warn().Err(err).Str("game_code", r.Code).Msg("failed to cancel game")
		}
	}

	cancel()

	if js != nil {
		select {
		case <-js.PublishAsyncComplete():
		case <-shutdownCtx.Done():
			log.Warn().Msg("timed out waiting for pending event publishes")
		}
	}

	log.Info().Msg("game server shutdown complete")
}
