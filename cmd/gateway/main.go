package main

import (
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run hosts live connections: it relays every inbound frame to the requests
// topic and delivers the responses topic back to the rooms.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)
	codec, err := internal.NewCodec(config)
	if err != nil {
		return exitConfig, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Bus & idempotency store
	transport, err := internal.OpenTransport(config, logger, "chat-relay-gateway")
	if err != nil {
		return exitRuntime, err
	}
	defer transport.Close()

	db, err := internal.OpenBadger(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	dedupe := repositories.NewDedupeRepository(db, logger, "gateway", config.DedupeTTL)

	// 3. Orchestration
	registry := runtime.NewRegistry(logger)
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(internal.NewBacklogWorker(config, logger, workers.Gauge{Name: "rooms", Read: registry.Rooms}))
	orchestrator := runtime.NewOrchestrator(logger, supervisor, registry, codec,
		transport.Publisher, transport.Subscriber, internal.TopicsOf(config)).
		EnableGateway(dedupe)

	// 4. HTTP surface
	client := internal.NewAIClient(config)
	engine, err := internal.NewModerationEngine(ctx, config, logger, client)
	if err != nil {
		return exitRuntime, err
	}
	chatService := services.NewChatService(orchestrator, config.PublishTimeout)
	server := internal.NewHTTPServer(config, logger, chatService, engine, internal.NewTranslationGateway(logger, client))

	errChan := make(chan error, 2)
	go func() {
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator failed to start: %w", err)
		}
	}()
	go func() {
		logger.Info("Starting HTTP server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		orchestrator.Stop()
		return exitRuntime, err
	}

	// 6. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}
