package main

import (
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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

const healthService = "chat-relay.worker"

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Worker terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run consumes the requests topic as a member of the worker group and
// publishes one encrypted answer per request.
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

	// 2. Bus, idempotency store & collaborators
	transport, err := internal.OpenTransport(config, logger, "chat-relay-worker")
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
	dedupe := repositories.NewDedupeRepository(db, logger, "worker", config.DedupeTTL)

	assistant, release, err := internal.NewAssistant(ctx, config, logger, internal.NewAIClient(config))
	if err != nil {
		return exitRuntime, err
	}
	defer release()

	// 3. Orchestration
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(internal.NewBacklogWorker(config, logger))
	orchestrator := runtime.NewOrchestrator(logger, supervisor, runtime.NewRegistry(logger), codec,
		transport.Publisher, transport.Subscriber, internal.TopicsOf(config)).
		EnableWorker(assistant, dedupe)

	// 4. Health
	health := server.NewHealthServer(logger, healthService)

	errChan := make(chan error, 2)
	go func() {
		if err := health.ListenAndServe(ctx, config.HealthPort); err != nil {
			errChan <- err
		}
	}()
	go func() {
		health.SetServing(true)
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator failed to start: %w", err)
		}
		health.SetServing(false)
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		orchestrator.Stop()
		health.Stop()
		return exitRuntime, err
	}

	// 6. Graceful shutdown
	orchestrator.Stop()
	health.Stop()
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}
