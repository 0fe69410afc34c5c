package main

import (
	"chat-relay/bus"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/internal"
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

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run starts gateway and worker in one process over the in-memory bus.
// No broker is needed; the idempotency store is skipped since nothing is redelivered.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	config.BusDriver = internal.BusMemory
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	codec, err := internal.NewCodec(config)
	if err != nil {
		return exitConfig, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Bus & collaborators
	memoryBus := bus.NewMemoryBus(log)
	defer memoryBus.Close()

	client := internal.NewAIClient(config)
	assistant, release, err := internal.NewAssistant(ctx, config, log, client)
	if err != nil {
		return exitRuntime, err
	}
	defer release()
	engine, err := internal.NewModerationEngine(ctx, config, log, client)
	if err != nil {
		return exitRuntime, err
	}

	// 3. Both roles under one supervisor
	topics := internal.TopicsOf(config)
	registry := runtime.NewRegistry(log)
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(internal.NewBacklogWorker(config, log,
		workers.Gauge{Name: "pending requests", Read: func() int { return memoryBus.Pending(topics.Requests, topics.WorkerGroup) }},
		workers.Gauge{Name: "pending responses", Read: func() int { return memoryBus.Pending(topics.Responses, topics.GatewayGroup) }},
		workers.Gauge{Name: "rooms", Read: registry.Rooms},
	))
	orchestrator := runtime.NewOrchestrator(log, supervisor, registry, codec, memoryBus, memoryBus, topics).
		EnableGateway(nil).
		EnableWorker(assistant, nil)

	httpServer := internal.NewHTTPServer(config, log, services.NewChatService(orchestrator, config.PublishTimeout),
		engine, internal.NewTranslationGateway(log, client))
	health := server.NewHealthServer(log, "chat-relay")

	errChan := make(chan error, 3)
	go func() {
		health.SetServing(true)
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator failed to start: %w", err)
		}
		health.SetServing(false)
	}()
	go func() {
		log.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		if err := health.ListenAndServe(ctx, config.HealthPort); err != nil {
			errChan <- err
		}
	}()

	// 4. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		code = exitRuntime
	}

	// 5. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	orchestrator.Stop()
	health.Stop()
	log.Info("Program stopped")
	return code, err
}
