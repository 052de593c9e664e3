// Command jobsim serves an in-memory imitation of the video job service for
// local development of the agent.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iavido/iavido-agent/internal/config"
	"github.com/iavido/iavido-agent/internal/jobsim"
	"github.com/iavido/iavido-agent/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.WithComponent(logging.NewLogger(cfg.LogLevel()), "jobsim")

	sim := jobsim.New(jobsim.Config{
		StepDelay: cfg.SimStepDelay(),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.SimPort()),
		Handler:      sim.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting job simulator", "addr", srv.Addr, "step_delay", cfg.SimStepDelay().String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("job simulator: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
