package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/iavido/iavido-agent/internal/api"
	"github.com/iavido/iavido-agent/internal/config"
	"github.com/iavido/iavido-agent/internal/db"
	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/history"
	"github.com/iavido/iavido-agent/internal/jobclient"
	"github.com/iavido/iavido-agent/internal/lifecycle"
	"github.com/iavido/iavido-agent/internal/logging"
	"github.com/iavido/iavido-agent/internal/playback"
	"github.com/iavido/iavido-agent/internal/poller"
	"github.com/iavido/iavido-agent/internal/presenter"
	"github.com/iavido/iavido-agent/internal/session"
	"github.com/iavido/iavido-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting iavido agent",
		"version", config.Version,
		"data_dir", cfg.DataDir(),
		"service_url", cfg.ServiceURL(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := history.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║  IAVIDO AGENT v%-42s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:     http://127.0.0.1:%-26d ║\n", cfg.Port())
	fmt.Printf("║  Service URL: %-43s ║\n", cfg.ServiceURL())
	fmt.Printf("║  Auth Token:  %-43s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	client := jobclient.NewHTTPClient(cfg.ServiceURL(), cfg.HTTPTimeout(), logger)
	logger.Info("using job service", "url", client.BaseURL(), "poll_interval", cfg.PollInterval())
	resolve := func(videoURL string) string {
		abs, err := client.ResolveURL(videoURL)
		if err != nil {
			logger.Warn("cannot resolve video url", "video_url", videoURL, "error", err)
			return videoURL
		}
		return abs
	}

	var quitOnce sync.Once
	quitCh := make(chan struct{})
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	var (
		surface presenter.Surface
		tray    *ui.Tray
		sess    *session.Session
	)
	if cfg.Headless() {
		surface = ui.NewConsole(os.Stderr)
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Logger: logger,
			OnDownload: func() (string, error) {
				return sess.Download(context.Background(), cfg.DownloadsDir())
			},
			OnReset: func() error {
				return sess.Reset()
			},
			OnQuit: quit,
		})
		surface = presenter.Multi(tray, ui.NewConsole(os.Stderr))
	}

	sess = session.New(session.Config{
		Client:     client,
		Downloader: client,
		Poller:     poller.New(client, cfg.PollInterval(), logger),
		Presenter:  presenter.New(surface, resolve),
		History:    repo,
		Logger:     logger,
	})
	defer sess.Close()

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Controller: sess,
		History:    repo,
		Videos:     playback.NewLibrary(cfg.DownloadsDir(), logger),
		ResolveURL: resolve,
		Logger:     logger,
		StartTime:  startTime,
		Version:    config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			quit()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if prompt := strings.TrimSpace(strings.Join(os.Args[1:], " ")); prompt != "" {
		go runPrompt(sess, prompt, cfg, logger, quit)
	}

	if tray != nil {
		go func() {
			<-quitCh
			tray.Quit()
		}()
		tray.Run()
		quit()
	} else {
		logger.Info("running in headless mode (no system tray)")
		<-quitCh
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// runPrompt submits a prompt given on the command line. In headless mode the
// agent saves the video and exits once the job ends.
func runPrompt(sess *session.Session, prompt string, cfg config.Config, logger *slog.Logger, quit func()) {
	ctx := context.Background()

	if _, err := sess.Submit(ctx, generation.NewRequest(prompt)); err != nil {
		logger.Error("failed to submit prompt", "error", err)
		if cfg.Headless() {
			quit()
		}
		return
	}
	if !cfg.Headless() {
		return
	}

	st, err := sess.Wait(ctx)
	if err == nil && st.Phase == lifecycle.PhaseDone {
		if path, derr := sess.Download(ctx, cfg.DownloadsDir()); derr != nil {
			logger.Error("failed to download video", "error", derr)
		} else {
			logger.Info("video saved", "path", logging.SanitizePath(path))
		}
	}
	quit()
}

func ensureAuthToken(repo history.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
