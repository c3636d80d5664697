package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexiqai/transcript-gateway/internal/clipboard"
	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/gateway"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/session"
	"github.com/lexiqai/transcript-gateway/internal/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("stt_provider", cfg.STTProvider).
		Str("clipboard_mode", cfg.ClipboardMode).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Transcript Gateway Service starting")

	// Recognition backend; a missing backend disables capture but the
	// page, exports and health endpoints keep working
	available, reason := cfg.RecognitionAvailable()
	if !available {
		logger.Warn().Str("reason", reason).Msg("Speech recognition is not available")
	}
	factory, err := stt.NewFactory(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure speech recognition")
	}

	var hostClipboard session.Clipboard
	if cfg.ClipboardMode == config.ClipboardSystem {
		system := clipboard.NewSystem()
		if !system.Supported() {
			logger.Warn().Msg("No system clipboard utility found, copy will report failures")
		}
		hostClipboard = system
	}

	manager := gateway.NewManager(cfg, factory, hostClipboard, logger)

	// Readiness reflects whether recognition can be started
	recognitionCheck := observability.DependencyCheck{
		Name: "speech_recognition",
		Check: func(ctx context.Context) (bool, error) {
			if ok, reason := cfg.RecognitionAvailable(); !ok {
				return false, fmt.Errorf("%s", reason)
			}
			return true, nil
		},
	}

	handler := gateway.NewRouter(cfg, manager, logger, recognitionCheck)
	if cfg.MetricsEnabled {
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("page", baseURL+"/").
			Str("endpoint", baseURL+"/streams/browser").
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("sessions", manager.Count()).Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not closed by Shutdown
	manager.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
