package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olegrjumin/urlrisk/internal/config"
	"github.com/olegrjumin/urlrisk/internal/httpapi"
	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/metrics"
	"github.com/olegrjumin/urlrisk/internal/safebrowsing"
	"github.com/olegrjumin/urlrisk/internal/service"
	"github.com/olegrjumin/urlrisk/internal/urlvoid"
	"github.com/olegrjumin/urlrisk/internal/virustotal"
)

func main() {
	// Load configuration from environment variables
	cfg := config.Load()

	logger := logging.New(logging.Options{
		Name:  "urlrisk-api",
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Reputation sources; each reports itself unconfigured when its key is empty
	vt := virustotal.New(cfg.VirusTotal, logger)
	sources := []service.Source{
		vt,
		urlvoid.New(cfg.URLVoid, logger),
		safebrowsing.New(cfg.SafeBrowsing, logger),
	}
	for _, src := range []struct {
		name string
		key  string
	}{
		{"virusTotal", cfg.VirusTotal.APIKey},
		{"urlVoid", cfg.URLVoid.APIKey},
		{"safeBrowsing", cfg.SafeBrowsing.APIKey},
	} {
		if src.key == "" {
			logger.Warn("Source not configured", "source", src.name)
		}
	}

	recorder := metrics.New()
	svc := service.New(sources, logger.Named("service"), service.Options{
		Weights:        cfg.Weights,
		AdapterTimeout: cfg.AdapterTimeout,
		Metrics:        recorder,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := httpapi.NewServer(addr, logger.Named("http"), svc, httpapi.Options{
		PingMessage:    cfg.PingMessage,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Metrics:        recorder,
	})

	// Channel to listen for OS signals (Ctrl+C, kill, etc.)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine so it doesn't block
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "adapter_timeout", cfg.AdapterTimeout)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let queued VirusTotal submissions finish; they are bounded by the adapter timeout
	vt.Wait()

	logger.Info("Server stopped gracefully")
}
