package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/api"
	"github.com/sannu-sannu/sannu-server/internal/config"
	"github.com/sannu-sannu/sannu-server/internal/server"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/sannu-server.yml", "Configuration file path")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	server.SetupLogging(cfg.Log)
	cfg.PrintConfigSummary()

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := server.Open(ctx, cfg, cfg.Server.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backends")
	}
	defer deps.Close()

	apiServer := api.NewRESTServer(cfg, deps.Options)

	var cleaner server.ImageCleaner
	if deps.Options.Images != nil {
		cleaner = apiServer.Products()
	}
	runner := server.NewSweepRunner(apiServer.Projects(), cleaner)

	// WaitGroup for services
	var wg sync.WaitGroup

	// Start API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(cfg.API.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Optional: periodic status sweep
	if cfg.Sweep.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Dur("interval", cfg.Sweep.Interval).Msg("Starting status sweep")
			if err := runner.RunEvery(ctx, cfg.Sweep.Interval, cfg.Sweep.CleanupImages); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Status sweep stopped")
			}
		}()
	}

	// Optional: sweep triggers over NATS
	if deps.NATS != nil {
		subscriber := server.NewNATSSubscriber(deps.NATS, runner, cfg.NATS.SubjectPrefix, cfg.Sweep.CleanupImages)

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("Starting NATS subscriber")
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("NATS subscriber stopped")
			}
		}()
	}

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Cancel context
	cancel()

	// Shutdown API server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	// Wait for all services
	wg.Wait()

	log.Info().Msg("Sannu server stopped")
}
