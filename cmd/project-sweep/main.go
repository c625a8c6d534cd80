package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/config"
	"github.com/sannu-sannu/sannu-server/internal/server"
	"github.com/sannu-sannu/sannu-server/internal/service"
)

func main() {
	// Command line flags
	var (
		configFile string
		cleanup    bool
		remote     bool
		timeout    time.Duration
	)
	flag.StringVar(&configFile, "config", "config/sannu-server.yml", "Configuration file path")
	flag.BoolVar(&cleanup, "cleanup-images", false, "Also delete orphaned product images")
	flag.BoolVar(&remote, "remote", false, "Ask a running server to sweep over NATS instead of sweeping locally")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum run time")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	server.SetupLogging(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var res *server.SweepResult
	if remote {
		res, err = trigger(ctx, cfg, cleanup)
	} else {
		res, err = runLocal(ctx, cfg, cleanup)
	}
	if res != nil {
		_ = json.NewEncoder(os.Stdout).Encode(res)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Project sweep failed")
	}
}

func runLocal(ctx context.Context, cfg *config.Config, cleanup bool) (*server.SweepResult, error) {
	deps, err := server.Open(ctx, cfg, "sannu-project-sweep")
	if err != nil {
		return nil, err
	}
	defer deps.Close()

	var cleaner server.ImageCleaner
	if deps.Options.Images != nil {
		cleaner = service.NewProductService(deps.Options)
	} else if cleanup {
		log.Warn().Msg("Image storage not configured, skipping cleanup")
	}

	runner := server.NewSweepRunner(service.NewProjectService(deps.Options), cleaner)
	return runner.Run(ctx, cleanup)
}

func trigger(ctx context.Context, cfg *config.Config, cleanup bool) (*server.SweepResult, error) {
	nc, err := server.ConnectNATS(cfg.NATS, "sannu-project-sweep")
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	body, err := json.Marshal(server.SweepRequest{CleanupImages: &cleanup})
	if err != nil {
		return nil, err
	}

	msg, err := nc.RequestWithContext(ctx, server.SweepSubject(cfg.NATS.SubjectPrefix), body)
	if err != nil {
		return nil, err
	}

	var res server.SweepResult
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
