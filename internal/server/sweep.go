package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// StatusSweeper moves projects whose dates have passed.
type StatusSweeper interface {
	UpdateProjectStatusByDate(ctx context.Context) (int, error)
}

// ImageCleaner removes stored images no product references.
type ImageCleaner interface {
	CleanupOrphanedImages(ctx context.Context) (int, error)
}

// SweepResult reports one sweep run.
type SweepResult struct {
	Changed       int       `json:"changed"`
	ImagesDeleted int       `json:"images_deleted"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
	Error         string    `json:"error,omitempty"`
}

// SweepRunner runs the status sweep and, optionally, orphaned image cleanup.
type SweepRunner struct {
	projects StatusSweeper
	images   ImageCleaner
}

// NewSweepRunner creates a runner. images may be nil.
func NewSweepRunner(projects StatusSweeper, images ImageCleaner) *SweepRunner {
	return &SweepRunner{projects: projects, images: images}
}

// Run performs one sweep. Image cleanup runs only when cleanup is set and an
// image cleaner is configured; its failure does not hide the sweep result.
func (r *SweepRunner) Run(ctx context.Context, cleanup bool) (*SweepResult, error) {
	start := time.Now()
	res := &SweepResult{StartedAt: start}

	changed, err := r.projects.UpdateProjectStatusByDate(ctx)
	res.Changed = changed
	if err != nil {
		res.Duration = time.Since(start).String()
		res.Error = err.Error()
		return res, fmt.Errorf("status sweep: %w", err)
	}

	if cleanup && r.images != nil {
		deleted, err := r.images.CleanupOrphanedImages(ctx)
		res.ImagesDeleted = deleted
		if err != nil {
			res.Duration = time.Since(start).String()
			res.Error = err.Error()
			return res, fmt.Errorf("image cleanup: %w", err)
		}
	}

	res.Duration = time.Since(start).String()
	log.Info().
		Int("changed", res.Changed).
		Int("images_deleted", res.ImagesDeleted).
		Str("duration", res.Duration).
		Msg("Sweep run finished")
	return res, nil
}

// RunEvery runs the sweep on every tick until ctx is done.
func (r *SweepRunner) RunEvery(ctx context.Context, interval time.Duration, cleanup bool) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Sweep scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Run(ctx, cleanup); err != nil {
				log.Error().Err(err).Msg("Scheduled sweep failed")
			}
		}
	}
}
