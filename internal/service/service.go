// Package service implements the project lifecycle, product ledger, pledge
// and tenant administration operations on top of a storage.Store.
//
// Callers authorize with package policy before invoking a service. Every
// mutation runs in one transaction together with its audit record; side
// effects on images, caches and notifications happen after commit and never
// fail the operation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/cache"
	"github.com/sannu-sannu/sannu-server/internal/imagestore"
	"github.com/sannu-sannu/sannu-server/internal/notify"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// ErrImagesDisabled is returned by image operations when no image store is configured.
var ErrImagesDisabled = errors.New("image storage not configured")

// Options wires a service to its collaborators. Only Store is required.
type Options struct {
	Store         storage.Store
	Images        imagestore.Store
	Cache         cache.StatsCache
	Notifier      notify.Notifier
	Clock         func() time.Time
	ImageMaxBytes int64
}

type base struct {
	store         storage.Store
	images        imagestore.Store
	cache         cache.StatsCache
	notifier      notify.Notifier
	now           func() time.Time
	imageMaxBytes int64
}

func newBase(opts Options) base {
	b := base{
		store:         opts.Store,
		images:        opts.Images,
		cache:         opts.Cache,
		notifier:      opts.Notifier,
		now:           opts.Clock,
		imageMaxBytes: opts.ImageMaxBytes,
	}
	if b.cache == nil {
		b.cache = cache.NopStatsCache{}
	}
	if b.notifier == nil {
		b.notifier = notify.NopNotifier{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.imageMaxBytes <= 0 {
		b.imageMaxBytes = imagestore.DefaultMaxBytes
	}
	return b
}

// withTx runs fn in a transaction. fn must only use the store it is given.
func (b *base) withTx(ctx context.Context, fn func(tx storage.Store) error) error {
	tx, err := b.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// invalidate drops cached statistics for a project, logging failures.
func (b *base) invalidate(ctx context.Context, projectID uuid.UUID) {
	if err := b.cache.Invalidate(ctx, projectID); err != nil {
		log.Warn().Err(err).Str("project_id", projectID.String()).Msg("Failed to invalidate statistics cache")
	}
}

// translate maps storage failures onto application errors.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NotFound(entity)
	case errors.Is(err, storage.ErrConflict):
		return apperrors.Conflict(fmt.Sprintf("The %s was modified by another request. Reload and try again.", entity), err)
	case errors.Is(err, storage.ErrDuplicateKey):
		return apperrors.Conflict(fmt.Sprintf("The %s already exists.", entity), err)
	case errors.Is(err, storage.ErrOutOfScope):
		return apperrors.Forbidden(fmt.Sprintf("The %s belongs to another organization.", entity))
	}
	return fmt.Errorf("%s: %w", entity, err)
}
