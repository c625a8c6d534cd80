package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	changed int
	err     error
	calls   int
}

func (c *countingSweeper) UpdateProjectStatusByDate(context.Context) (int, error) {
	c.calls++
	return c.changed, c.err
}

type countingCleaner struct {
	deleted int
	calls   int
}

func (c *countingCleaner) CleanupOrphanedImages(context.Context) (int, error) {
	c.calls++
	return c.deleted, nil
}

func TestSweepRunnerRun(t *testing.T) {
	sweeper := &countingSweeper{changed: 3}
	cleaner := &countingCleaner{deleted: 2}
	r := NewSweepRunner(sweeper, cleaner)

	res, err := r.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Changed)
	assert.Zero(t, res.ImagesDeleted)
	assert.Zero(t, cleaner.calls)

	res, err = r.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImagesDeleted)
	assert.Equal(t, 1, cleaner.calls)
}

func TestSweepRunnerFailureSkipsCleanup(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("database gone")}
	cleaner := &countingCleaner{}

	res, err := NewSweepRunner(sweeper, cleaner).Run(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, "database gone", res.Error)
	assert.Zero(t, cleaner.calls)
}

func TestSweepRunnerRunEvery(t *testing.T) {
	sweeper := &countingSweeper{}
	r := NewSweepRunner(sweeper, nil)

	assert.Error(t, r.RunEvery(context.Background(), 0, false))

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	err := r.RunEvery(ctx, 10*time.Millisecond, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, sweeper.calls, 2)
}

func TestSubscriberProcess(t *testing.T) {
	sweeper := &countingSweeper{changed: 1}
	cleaner := &countingCleaner{deleted: 4}
	s := NewNATSSubscriber(nil, NewSweepRunner(sweeper, cleaner), "", false)
	assert.Equal(t, "sannu.jobs.project-sweep", s.subject)

	var res SweepResult
	require.NoError(t, json.Unmarshal(s.process(context.Background(), nil), &res))
	assert.Equal(t, 1, res.Changed)
	assert.Zero(t, cleaner.calls)

	require.NoError(t, json.Unmarshal(s.process(context.Background(), []byte(`{"cleanup_images":true}`)), &res))
	assert.Equal(t, 4, res.ImagesDeleted)
	assert.Equal(t, 1, cleaner.calls)

	require.NoError(t, json.Unmarshal(s.process(context.Background(), []byte(`not json`)), &res))
	assert.Equal(t, 3, sweeper.calls)
	assert.Equal(t, 1, cleaner.calls)
}
