package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/storage"
)

func TestWithTxRollsBackOnPanic(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100)

	assert.PanicsWithValue(t, "boom", func() {
		_ = e.projects.withTx(e.ctx, func(tx storage.Store) error {
			locked, err := tx.GetProjectForUpdate(e.ctx, p.ID)
			require.NoError(t, err)
			locked.Name = "Half written"
			require.NoError(t, tx.UpdateProject(e.ctx, locked))
			panic("boom")
		})
	})

	// The store is usable again and the write was discarded.
	assert.Equal(t, p.Name, e.project(t, p.ID).Name)
	name := "Renamed"
	_, err := e.projects.UpdateProject(e.ctx, p.ID, UpdateProjectInput{Name: &name}, e.creator)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.project(t, p.ID).Name)
}
