package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionToMatchesTable(t *testing.T) {
	legal := map[ProjectStatus][]ProjectStatus{
		ProjectStatusDraft:  {ProjectStatusActive, ProjectStatusCancelled},
		ProjectStatusActive: {ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusCancelled},
		ProjectStatusPaused: {ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled},
	}

	for _, from := range ProjectStatuses {
		for _, to := range ProjectStatuses {
			want := false
			for _, l := range legal[from] {
				if l == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestNoSelfLoops(t *testing.T) {
	for _, s := range ProjectStatuses {
		assert.False(t, s.CanTransitionTo(s), s)
	}
}

func TestEveryLegalEdgeHasDescription(t *testing.T) {
	for _, from := range ProjectStatuses {
		for _, to := range from.AllowedTransitions() {
			desc, err := from.TransitionDescription(to)
			require.NoError(t, err, "%s -> %s", from, to)
			assert.NotEmpty(t, desc)
		}
	}

	desc, err := ProjectStatusDraft.TransitionDescription(ProjectStatusActive)
	require.NoError(t, err)
	assert.Equal(t, "Activating project to accept contributions", desc)
}

func TestIllegalEdgeDescriptionFails(t *testing.T) {
	_, err := ProjectStatusCompleted.TransitionDescription(ProjectStatusActive)
	assert.Error(t, err)

	_, err = ProjectStatusDraft.TransitionDescription(ProjectStatusPaused)
	assert.Error(t, err)
}

func TestStatusPredicates(t *testing.T) {
	cases := []struct {
		status  ProjectStatus
		accepts bool
		active  bool
		final   bool
	}{
		{ProjectStatusDraft, false, true, false},
		{ProjectStatusActive, true, true, false},
		{ProjectStatusPaused, false, true, false},
		{ProjectStatusCompleted, false, false, true},
		{ProjectStatusCancelled, false, false, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.accepts, tc.status.AcceptsContributions(), tc.status)
		assert.Equal(t, tc.active, tc.status.IsActive(), tc.status)
		assert.Equal(t, tc.final, tc.status.IsFinal(), tc.status)
	}
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	got := ProjectStatusDraft.AllowedTransitions()
	got[0] = ProjectStatusCompleted

	assert.True(t, ProjectStatusDraft.CanTransitionTo(ProjectStatusActive))
}

func TestVisibilityPredicates(t *testing.T) {
	assert.True(t, VisibilityPublic.IsPubliclyDiscoverable())
	assert.False(t, VisibilityPrivate.IsPubliclyDiscoverable())
	assert.False(t, VisibilityInviteOnly.IsPubliclyDiscoverable())

	assert.False(t, VisibilityPublic.HasRestrictedAccess())
	assert.True(t, VisibilityPrivate.HasRestrictedAccess())
	assert.True(t, VisibilityInviteOnly.HasRestrictedAccess())

	assert.False(t, ProjectVisibility("secret").Valid())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Paused", ProjectStatusPaused.Label())
	assert.Equal(t, "Unknown", ProjectStatus("archived").Label())
	assert.False(t, ProjectStatus("archived").Valid())
}
