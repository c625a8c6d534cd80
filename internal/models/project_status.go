package models

import "fmt"

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// ProjectStatuses lists every status in lifecycle order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusDraft,
	ProjectStatusActive,
	ProjectStatusPaused,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// projectStatusTransitions is the single source of truth for legal moves.
var projectStatusTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusDraft:     {ProjectStatusActive, ProjectStatusCancelled},
	ProjectStatusActive:    {ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusCancelled},
	ProjectStatusPaused:    {ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled},
	ProjectStatusCompleted: {},
	ProjectStatusCancelled: {},
}

type statusEdge struct {
	from, to ProjectStatus
}

// transitionDescriptions must hold an entry for every edge in projectStatusTransitions.
var transitionDescriptions = map[statusEdge]string{
	{ProjectStatusDraft, ProjectStatusActive}:     "Activating project to accept contributions",
	{ProjectStatusDraft, ProjectStatusCancelled}:  "Cancelling draft project",
	{ProjectStatusActive, ProjectStatusPaused}:    "Pausing project temporarily",
	{ProjectStatusActive, ProjectStatusCompleted}: "Completing project",
	{ProjectStatusActive, ProjectStatusCancelled}: "Cancelling active project",
	{ProjectStatusPaused, ProjectStatusActive}:    "Resuming paused project",
	{ProjectStatusPaused, ProjectStatusCompleted}: "Completing paused project",
	{ProjectStatusPaused, ProjectStatusCancelled}: "Cancelling paused project",
}

var projectStatusLabels = map[ProjectStatus]string{
	ProjectStatusDraft:     "Draft",
	ProjectStatusActive:    "Active",
	ProjectStatusPaused:    "Paused",
	ProjectStatusCompleted: "Completed",
	ProjectStatusCancelled: "Cancelled",
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	_, ok := projectStatusTransitions[s]
	return ok
}

// Label returns the human readable name of the status.
func (s ProjectStatus) Label() string {
	if label, ok := projectStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s ProjectStatus) AllowedTransitions() []ProjectStatus {
	targets := projectStatusTransitions[s]
	out := make([]ProjectStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransitionTo reports whether s -> target appears in the transition table.
func (s ProjectStatus) CanTransitionTo(target ProjectStatus) bool {
	for _, t := range projectStatusTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AcceptsContributions is true only for active projects.
func (s ProjectStatus) AcceptsContributions() bool {
	return s == ProjectStatusActive
}

// IsActive reports whether the project has not reached a final state yet.
func (s ProjectStatus) IsActive() bool {
	return s == ProjectStatusDraft || s == ProjectStatusActive || s == ProjectStatusPaused
}

// IsFinal reports whether no further transitions are possible.
func (s ProjectStatus) IsFinal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

// TransitionDescription returns the audit phrase for s -> target.
// Asking for an edge that is not in the table is a programming error.
func (s ProjectStatus) TransitionDescription(target ProjectStatus) (string, error) {
	if !s.CanTransitionTo(target) {
		return "", fmt.Errorf("no transition from %s to %s", s, target)
	}
	desc, ok := transitionDescriptions[statusEdge{s, target}]
	if !ok {
		return "", fmt.Errorf("missing description for transition %s -> %s", s, target)
	}
	return desc, nil
}

// ProjectVisibility controls who can discover and view a project.
type ProjectVisibility string

const (
	VisibilityPublic     ProjectVisibility = "public"
	VisibilityPrivate    ProjectVisibility = "private"
	VisibilityInviteOnly ProjectVisibility = "invite_only"
)

// Valid reports whether v is a known visibility.
func (v ProjectVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityInviteOnly:
		return true
	}
	return false
}

// Label returns the human readable name of the visibility.
func (v ProjectVisibility) Label() string {
	switch v {
	case VisibilityPublic:
		return "Public"
	case VisibilityPrivate:
		return "Private"
	case VisibilityInviteOnly:
		return "Invite Only"
	}
	return "Unknown"
}

// IsPubliclyDiscoverable is true only for public projects.
func (v ProjectVisibility) IsPubliclyDiscoverable() bool {
	return v == VisibilityPublic
}

// HasRestrictedAccess is true for private and invite-only projects.
func (v ProjectVisibility) HasRestrictedAccess() bool {
	return v == VisibilityPrivate || v == VisibilityInviteOnly
}
