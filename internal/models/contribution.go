package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContributionStatus represents the state of a pledge.
type ContributionStatus string

const (
	ContributionActive    ContributionStatus = "active"
	ContributionCompleted ContributionStatus = "completed"
	ContributionCancelled ContributionStatus = "cancelled"
)

// Contribution ties a user to a project with committed and paid totals.
// Its existence is what locks a project's financial fields.
type Contribution struct {
	TenantModel

	ProjectID      uuid.UUID          `json:"projectId" db:"project_id"`
	UserID         uuid.UUID          `json:"userId" db:"user_id"`
	PaymentType    PaymentOption      `json:"paymentType" db:"payment_type"`
	TotalCommitted decimal.Decimal    `json:"totalCommitted" db:"total_committed"`
	TotalPaid      decimal.Decimal    `json:"totalPaid" db:"total_paid"`
	Status         ContributionStatus `json:"status" db:"status"`
}

// ContributionStats aggregates contributions for one project.
type ContributionStats struct {
	Contributions  int             `json:"contributions"`
	DistinctUsers  int             `json:"distinctUsers"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalCommitted decimal.Decimal `json:"totalCommitted"`
}

// InvitationStatus represents the state of a project invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// ProjectInvitation grants a user access to an invite-only project once accepted.
type ProjectInvitation struct {
	TenantModel

	ProjectID  uuid.UUID        `json:"projectId" db:"project_id"`
	UserID     uuid.UUID        `json:"userId" db:"user_id"`
	InvitedBy  uuid.UUID        `json:"invitedBy" db:"invited_by"`
	Status     InvitationStatus `json:"status" db:"status"`
	AcceptedAt *time.Time       `json:"acceptedAt,omitempty" db:"accepted_at"`
}
