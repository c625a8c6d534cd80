package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentOption is a way contributors may pay towards a project.
type PaymentOption string

const (
	PaymentFull         PaymentOption = "full"
	PaymentInstallments PaymentOption = "installments"
)

// Valid reports whether p is a known payment option.
func (p PaymentOption) Valid() bool {
	return p == PaymentFull || p == PaymentInstallments
}

// InstallmentFrequency is how often installment payments fall due.
type InstallmentFrequency string

const (
	FrequencyMonthly   InstallmentFrequency = "monthly"
	FrequencyQuarterly InstallmentFrequency = "quarterly"
	FrequencyCustom    InstallmentFrequency = "custom"
)

// Valid reports whether f is a known frequency.
func (f InstallmentFrequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyCustom:
		return true
	}
	return false
}

// Bounds for custom installment plans, in months.
const (
	MinCustomInstallmentMonths = 2
	MaxCustomInstallmentMonths = 60
)

// Keys written into Project.Settings when a project is cancelled.
const (
	SettingCancellationReason = "cancellation_reason"
	SettingCancelledBy        = "cancelled_by"
	SettingCancelledAt        = "cancelled_at"
)

// Project is a funding campaign owned by a tenant.
type Project struct {
	TenantModel

	Name        string            `json:"name" db:"name"`
	Slug        string            `json:"slug" db:"slug"`
	Description string            `json:"description" db:"description"`
	Visibility  ProjectVisibility `json:"visibility" db:"visibility"`
	Status      ProjectStatus     `json:"status" db:"status"`

	// Money
	TotalAmount         decimal.Decimal  `json:"totalAmount" db:"total_amount"`
	MinimumContribution *decimal.Decimal `json:"minimumContribution,omitempty" db:"minimum_contribution"`
	MaxContributors     *int             `json:"maxContributors,omitempty" db:"max_contributors"`

	// Payment plan
	PaymentOptions          []PaymentOption       `json:"paymentOptions" db:"payment_options"`
	InstallmentFrequency    *InstallmentFrequency `json:"installmentFrequency,omitempty" db:"installment_frequency"`
	CustomInstallmentMonths *int                  `json:"customInstallmentMonths,omitempty" db:"custom_installment_months"`

	// Schedule
	StartDate            time.Time  `json:"startDate" db:"start_date"`
	EndDate              time.Time  `json:"endDate" db:"end_date"`
	RegistrationDeadline *time.Time `json:"registrationDeadline,omitempty" db:"registration_deadline"`

	// Ownership
	CreatedBy uuid.UUID   `json:"createdBy" db:"created_by"`
	ManagedBy []uuid.UUID `json:"managedBy" db:"managed_by"`

	Settings Variables `json:"settings" db:"settings"`

	// Version is bumped on every write and used for optimistic locking.
	Version int `json:"version" db:"version"`
}

// IsManagedBy reports whether userID was granted manager rights on the project.
func (p *Project) IsManagedBy(userID uuid.UUID) bool {
	for _, id := range p.ManagedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPaymentOption reports whether contributors may pay with opt.
func (p *Project) HasPaymentOption(opt PaymentOption) bool {
	for _, o := range p.PaymentOptions {
		if o == opt {
			return true
		}
	}
	return false
}

// HasEnded reports whether the end date lies before now.
func (p *Project) HasEnded(now time.Time) bool {
	return p.EndDate.Before(now)
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	c := *p
	if p.MinimumContribution != nil {
		v := *p.MinimumContribution
		c.MinimumContribution = &v
	}
	if p.MaxContributors != nil {
		v := *p.MaxContributors
		c.MaxContributors = &v
	}
	if p.InstallmentFrequency != nil {
		v := *p.InstallmentFrequency
		c.InstallmentFrequency = &v
	}
	if p.CustomInstallmentMonths != nil {
		v := *p.CustomInstallmentMonths
		c.CustomInstallmentMonths = &v
	}
	if p.RegistrationDeadline != nil {
		v := *p.RegistrationDeadline
		c.RegistrationDeadline = &v
	}
	c.PaymentOptions = append([]PaymentOption(nil), p.PaymentOptions...)
	c.ManagedBy = append([]uuid.UUID(nil), p.ManagedBy...)
	c.Settings = p.Settings.Clone()
	return &c
}

// Product is a priced line item within a project.
type Product struct {
	TenantModel

	ProjectID   uuid.UUID       `json:"projectId" db:"project_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	ImagePath   string          `json:"imagePath,omitempty" db:"image_path"`
	SortOrder   int             `json:"sortOrder" db:"sort_order"`
}

// ProjectStatistics is derived on read from contributions.
type ProjectStatistics struct {
	ProjectID            uuid.UUID       `json:"projectId"`
	TotalContributors    int             `json:"totalContributors"`
	TotalRaised          decimal.Decimal `json:"totalRaised"`
	CompletionPercentage decimal.Decimal `json:"completionPercentage"`
	DaysRemaining        int             `json:"daysRemaining"`
	AverageContribution  decimal.Decimal `json:"averageContribution"`
}
