package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// Protected project fields. Once a contribution exists they are frozen.
const (
	FieldTotalAmount          = "total_amount"
	FieldPaymentOptions       = "payment_options"
	FieldInstallmentFrequency = "installment_frequency"
	FieldStartDate            = "start_date"
)

func protectedFieldError(field string) error {
	return apperrors.IntegrityGuard(field,
		fmt.Sprintf("Cannot modify %s for projects with existing contributions", field))
}

// changedProtectedFields lists protected fields that differ between old and updated.
func changedProtectedFields(old, updated *models.Project) []string {
	var changed []string
	if !old.TotalAmount.Equal(updated.TotalAmount) {
		changed = append(changed, FieldTotalAmount)
	}
	if !samePaymentOptions(old.PaymentOptions, updated.PaymentOptions) {
		changed = append(changed, FieldPaymentOptions)
	}
	if !sameFrequency(old.InstallmentFrequency, updated.InstallmentFrequency) {
		changed = append(changed, FieldInstallmentFrequency)
	}
	if !old.StartDate.Equal(updated.StartDate) {
		changed = append(changed, FieldStartDate)
	}
	return changed
}

func samePaymentOptions(a, b []models.PaymentOption) bool {
	set := func(opts []models.PaymentOption) string {
		s := make([]string, 0, len(opts))
		seen := map[models.PaymentOption]bool{}
		for _, o := range opts {
			if !seen[o] {
				seen[o] = true
				s = append(s, string(o))
			}
		}
		sort.Strings(s)
		return strings.Join(s, ",")
	}
	return set(a) == set(b)
}

func sameFrequency(a, b *models.InstallmentFrequency) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// validateProject checks the invariants shared by creation and update.
func validateProject(p *models.Project) error {
	fields := map[string]string{}

	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "The name field is required."
	} else if len(p.Name) > 255 {
		fields["name"] = "The name may not be greater than 255 characters."
	}
	if !p.Visibility.Valid() {
		fields["visibility"] = "The selected visibility is invalid."
	}

	if p.StartDate.IsZero() {
		fields["start_date"] = "The start date field is required."
	}
	if p.EndDate.IsZero() {
		fields["end_date"] = "The end date field is required."
	} else if !p.StartDate.IsZero() && !p.EndDate.After(p.StartDate) {
		fields["end_date"] = "End date must be after start date"
	}
	if p.RegistrationDeadline != nil && !p.EndDate.IsZero() && p.RegistrationDeadline.After(p.EndDate) {
		fields["registration_deadline"] = "Registration deadline must be on or before the end date"
	}

	if p.TotalAmount.IsNegative() {
		fields["total_amount"] = "The total amount must be at least 0."
	}
	if m := p.MinimumContribution; m != nil {
		switch {
		case !m.IsPositive():
			fields["minimum_contribution"] = "The minimum contribution must be greater than 0."
		case p.TotalAmount.IsPositive() && m.GreaterThan(p.TotalAmount):
			fields["minimum_contribution"] = "Minimum contribution cannot exceed the total amount"
		}
	}
	if p.MaxContributors != nil && *p.MaxContributors < 1 {
		fields["max_contributors"] = "The max contributors must be at least 1."
	}

	validatePaymentPlan(p, fields)

	if len(fields) > 0 {
		return apperrors.ValidationFields(fields)
	}
	return nil
}

func validatePaymentPlan(p *models.Project, fields map[string]string) {
	if len(p.PaymentOptions) == 0 {
		fields["payment_options"] = "At least one payment option is required."
		return
	}
	for _, opt := range p.PaymentOptions {
		if !opt.Valid() {
			fields["payment_options"] = fmt.Sprintf("The payment option %q is invalid.", opt)
			return
		}
	}

	installments := p.HasPaymentOption(models.PaymentInstallments)
	freq := p.InstallmentFrequency
	switch {
	case installments && freq == nil:
		fields["installment_frequency"] = "Installment frequency is required when installments are allowed."
		return
	case !installments && freq != nil:
		fields["installment_frequency"] = "Installment frequency only applies to installment payments."
		return
	case freq != nil && !freq.Valid():
		fields["installment_frequency"] = "The selected installment frequency is invalid."
		return
	}

	months := p.CustomInstallmentMonths
	custom := freq != nil && *freq == models.FrequencyCustom
	switch {
	case custom && months == nil:
		fields["custom_installment_months"] = "Custom installment months are required for a custom frequency."
	case !custom && months != nil:
		fields["custom_installment_months"] = "Custom installment months only apply to a custom frequency."
	case custom && (*months < models.MinCustomInstallmentMonths || *months > models.MaxCustomInstallmentMonths):
		fields["custom_installment_months"] = fmt.Sprintf("Custom installment months must be between %d and %d.",
			models.MinCustomInstallmentMonths, models.MaxCustomInstallmentMonths)
	}
}

// validateProduct returns the ledger's messages for a bad name or price.
func validateProduct(name string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.Validation("name", "Product name is required.")
	}
	if !price.IsPositive() {
		return apperrors.Validation("price", "Product price must be a valid positive number.")
	}
	return nil
}

// checkReady verifies a project may start accepting contributions.
// Dates are only checked when checkEnd is set.
func checkReady(ctx context.Context, st storage.Store, p *models.Project, verb string, now time.Time, checkEnd bool) error {
	n, err := st.CountProducts(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n == 0 {
		return apperrors.Validation("products", fmt.Sprintf("Cannot %s project: project has no products", verb))
	}
	if strings.TrimSpace(p.Description) == "" {
		return apperrors.Validation("description", fmt.Sprintf("Cannot %s project: project description is required", verb))
	}
	if checkEnd && p.HasEnded(now) {
		return apperrors.Validation("end_date", fmt.Sprintf("Cannot %s project: project has already ended", verb))
	}
	return nil
}

// projectValues is the audit snapshot of a project.
func projectValues(p *models.Project) models.Variables {
	v := models.Variables{
		"name":            p.Name,
		"slug":            p.Slug,
		"description":     p.Description,
		"status":          string(p.Status),
		"visibility":      string(p.Visibility),
		"total_amount":    p.TotalAmount.String(),
		"payment_options": paymentOptionNames(p.PaymentOptions),
		"start_date":      p.StartDate.UTC().Format(time.RFC3339),
		"end_date":        p.EndDate.UTC().Format(time.RFC3339),
	}
	if p.MinimumContribution != nil {
		v["minimum_contribution"] = p.MinimumContribution.String()
	}
	if p.MaxContributors != nil {
		v["max_contributors"] = *p.MaxContributors
	}
	if p.InstallmentFrequency != nil {
		v["installment_frequency"] = string(*p.InstallmentFrequency)
	}
	if p.CustomInstallmentMonths != nil {
		v["custom_installment_months"] = *p.CustomInstallmentMonths
	}
	if p.RegistrationDeadline != nil {
		v["registration_deadline"] = p.RegistrationDeadline.UTC().Format(time.RFC3339)
	}
	return v
}

func paymentOptionNames(opts []models.PaymentOption) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = string(o)
	}
	return out
}

// diffValues keeps only the keys whose values differ.
func diffValues(old, updated models.Variables) (models.Variables, models.Variables) {
	before, after := models.Variables{}, models.Variables{}
	keys := map[string]bool{}
	for k := range old {
		keys[k] = true
	}
	for k := range updated {
		keys[k] = true
	}
	for k := range keys {
		if fmt.Sprint(old[k]) != fmt.Sprint(updated[k]) {
			before[k] = old[k]
			after[k] = updated[k]
		}
	}
	return before, after
}
