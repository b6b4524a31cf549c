/*
generator.go - Recurring task generation orchestrator

PURPOSE:
  The top-level driver. Enumerates tenants, enumerates each tenant's
  recurring templates, and for each template: computes the next compliance
  period, derives the due date, checks the lead window, checks for an
  existing duplicate instance, and materializes a new instance.

FAILURE ISOLATION:
  Failures are caught at the smallest skippable unit: one template's failure
  never blocks its siblings, one tenant's failure never blocks other tenants.
  Nothing here is fatal. A skipped template is simply re-evaluated on the
  next firing.

IDEMPOTENCY:
  At most one instance may exist per (tenant, template, period). Two guards:
  - Duplicate detection: an exact-match query over the template's scope
    before creating anything.
  - Stores that enforce the uniqueness constraint surface concurrent
    identical writes as ErrDuplicateInstance, which is counted as a skip.

REFERENCE INSTANT:
  A template's own last-known compliance end anchors the next period. A
  template that has never had a period yet anchors on the current time.

SEE ALSO:
  - period.go: Period calculation, due dates, lead window
  - approval.go: What happens to instances generated with NeedsApproval
  - api/scheduler.go: The 24-hour trigger driving GenerateUpcoming
*/
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// tenantPageSize is how many tenants GenerateUpcoming loads per page.
const tenantPageSize = 100

// =============================================================================
// GENERATOR
// =============================================================================

// Generator materializes task instances from recurring templates.
type Generator struct {
	Store   Store
	Periods PeriodCalculator

	// Now is the clock; defaults to time.Now. Injected in tests.
	Now func() time.Time
}

// NewGenerator creates a generator with the default calculator and clock.
func NewGenerator(store Store) *Generator {
	return &Generator{
		Store: store,
		Now:   time.Now,
	}
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

// GenerationSummary reports what one full run did.
type GenerationSummary struct {
	Tenants int `json:"tenants"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// TenantSummary reports what one tenant's run did.
type TenantSummary struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// =============================================================================
// ORCHESTRATION
// =============================================================================

// GenerateUpcoming runs generation for every tenant. A tenant's failure is
// logged and does not block the remaining tenants.
func (g *Generator) GenerateUpcoming(ctx context.Context) GenerationSummary {
	var summary GenerationSummary

	for offset := 0; ; offset += tenantPageSize {
		tenants, err := g.Store.ListTenants(ctx, offset, tenantPageSize)
		if err != nil {
			log.Printf("[Generator] Error listing tenants at offset %d: %v", offset, err)
			return summary
		}
		if len(tenants) == 0 {
			break
		}

		for _, tenant := range tenants {
			summary.Tenants++
			ts, err := g.GenerateForTenant(ctx, tenant.ID)
			if err != nil {
				summary.Failed++
				log.Printf("[Generator] Error generating for tenant %s: %v", tenant.ID, err)
				continue
			}
			summary.Created += ts.Created
			summary.Skipped += ts.Skipped
			summary.Failed += ts.Failed
		}

		if len(tenants) < tenantPageSize {
			break
		}
	}

	return summary
}

// GenerateForTenant runs generation for one tenant's recurring templates.
// A template's failure is logged and does not block sibling templates.
func (g *Generator) GenerateForTenant(ctx context.Context, tenantID TenantID) (TenantSummary, error) {
	var summary TenantSummary

	leadDays, err := g.leadTimeDays(ctx, tenantID)
	if err != nil {
		return summary, fmt.Errorf("failed to read lead time for %s: %w", tenantID, err)
	}

	autoApprove, err := g.autoApprove(ctx, tenantID)
	if err != nil {
		return summary, fmt.Errorf("failed to read auto-approve for %s: %w", tenantID, err)
	}

	templates, err := g.Store.ListRecurringTemplates(ctx, tenantID)
	if err != nil {
		return summary, fmt.Errorf("failed to list templates for %s: %w", tenantID, err)
	}

	for _, tmpl := range templates {
		created, err := g.generateFromTemplate(ctx, tmpl, leadDays, autoApprove)
		switch {
		case err != nil:
			summary.Failed++
			log.Printf("[Generator] Error on template %s (tenant %s): %v", tmpl.ID, tenantID, err)
		case created:
			summary.Created++
		default:
			summary.Skipped++
		}
	}

	return summary, nil
}

// =============================================================================
// PER-TEMPLATE PIPELINE
// =============================================================================

// generateFromTemplate runs the full pipeline for one template. Returns
// (true, nil) when a new instance was created, (false, nil) when the template
// was legitimately skipped.
func (g *Generator) generateFromTemplate(ctx context.Context, tmpl Task, leadDays int, autoApprove bool) (bool, error) {
	switch tmpl.Frequency.Kind {
	case FreqOneTime:
		// One-time templates are terminal and never produce instances.
		return false, nil
	case FreqUnsupported:
		log.Printf("[Generator] Warning: template %s has unsupported frequency %q, skipping", tmpl.ID, tmpl.Frequency.Label)
		return false, nil
	}

	now := g.now()

	// The template's last known period end anchors the next period.
	ref := now
	if tmpl.ComplianceEnd != nil {
		ref = *tmpl.ComplianceEnd
	}

	period, ok := g.Periods.NextPeriod(tmpl.Frequency, tmpl.DurationModifier, ref)
	if !ok {
		return false, nil
	}

	due := DueDate(period.End)
	if !WithinLeadWindow(now, due, leadDays) {
		return false, nil
	}

	dup, err := g.instanceExists(ctx, tmpl, period)
	if err != nil {
		return false, fmt.Errorf("duplicate check failed: %w", err)
	}
	if dup {
		return false, nil
	}

	if err := g.instantiate(ctx, tmpl, period, due, autoApprove, now); err != nil {
		if errors.Is(err, ErrDuplicateInstance) {
			// Lost a race with a concurrent firing; the instance exists.
			log.Printf("[Generator] Instance for template %s period %s already created concurrently", tmpl.ID, period)
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// instanceExists checks whether an instance for the computed period already
// exists. The comparison is instant-level equality of category, service type,
// and both period boundaries; period computation is deterministic, so equal
// periods are bytewise equal.
func (g *Generator) instanceExists(ctx context.Context, tmpl Task, period Period) (bool, error) {
	tasks, err := g.Store.GetTasks(ctx, tmpl.TenantID, tmpl.ScopeFilter())
	if err != nil {
		return false, err
	}

	for _, t := range tasks {
		if t.ID == tmpl.ID {
			continue
		}
		if t.CategoryID != tmpl.CategoryID || t.ServiceTypeID != tmpl.ServiceTypeID {
			continue
		}
		if t.ComplianceStart == nil || t.ComplianceEnd == nil {
			continue
		}
		if t.ComplianceStart.Equal(period.Start) && t.ComplianceEnd.Equal(period.End) {
			return true, nil
		}
	}
	return false, nil
}

// instantiate builds and persists a new instance from the template.
func (g *Generator) instantiate(ctx context.Context, tmpl Task, period Period, due time.Time, autoApprove bool, now time.Time) error {
	status, err := g.initialStatus(ctx, tmpl.TenantID)
	if err != nil {
		return err
	}

	detail := tmpl.Detail
	if detail == "" {
		detail = g.synthesizeDetail(ctx, tmpl, period)
	}

	templateID := tmpl.ID
	instance := &Task{
		ID:              TaskID(uuid.NewString()),
		TenantID:        tmpl.TenantID,
		ClientID:        tmpl.ClientID,
		EntityID:        tmpl.EntityID,
		IsAdmin:         tmpl.IsAdmin,
		CategoryID:      tmpl.CategoryID,
		ServiceTypeID:   tmpl.ServiceTypeID,
		AssigneeID:      tmpl.AssigneeID,
		StatusID:        status.ID,
		Detail:          detail,
		Currency:        tmpl.Currency,
		Rate:            tmpl.Rate,
		IsRecurring:     false,
		IsAutoGenerated: true,
		NeedsApproval:   !autoApprove,
		TemplateID:      &templateID,
		ComplianceStart: &period.Start,
		ComplianceEnd:   &period.End,
		DueDate:         &due,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	return g.Store.CreateTask(ctx, instance)
}

// initialStatus resolves the tenant's rank-1 status.
func (g *Generator) initialStatus(ctx context.Context, tenantID TenantID) (*TaskStatus, error) {
	statuses, err := g.Store.GetTaskStatuses(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrNoInitialStatus)
	}
	// Statuses come back ordered by rank; the first is the initial state.
	return &statuses[0], nil
}

// synthesizeDetail builds a human-readable description from the service type
// name and the formatted period.
func (g *Generator) synthesizeDetail(ctx context.Context, tmpl Task, period Period) string {
	name := "Recurring task"
	st, err := g.Store.GetServiceType(ctx, tmpl.ServiceTypeID, tmpl.TenantID)
	if err == nil && st != nil {
		name = st.Name
	}
	return fmt.Sprintf("%s for %s to %s", name,
		period.Start.Format("2 Jan 2006"), period.End.Format("2 Jan 2006"))
}

// =============================================================================
// TENANT SETTINGS
// =============================================================================

func (g *Generator) leadTimeDays(ctx context.Context, tenantID TenantID) (int, error) {
	value, ok, err := g.Store.GetTenantSetting(ctx, tenantID, SettingLeadTimeDays)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultLeadTimeDays, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 0 {
		log.Printf("[Generator] Warning: tenant %s has invalid %s=%q, using default", tenantID, SettingLeadTimeDays, value)
		return DefaultLeadTimeDays, nil
	}
	return days, nil
}

func (g *Generator) autoApprove(ctx context.Context, tenantID TenantID) (bool, error) {
	value, ok, err := g.Store.GetTenantSetting(ctx, tenantID, SettingAutoApprove)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[Generator] Warning: tenant %s has invalid %s=%q, treating as off", tenantID, SettingAutoApprove, value)
		return false, nil
	}
	return enabled, nil
}
