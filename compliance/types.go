/*
Package compliance provides the recurring task generation engine.

PURPOSE:
  This package contains the temporal core of the back office: for each tenant,
  it inspects task templates flagged as recurring, computes the next compliance
  period, and materializes a new task instance for it, subject to a lead-time
  window, duplicate prevention, and an approval gate. Everything else in the
  system is ordinary CRUD against the storage collaborator.

KEY CONCEPTS IN THIS FILE (types.go):
  - Task: both the recurring template (IsRecurring=true) and the generated
    instance (IsAutoGenerated=true) are task records
  - Tenant/TaskStatus/ServiceType: collaborator-owned records the generator reads
  - Typed IDs: prevents mixing tenant/task/status identifiers

DESIGN PRINCIPLES:
  1. Templates are read-only input; the generator never mutates or deletes them
  2. Instances reference their template by id only, never owning it
  3. Precision: rates use decimal.Decimal, never float64
  4. Idempotency: at most one instance per (tenant, template, period)

SEE ALSO:
  - period.go: Compliance period calculation
  - generator.go: The orchestrator that ties it all together
  - approval.go: Approval lifecycle for generated instances
*/
package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS - Type-safe IDs
// =============================================================================

type TenantID string
type TaskID string
type ClientID string
type EntityID string
type UserID string
type StatusID string
type CategoryID string
type ServiceTypeID string

// =============================================================================
// COLLABORATOR RECORDS
// =============================================================================

// Tenant is an accounting firm using the back office.
type Tenant struct {
	ID        TenantID
	Name      string
	CreatedAt time.Time
}

// TaskStatus is a tenant-defined workflow state. Rank orders the workflow;
// rank 1 is the initial state ("New") assigned to every generated instance.
type TaskStatus struct {
	ID       StatusID
	TenantID TenantID
	Name     string
	Rank     int
}

// ServiceType categorizes the work a task covers (e.g. "VAT Return").
// The generator reads it only to synthesize instance descriptions.
type ServiceType struct {
	ID       ServiceTypeID
	TenantID TenantID
	Name     string
}

// =============================================================================
// TENANT SETTINGS - Keys the generator reads
// =============================================================================

const (
	// SettingLeadTimeDays overrides how many days before the due date
	// generation may occur. Integer, in days.
	SettingLeadTimeDays = "recurring.lead_time_days"

	// SettingAutoApprove toggles whether generated instances skip the
	// approval queue. Boolean, default off.
	SettingAutoApprove = "recurring.auto_approve"
)

// DefaultLeadTimeDays applies when a tenant has no lead-time setting.
const DefaultLeadTimeDays = 14

// =============================================================================
// TASK - Template and generated instance share one record shape
// =============================================================================

// Task is a task record. A task with IsRecurring=true acts as a recurring
// template: it is never completed itself, only used to stamp out instances.
// A task with IsAutoGenerated=true is such an instance, carrying a weak
// back-reference to its template and its own computed period and due date.
type Task struct {
	ID       TaskID
	TenantID TenantID

	// Scope: which client/entity the task belongs to. Admin tasks belong
	// to the firm itself rather than a client.
	ClientID *ClientID
	EntityID *EntityID
	IsAdmin  bool

	// Categorization, inherited from template to instance.
	CategoryID    CategoryID
	ServiceTypeID ServiceTypeID
	AssigneeID    *UserID
	StatusID      StatusID

	Detail   string
	Currency string
	Rate     decimal.Decimal

	// Recurrence definition (templates only).
	IsRecurring      bool
	Frequency        Frequency
	DurationModifier DurationModifier

	// Generation metadata (instances only).
	IsAutoGenerated bool
	NeedsApproval   bool

	// TemplateID is a weak reference: deleting the template never cascades
	// to its instances.
	TemplateID *TaskID

	// Compliance window. On a template these hold the last known period and
	// serve as the reference instant for the next one; on an instance they
	// hold the computed period.
	ComplianceStart *time.Time
	ComplianceEnd   *time.Time
	DueDate         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScopeFilter returns the task filter matching this task's client/entity/admin
// scope. Used by duplicate detection to query sibling instances.
func (t Task) ScopeFilter() TaskFilter {
	isAdmin := t.IsAdmin
	return TaskFilter{
		ClientID: t.ClientID,
		EntityID: t.EntityID,
		IsAdmin:  &isAdmin,
	}
}
