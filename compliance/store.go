/*
store.go - Storage collaborator interface

PURPOSE:
  Defines the interface between the generation engine and the database.
  Persistence of tenants, tasks, statuses, service types, and settings is
  ordinary CRUD owned elsewhere; the generator only ever touches it through
  this interface.

TENANT ISOLATION:
  Every read and write is tenant-scoped. The store enforces the tenant
  boundary; the generator never cross-checks it.

TENANT ENUMERATION:
  ListTenants is a first-class paginated query. The generator pages through
  it rather than probing IDs.

ABSENT RECORDS:
  Lookups return (nil, nil) for absent records. Errors are reserved for
  storage failures.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for testing

SEE ALSO:
  - generator.go, approval.go: The only consumers of this interface
*/
package compliance

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS AND PATCHES
// =============================================================================

// TaskFilter narrows GetTasks by client/entity/admin scope. Nil fields match
// everything.
type TaskFilter struct {
	ClientID *ClientID
	EntityID *EntityID
	IsAdmin  *bool
}

// TaskPatch carries the fields UpdateTask may change. Nil fields are left
// untouched.
type TaskPatch struct {
	NeedsApproval *bool
	StatusID      *StatusID
	Detail        *string
	AssigneeID    *UserID
	UpdatedAt     time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store is the storage collaborator the generation engine runs against.
type Store interface {
	// GetTenant returns the tenant, or (nil, nil) if absent.
	GetTenant(ctx context.Context, id TenantID) (*Tenant, error)

	// ListTenants returns a page of tenants ordered by creation time.
	ListTenants(ctx context.Context, offset, limit int) ([]Tenant, error)

	// GetTenantSetting returns a setting value and whether it was set.
	GetTenantSetting(ctx context.Context, tenantID TenantID, key string) (string, bool, error)

	// GetTasks returns the tenant's tasks matching the filter.
	GetTasks(ctx context.Context, tenantID TenantID, filter TaskFilter) ([]Task, error)

	// ListRecurringTemplates returns the tenant's tasks with IsRecurring=true.
	ListRecurringTemplates(ctx context.Context, tenantID TenantID) ([]Task, error)

	// GetTask returns the task, or (nil, nil) if absent or owned by another
	// tenant.
	GetTask(ctx context.Context, id TaskID, tenantID TenantID) (*Task, error)

	// CreateTask persists a new task. Returns ErrDuplicateInstance when an
	// auto-generated instance for the same (tenant, template, period)
	// already exists.
	CreateTask(ctx context.Context, task *Task) error

	// UpdateTask applies the patch and returns the updated task, or
	// (nil, nil) if absent.
	UpdateTask(ctx context.Context, id TaskID, tenantID TenantID, patch TaskPatch) (*Task, error)

	// DeleteTask removes the task, reporting whether a row was deleted.
	DeleteTask(ctx context.Context, id TaskID, tenantID TenantID) (bool, error)

	// GetTaskStatuses returns the tenant's statuses ordered by rank
	// ascending. Rank 1 is the initial state.
	GetTaskStatuses(ctx context.Context, tenantID TenantID) ([]TaskStatus, error)

	// GetServiceType returns the service type, or (nil, nil) if absent.
	// Used for description synthesis only.
	GetServiceType(ctx context.Context, id ServiceTypeID, tenantID TenantID) (*ServiceType, error)
}
