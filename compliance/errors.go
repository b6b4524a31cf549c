/*
errors.go - Centralized error types for the generation engine

PURPOSE:
  All error values in one place. Failures in this engine are isolated to the
  smallest skippable unit (one template, one tenant) and nothing here is ever
  fatal to the process, so callers mostly classify errors rather than abort
  on them.

ERROR CATEGORIES:
  1. Configuration gaps - tenant/template data the generator needs is missing
  2. Not-found errors   - referenced records are absent
  3. Generation errors  - duplicate-instance constraint hits (benign skips)

SEE ALSO:
  - generator.go: Logs and skips on these
  - store/sqlite: Maps unique-constraint violations to ErrDuplicateInstance
*/
package compliance

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoInitialStatus is returned when a tenant has no rank-1 task status
	// to assign to generated instances. Generation for that tenant's
	// templates cannot proceed until a status is configured.
	ErrNoInitialStatus = errors.New("tenant has no initial task status")

	// ErrUnsupportedFrequency is returned when a template's frequency does
	// not parse to a supported variant. Treated as a warning and a skip.
	ErrUnsupportedFrequency = errors.New("unsupported frequency")

	// ErrDuplicateInstance is returned by stores that enforce the
	// (tenant, template, period) uniqueness constraint when an identical
	// instance already exists. Expected under concurrent firings; callers
	// treat it as a skip, not a failure.
	ErrDuplicateInstance = errors.New("instance already exists for period")

	// ErrTenantNotFound is returned when a referenced tenant doesn't exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTaskNotFound is returned when a referenced task doesn't exist.
	ErrTaskNotFound = errors.New("task not found")
)

// IsConfigGap returns true if the error is missing tenant/template
// configuration rather than a storage failure.
func IsConfigGap(err error) bool {
	return errors.Is(err, ErrNoInitialStatus) ||
		errors.Is(err, ErrUnsupportedFrequency)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}
