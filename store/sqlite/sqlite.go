/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the compliance.Store interface plus the administrative CRUD the
  HTTP layer needs (tenants, settings, statuses, service types). In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  tenants:         Tenant records
  tenant_settings: Per-tenant key/value settings
  task_statuses:   Tenant-defined workflow states, ordered by rank
  service_types:   Work categorization
  tasks:           Templates and generated instances in one table

GENERATION IDEMPOTENCY:
  idx_unique_generated_instance enforces at most one auto-generated instance
  per (tenant, template, period). A concurrent identical write from an
  overlapping firing hits the index and surfaces as ErrDuplicateInstance,
  which the generator treats as a skip. This makes the read-then-write
  duplicate check race-proof.

WEAK TEMPLATE REFERENCE:
  tasks.template_id is a plain column, not a foreign key. Deleting a template
  never cascades to its instances.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

TIME STORAGE:
  Compliance boundaries carry millisecond precision (period ends at
  23:59:59.999), so they are stored as RFC3339Nano text. Audit timestamps
  use plain RFC3339.

SEE ALSO:
  - compliance/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/compliance-engine/compliance"
)

// Store implements compliance.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (tenant_id, key)
	);

	CREATE TABLE IF NOT EXISTS task_statuses (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		rank INTEGER NOT NULL,
		UNIQUE (tenant_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_task_statuses_tenant
		ON task_statuses(tenant_id, rank);

	CREATE TABLE IF NOT EXISTS service_types (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_service_types_tenant
		ON service_types(tenant_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		client_id TEXT,
		entity_id TEXT,
		is_admin INTEGER NOT NULL DEFAULT 0,
		category_id TEXT NOT NULL,
		service_type_id TEXT NOT NULL,
		assignee_id TEXT,
		status_id TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		rate TEXT NOT NULL DEFAULT '0',
		is_recurring INTEGER NOT NULL DEFAULT 0,
		frequency TEXT NOT NULL DEFAULT '',
		duration_modifier TEXT NOT NULL DEFAULT '',
		is_auto_generated INTEGER NOT NULL DEFAULT 0,
		needs_approval INTEGER NOT NULL DEFAULT 0,
		template_id TEXT,
		compliance_start TEXT,
		compliance_end TEXT,
		due_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_tenant
		ON tasks(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_tenant_recurring
		ON tasks(tenant_id, is_recurring);
	CREATE INDEX IF NOT EXISTS idx_tasks_tenant_approval
		ON tasks(tenant_id, is_auto_generated, needs_approval);

	-- CRITICAL: at most one generated instance per (tenant, template, period).
	-- Overlapping scheduler firings race on the read-then-write duplicate
	-- check; this index makes the second write fail instead of duplicating.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_generated_instance
		ON tasks(tenant_id, template_id, compliance_start, compliance_end)
		WHERE is_auto_generated = 1;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANTS
// =============================================================================

// CreateTenant persists a new tenant.
func (s *Store) CreateTenant(ctx context.Context, t *compliance.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id compliance.TenantID) (*compliance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = ?`, id)

	var t compliance.Tenant
	var createdAt string
	if err := row.Scan(&t.ID, &t.Name, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context, offset, limit int) ([]compliance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []compliance.Tenant
	for rows.Next() {
		var t compliance.Tenant
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// =============================================================================
// TENANT SETTINGS
// =============================================================================

// PutTenantSetting upserts a setting value.
func (s *Store) PutTenantSetting(ctx context.Context, tenantID compliance.TenantID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(tenant_id, key) DO UPDATE SET value = excluded.value`,
		tenantID, key, value)
	if err != nil {
		return fmt.Errorf("failed to put tenant setting: %w", err)
	}
	return nil
}

func (s *Store) GetTenantSetting(ctx context.Context, tenantID compliance.TenantID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM tenant_settings WHERE tenant_id = ? AND key = ?`,
		tenantID, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get tenant setting: %w", err)
	}
	return value, true, nil
}

// =============================================================================
// TASK STATUSES AND SERVICE TYPES
// =============================================================================

// CreateTaskStatus persists a workflow status for a tenant.
func (s *Store) CreateTaskStatus(ctx context.Context, st *compliance.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_statuses (id, tenant_id, name, rank) VALUES (?, ?, ?, ?)`,
		st.ID, st.TenantID, st.Name, st.Rank)
	if err != nil {
		return fmt.Errorf("failed to create task status: %w", err)
	}
	return nil
}

func (s *Store) GetTaskStatuses(ctx context.Context, tenantID compliance.TenantID) ([]compliance.TaskStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, rank FROM task_statuses WHERE tenant_id = ? ORDER BY rank ASC`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task statuses: %w", err)
	}
	defer rows.Close()

	var statuses []compliance.TaskStatus
	for rows.Next() {
		var st compliance.TaskStatus
		if err := rows.Scan(&st.ID, &st.TenantID, &st.Name, &st.Rank); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// CreateServiceType persists a service type for a tenant.
func (s *Store) CreateServiceType(ctx context.Context, st *compliance.ServiceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO service_types (id, tenant_id, name) VALUES (?, ?, ?)`,
		st.ID, st.TenantID, st.Name)
	if err != nil {
		return fmt.Errorf("failed to create service type: %w", err)
	}
	return nil
}

func (s *Store) GetServiceType(ctx context.Context, id compliance.ServiceTypeID, tenantID compliance.TenantID) (*compliance.ServiceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name FROM service_types WHERE id = ? AND tenant_id = ?`,
		id, tenantID)

	var st compliance.ServiceType
	if err := row.Scan(&st.ID, &st.TenantID, &st.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get service type: %w", err)
	}
	return &st, nil
}

// =============================================================================
// TASKS
// =============================================================================

const taskColumns = `id, tenant_id, client_id, entity_id, is_admin, category_id,
	service_type_id, assignee_id, status_id, detail, currency, rate,
	is_recurring, frequency, duration_modifier, is_auto_generated,
	needs_approval, template_id, compliance_start, compliance_end, due_date,
	created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, task *compliance.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.TenantID,
		nullableID(task.ClientID),
		nullableID(task.EntityID),
		boolToInt(task.IsAdmin),
		task.CategoryID,
		task.ServiceTypeID,
		nullableID(task.AssigneeID),
		task.StatusID,
		task.Detail,
		task.Currency,
		task.Rate.String(),
		boolToInt(task.IsRecurring),
		task.Frequency.String(),
		task.DurationModifier.String(),
		boolToInt(task.IsAutoGenerated),
		boolToInt(task.NeedsApproval),
		nullableID(task.TemplateID),
		nullableTime(task.ComplianceStart),
		nullableTime(task.ComplianceEnd),
		nullableTime(task.DueDate),
		task.CreatedAt.Format(time.RFC3339),
		task.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return compliance.ErrDuplicateInstance
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id compliance.TaskID, tenantID compliance.TenantID) (*compliance.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND tenant_id = ?`,
		id, tenantID)

	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *Store) GetTasks(ctx context.Context, tenantID compliance.TenantID, filter compliance.TaskFilter) ([]compliance.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.ClientID != nil {
		query += ` AND client_id = ?`
		args = append(args, *filter.ClientID)
	}
	if filter.EntityID != nil {
		query += ` AND entity_id = ?`
		args = append(args, *filter.EntityID)
	}
	if filter.IsAdmin != nil {
		query += ` AND is_admin = ?`
		args = append(args, boolToInt(*filter.IsAdmin))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return s.queryTasks(ctx, query, args...)
}

func (s *Store) ListRecurringTemplates(ctx context.Context, tenantID compliance.TenantID) ([]compliance.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE tenant_id = ? AND is_recurring = 1
		ORDER BY created_at ASC, id ASC`
	return s.queryTasks(ctx, query, tenantID)
}

func (s *Store) UpdateTask(ctx context.Context, id compliance.TaskID, tenantID compliance.TenantID, patch compliance.TaskPatch) (*compliance.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sets []string
	var args []any

	if patch.NeedsApproval != nil {
		sets = append(sets, "needs_approval = ?")
		args = append(args, boolToInt(*patch.NeedsApproval))
	}
	if patch.StatusID != nil {
		sets = append(sets, "status_id = ?")
		args = append(args, *patch.StatusID)
	}
	if patch.Detail != nil {
		sets = append(sets, "detail = ?")
		args = append(args, *patch.Detail)
	}
	if patch.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, *patch.AssigneeID)
	}

	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt.Format(time.RFC3339))

	args = append(args, id, tenantID)
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND tenant_id = ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND tenant_id = ?`,
		id, tenantID)
	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id compliance.TaskID, tenantID compliance.TenantID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]compliance.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []compliance.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*compliance.Task, error) {
	var t compliance.Task
	var clientID, entityID, assigneeID, templateID sql.NullString
	var complianceStart, complianceEnd, dueDate sql.NullString
	var isAdmin, isRecurring, isAutoGenerated, needsApproval int
	var rate, frequency, modifier, createdAt, updatedAt string

	err := row.Scan(
		&t.ID,
		&t.TenantID,
		&clientID,
		&entityID,
		&isAdmin,
		&t.CategoryID,
		&t.ServiceTypeID,
		&assigneeID,
		&t.StatusID,
		&t.Detail,
		&t.Currency,
		&rate,
		&isRecurring,
		&frequency,
		&modifier,
		&isAutoGenerated,
		&needsApproval,
		&templateID,
		&complianceStart,
		&complianceEnd,
		&dueDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.IsAdmin = isAdmin != 0
	t.IsRecurring = isRecurring != 0
	t.IsAutoGenerated = isAutoGenerated != 0
	t.NeedsApproval = needsApproval != 0

	if clientID.Valid {
		id := compliance.ClientID(clientID.String)
		t.ClientID = &id
	}
	if entityID.Valid {
		id := compliance.EntityID(entityID.String)
		t.EntityID = &id
	}
	if assigneeID.Valid {
		id := compliance.UserID(assigneeID.String)
		t.AssigneeID = &id
	}
	if templateID.Valid {
		id := compliance.TaskID(templateID.String)
		t.TemplateID = &id
	}

	t.Rate, _ = decimal.NewFromString(rate)
	t.Frequency = compliance.ParseFrequency(frequency)
	t.DurationModifier = compliance.ParseModifier(modifier)

	t.ComplianceStart = parseNullableTime(complianceStart)
	t.ComplianceEnd = parseNullableTime(complianceEnd)
	t.DueDate = parseNullableTime(dueDate)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &t, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableID[T ~string](id *T) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
