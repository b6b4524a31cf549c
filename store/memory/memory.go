// Package memory provides an in-memory Store implementation (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/compliance-engine/compliance"
)

// Store keeps everything in maps guarded by a single RWMutex. It enforces the
// same (tenant, template, period) uniqueness constraint as the SQLite store so
// generation races behave identically in tests.
type Store struct {
	mu           sync.RWMutex
	tenants      []compliance.Tenant
	settings     map[settingKey]string
	tasks        map[compliance.TaskID]compliance.Task
	statuses     map[compliance.TenantID][]compliance.TaskStatus
	serviceTypes map[serviceTypeKey]compliance.ServiceType
}

type settingKey struct {
	TenantID compliance.TenantID
	Key      string
}

type serviceTypeKey struct {
	TenantID compliance.TenantID
	ID       compliance.ServiceTypeID
}

func New() *Store {
	return &Store{
		settings:     make(map[settingKey]string),
		tasks:        make(map[compliance.TaskID]compliance.Task),
		statuses:     make(map[compliance.TenantID][]compliance.TaskStatus),
		serviceTypes: make(map[serviceTypeKey]compliance.ServiceType),
	}
}

// =============================================================================
// SEEDING - Setup helpers for tests and dev
// =============================================================================

func (s *Store) AddTenant(t compliance.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = append(s.tenants, t)
}

func (s *Store) SetTenantSetting(tenantID compliance.TenantID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settingKey{TenantID: tenantID, Key: key}] = value
}

func (s *Store) AddTaskStatus(st compliance.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := append(s.statuses[st.TenantID], st)
	sort.SliceStable(statuses, func(i, j int) bool { return statuses[i].Rank < statuses[j].Rank })
	s.statuses[st.TenantID] = statuses
}

func (s *Store) AddServiceType(st compliance.ServiceType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceTypes[serviceTypeKey{TenantID: st.TenantID, ID: st.ID}] = st
}

// =============================================================================
// STORE IMPLEMENTATION
// =============================================================================

func (s *Store) GetTenant(_ context.Context, id compliance.TenantID) (*compliance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.ID == id {
			out := t
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListTenants(_ context.Context, offset, limit int) ([]compliance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset >= len(s.tenants) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.tenants) {
		end = len(s.tenants)
	}
	page := make([]compliance.Tenant, end-offset)
	copy(page, s.tenants[offset:end])
	return page, nil
}

func (s *Store) GetTenantSetting(_ context.Context, tenantID compliance.TenantID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.settings[settingKey{TenantID: tenantID, Key: key}]
	return value, ok, nil
}

func (s *Store) GetTasks(_ context.Context, tenantID compliance.TenantID, filter compliance.TaskFilter) ([]compliance.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []compliance.Task
	for _, t := range s.tasks {
		if t.TenantID != tenantID {
			continue
		}
		if !matchesFilter(t, filter) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func matchesFilter(t compliance.Task, filter compliance.TaskFilter) bool {
	if filter.ClientID != nil && (t.ClientID == nil || *t.ClientID != *filter.ClientID) {
		return false
	}
	if filter.EntityID != nil && (t.EntityID == nil || *t.EntityID != *filter.EntityID) {
		return false
	}
	if filter.IsAdmin != nil && t.IsAdmin != *filter.IsAdmin {
		return false
	}
	return true
}

func (s *Store) ListRecurringTemplates(_ context.Context, tenantID compliance.TenantID) ([]compliance.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []compliance.Task
	for _, t := range s.tasks {
		if t.TenantID == tenantID && t.IsRecurring {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetTask(_ context.Context, id compliance.TaskID, tenantID compliance.TenantID) (*compliance.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	out := t
	return &out, nil
}

func (s *Store) CreateTask(_ context.Context, task *compliance.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror the SQLite unique index: one auto-generated instance per
	// (tenant, template, period).
	if task.IsAutoGenerated && task.TemplateID != nil && task.ComplianceStart != nil && task.ComplianceEnd != nil {
		for _, existing := range s.tasks {
			if !existing.IsAutoGenerated || existing.TemplateID == nil {
				continue
			}
			if existing.TenantID == task.TenantID &&
				*existing.TemplateID == *task.TemplateID &&
				existing.ComplianceStart != nil && existing.ComplianceStart.Equal(*task.ComplianceStart) &&
				existing.ComplianceEnd != nil && existing.ComplianceEnd.Equal(*task.ComplianceEnd) {
				return compliance.ErrDuplicateInstance
			}
		}
	}

	s.tasks[task.ID] = *task
	return nil
}

func (s *Store) UpdateTask(_ context.Context, id compliance.TaskID, tenantID compliance.TenantID, patch compliance.TaskPatch) (*compliance.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}

	if patch.NeedsApproval != nil {
		t.NeedsApproval = *patch.NeedsApproval
	}
	if patch.StatusID != nil {
		t.StatusID = *patch.StatusID
	}
	if patch.Detail != nil {
		t.Detail = *patch.Detail
	}
	if patch.AssigneeID != nil {
		t.AssigneeID = patch.AssigneeID
	}
	if !patch.UpdatedAt.IsZero() {
		t.UpdatedAt = patch.UpdatedAt
	}

	s.tasks[id] = t
	out := t
	return &out, nil
}

func (s *Store) DeleteTask(_ context.Context, id compliance.TaskID, tenantID compliance.TenantID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.TenantID != tenantID {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *Store) GetTaskStatuses(_ context.Context, tenantID compliance.TenantID) ([]compliance.TaskStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	statuses := make([]compliance.TaskStatus, len(s.statuses[tenantID]))
	copy(statuses, s.statuses[tenantID])
	return statuses, nil
}

func (s *Store) GetServiceType(_ context.Context, id compliance.ServiceTypeID, tenantID compliance.TenantID) (*compliance.ServiceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.serviceTypes[serviceTypeKey{TenantID: tenantID, ID: id}]
	if !ok {
		return nil, nil
	}
	out := st
	return &out, nil
}
