/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/compliance-engine/compliance"
)

// =============================================================================
// TENANTS
// =============================================================================

type CreateTenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TenantDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTenantDTO(t compliance.Tenant) TenantDTO {
	return TenantDTO{ID: string(t.ID), Name: t.Name, CreatedAt: t.CreatedAt}
}

type PutSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// =============================================================================
// STATUSES AND SERVICE TYPES
// =============================================================================

type CreateStatusRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type StatusDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type CreateServiceTypeRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// TASKS
// =============================================================================

// CreateTaskRequest creates either an ordinary task or, with isRecurring,
// a recurring template.
type CreateTaskRequest struct {
	ID               string  `json:"id,omitempty"`
	ClientID         *string `json:"clientId,omitempty"`
	EntityID         *string `json:"entityId,omitempty"`
	IsAdmin          bool    `json:"isAdmin,omitempty"`
	CategoryID       string  `json:"categoryId"`
	ServiceTypeID    string  `json:"serviceTypeId"`
	AssigneeID       *string `json:"assigneeId,omitempty"`
	StatusID         string  `json:"statusId"`
	Detail           string  `json:"detail,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	Rate             string  `json:"rate,omitempty"`
	IsRecurring      bool    `json:"isRecurring,omitempty"`
	Frequency        string  `json:"frequency,omitempty"`
	DurationModifier string  `json:"durationModifier,omitempty"`
	ComplianceStart  *time.Time `json:"complianceStart,omitempty"`
	ComplianceEnd    *time.Time `json:"complianceEnd,omitempty"`
}

type TaskDTO struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenantId"`
	ClientID         *string    `json:"clientId,omitempty"`
	EntityID         *string    `json:"entityId,omitempty"`
	IsAdmin          bool       `json:"isAdmin"`
	CategoryID       string     `json:"categoryId"`
	ServiceTypeID    string     `json:"serviceTypeId"`
	AssigneeID       *string    `json:"assigneeId,omitempty"`
	StatusID         string     `json:"statusId"`
	Detail           string     `json:"detail"`
	Currency         string     `json:"currency,omitempty"`
	Rate             string     `json:"rate"`
	IsRecurring      bool       `json:"isRecurring"`
	Frequency        string     `json:"frequency,omitempty"`
	DurationModifier string     `json:"durationModifier,omitempty"`
	IsAutoGenerated  bool       `json:"isAutoGenerated"`
	NeedsApproval    bool       `json:"needsApproval"`
	TemplateID       *string    `json:"templateId,omitempty"`
	ComplianceStart  *time.Time `json:"complianceStart,omitempty"`
	ComplianceEnd    *time.Time `json:"complianceEnd,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func toTaskDTO(t compliance.Task) TaskDTO {
	dto := TaskDTO{
		ID:               string(t.ID),
		TenantID:         string(t.TenantID),
		IsAdmin:          t.IsAdmin,
		CategoryID:       string(t.CategoryID),
		ServiceTypeID:    string(t.ServiceTypeID),
		StatusID:         string(t.StatusID),
		Detail:           t.Detail,
		Currency:         t.Currency,
		Rate:             t.Rate.String(),
		IsRecurring:      t.IsRecurring,
		IsAutoGenerated:  t.IsAutoGenerated,
		NeedsApproval:    t.NeedsApproval,
		ComplianceStart:  t.ComplianceStart,
		ComplianceEnd:    t.ComplianceEnd,
		DueDate:          t.DueDate,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.IsRecurring {
		dto.Frequency = t.Frequency.String()
		dto.DurationModifier = t.DurationModifier.String()
	}
	if t.ClientID != nil {
		v := string(*t.ClientID)
		dto.ClientID = &v
	}
	if t.EntityID != nil {
		v := string(*t.EntityID)
		dto.EntityID = &v
	}
	if t.AssigneeID != nil {
		v := string(*t.AssigneeID)
		dto.AssigneeID = &v
	}
	if t.TemplateID != nil {
		v := string(*t.TemplateID)
		dto.TemplateID = &v
	}
	return dto
}

func toTaskDTOs(tasks []compliance.Task) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, toTaskDTO(t))
	}
	return dtos
}

// =============================================================================
// APPROVAL AND GENERATION RESULTS
// =============================================================================

type ApprovalResultDTO struct {
	OK bool `json:"ok"`
}

type ApproveAllResultDTO struct {
	Approved int `json:"approved"`
}
