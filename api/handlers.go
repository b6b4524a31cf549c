/*
handlers.go - HTTP API handlers for the back office

PURPOSE:
  Exposes tenant/task CRUD, the recurring task generator's admin triggers,
  and the approval queue via REST. Handles HTTP request/response and JSON
  serialization, delegating all logic to the compliance package and the
  store.

ENDPOINTS:
  Tenants:
    POST   /api/tenants                               Create tenant
    GET    /api/tenants/{tenantID}                    Get tenant
    PUT    /api/tenants/{tenantID}/settings           Upsert a setting
    POST   /api/tenants/{tenantID}/statuses           Create task status
    POST   /api/tenants/{tenantID}/service-types      Create service type

  Tasks:
    POST   /api/tenants/{tenantID}/tasks              Create task/template
    GET    /api/tenants/{tenantID}/tasks              List tasks
    GET    /api/tenants/{tenantID}/tasks/{taskID}     Get task
    DELETE /api/tenants/{tenantID}/tasks/{taskID}     Delete task

  Approvals:
    GET    /api/tenants/{tenantID}/approvals                    List pending
    POST   /api/tenants/{tenantID}/approvals/approve-all        Approve all
    POST   /api/tenants/{tenantID}/approvals/{taskID}/approve   Approve one
    POST   /api/tenants/{tenantID}/approvals/{taskID}/reject    Reject one

  Admin:
    POST   /api/admin/generate                        Run generation, all tenants
    POST   /api/admin/generate/{tenantID}             Run generation, one tenant

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 404: Resource not found
  - 409: Conflict (approval preconditions not met)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: The periodic trigger behind the admin endpoints
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/compliance-engine/compliance"
	"github.com/warp/compliance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Generator *compliance.Generator
	Approvals *compliance.ApprovalService
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:     store,
		Generator: compliance.NewGenerator(store),
		Approvals: compliance.NewApprovalService(store),
	}
}

// =============================================================================
// TENANTS
// =============================================================================

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	tenant := &compliance.Tenant{
		ID:        compliance.TenantID(req.ID),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateTenant(r.Context(), tenant); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(*tenant))
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))
	tenant, err := h.Store.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

func (h *Handler) PutTenantSetting(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	var req PutSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.Store.PutTenantSetting(r.Context(), tenantID, req.Key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key, "value": req.Value})
}

func (h *Handler) CreateTaskStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Rank < 1 {
		writeError(w, http.StatusBadRequest, "name and rank >= 1 are required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	status := &compliance.TaskStatus{
		ID:       compliance.StatusID(req.ID),
		TenantID: tenantID,
		Name:     req.Name,
		Rank:     req.Rank,
	}
	if err := h.Store.CreateTaskStatus(r.Context(), status); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, StatusDTO{ID: req.ID, Name: req.Name, Rank: req.Rank})
}

func (h *Handler) CreateServiceType(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateServiceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	st := &compliance.ServiceType{
		ID:       compliance.ServiceTypeID(req.ID),
		TenantID: tenantID,
		Name:     req.Name,
	}
	if err := h.Store.CreateServiceType(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "name": req.Name})
}

// =============================================================================
// TASKS
// =============================================================================

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CategoryID == "" || req.ServiceTypeID == "" || req.StatusID == "" {
		writeError(w, http.StatusBadRequest, "categoryId, serviceTypeId and statusId are required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	rate := decimal.Zero
	if req.Rate != "" {
		var err error
		rate, err = decimal.NewFromString(req.Rate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid rate")
			return
		}
	}

	now := time.Now().UTC()
	task := &compliance.Task{
		ID:               compliance.TaskID(req.ID),
		TenantID:         tenantID,
		IsAdmin:          req.IsAdmin,
		CategoryID:       compliance.CategoryID(req.CategoryID),
		ServiceTypeID:    compliance.ServiceTypeID(req.ServiceTypeID),
		StatusID:         compliance.StatusID(req.StatusID),
		Detail:           req.Detail,
		Currency:         req.Currency,
		Rate:             rate,
		IsRecurring:      req.IsRecurring,
		Frequency:        compliance.ParseFrequency(req.Frequency),
		DurationModifier: compliance.ParseModifier(req.DurationModifier),
		ComplianceStart:  req.ComplianceStart,
		ComplianceEnd:    req.ComplianceEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.ClientID != nil {
		id := compliance.ClientID(*req.ClientID)
		task.ClientID = &id
	}
	if req.EntityID != nil {
		id := compliance.EntityID(*req.EntityID)
		task.EntityID = &id
	}
	if req.AssigneeID != nil {
		id := compliance.UserID(*req.AssigneeID)
		task.AssigneeID = &id
	}

	if err := h.Store.CreateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(*task))
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	var filter compliance.TaskFilter
	if v := r.URL.Query().Get("clientId"); v != "" {
		id := compliance.ClientID(v)
		filter.ClientID = &id
	}
	if v := r.URL.Query().Get("entityId"); v != "" {
		id := compliance.EntityID(v)
		filter.EntityID = &id
	}

	tasks, err := h.Store.GetTasks(r.Context(), tenantID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))
	taskID := compliance.TaskID(chi.URLParam(r, "taskID"))

	task, err := h.Store.GetTask(r.Context(), taskID, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(*task))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))
	taskID := compliance.TaskID(chi.URLParam(r, "taskID"))

	deleted, err := h.Store.DeleteTask(r.Context(), taskID, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// APPROVALS
// =============================================================================

func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	pending, err := h.Approvals.ListPending(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(pending))
}

func (h *Handler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))
	taskID := compliance.TaskID(chi.URLParam(r, "taskID"))

	ok, err := h.Approvals.Approve(r.Context(), taskID, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "task is not a pending auto-generated instance")
		return
	}
	writeJSON(w, http.StatusOK, ApprovalResultDTO{OK: true})
}

func (h *Handler) ApproveAllTasks(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	count, err := h.Approvals.ApproveAll(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ApproveAllResultDTO{Approved: count})
}

func (h *Handler) RejectTask(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))
	taskID := compliance.TaskID(chi.URLParam(r, "taskID"))

	ok, err := h.Approvals.Reject(r.Context(), taskID, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "task is not a pending auto-generated instance")
		return
	}
	writeJSON(w, http.StatusOK, ApprovalResultDTO{OK: true})
}

// =============================================================================
// ADMIN - Generation triggers
// =============================================================================

func (h *Handler) GenerateAll(w http.ResponseWriter, r *http.Request) {
	summary := h.Generator.GenerateUpcoming(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GenerateForTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := compliance.TenantID(chi.URLParam(r, "tenantID"))

	tenant, err := h.Store.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	summary, err := h.Generator.GenerateForTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
