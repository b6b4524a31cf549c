/*
approval.go - Approval lifecycle for generated instances

PURPOSE:
  Instances generated with NeedsApproval=true sit in a review queue and must
  not be treated as active work until a human confirms them. This file is
  that queue: listing, approving, and rejecting.

STATE MACHINE:
  Pending -> Approved  (NeedsApproval cleared, terminal)
  Pending -> Rejected  (record deleted outright, terminal)

  No other transition is valid. Approving or rejecting anything that is not
  an auto-generated pending instance is a no-op failure reported as false,
  never an error.

SEE ALSO:
  - generator.go: Where NeedsApproval is decided at creation time
*/
package compliance

import (
	"context"
	"log"
)

// ApprovalService drives the approval lifecycle of generated instances.
type ApprovalService struct {
	Store Store
}

func NewApprovalService(store Store) *ApprovalService {
	return &ApprovalService{Store: store}
}

// ListPending returns the tenant's auto-generated instances awaiting review.
func (s *ApprovalService) ListPending(ctx context.Context, tenantID TenantID) ([]Task, error) {
	tasks, err := s.Store.GetTasks(ctx, tenantID, TaskFilter{})
	if err != nil {
		return nil, err
	}

	var pending []Task
	for _, t := range tasks {
		if t.IsAutoGenerated && t.NeedsApproval {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

// Approve clears NeedsApproval on a pending auto-generated instance.
// Returns false when preconditions fail: not found, wrong tenant, already
// approved, or not auto-generated.
func (s *ApprovalService) Approve(ctx context.Context, taskID TaskID, tenantID TenantID) (bool, error) {
	task, err := s.Store.GetTask(ctx, taskID, tenantID)
	if err != nil {
		return false, err
	}
	if !isPending(task) {
		return false, nil
	}

	cleared := false
	updated, err := s.Store.UpdateTask(ctx, taskID, tenantID, TaskPatch{NeedsApproval: &cleared})
	if err != nil {
		return false, err
	}
	return updated != nil, nil
}

// ApproveAll approves every pending instance individually and returns how
// many succeeded. A single instance's failure does not abort the batch.
func (s *ApprovalService) ApproveAll(ctx context.Context, tenantID TenantID) (int, error) {
	pending, err := s.ListPending(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, t := range pending {
		ok, err := s.Approve(ctx, t.ID, tenantID)
		if err != nil {
			log.Printf("[Approval] Error approving task %s (tenant %s): %v", t.ID, tenantID, err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// Reject deletes a pending auto-generated instance outright. Same
// preconditions as Approve.
func (s *ApprovalService) Reject(ctx context.Context, taskID TaskID, tenantID TenantID) (bool, error) {
	task, err := s.Store.GetTask(ctx, taskID, tenantID)
	if err != nil {
		return false, err
	}
	if !isPending(task) {
		return false, nil
	}

	return s.Store.DeleteTask(ctx, taskID, tenantID)
}

func isPending(task *Task) bool {
	return task != nil && task.IsAutoGenerated && task.NeedsApproval
}
