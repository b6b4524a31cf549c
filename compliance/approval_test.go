package compliance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/compliance-engine/compliance"
	"github.com/warp/compliance-engine/store/memory"
)

// seedInstance stores an auto-generated instance in the given approval state.
func seedInstance(t *testing.T, store *memory.Store, id compliance.TaskID, pending bool) {
	t.Helper()
	// Each instance gets its own template so the (tenant, template, period)
	// uniqueness constraint does not trip between seeds.
	templateID := "tmpl-for-" + id
	start := date(2025, time.June, 1)
	end := endOfDay(2025, time.June, 30)
	task := &compliance.Task{
		ID:              id,
		TenantID:        tenantA,
		CategoryID:      catTax,
		ServiceTypeID:   svcVAT,
		StatusID:        statusNew,
		IsAutoGenerated: true,
		NeedsApproval:   pending,
		TemplateID:      &templateID,
		ComplianceStart: &start,
		ComplianceEnd:   &end,
		CreatedAt:       date(2025, time.June, 10),
	}
	require.NoError(t, store.CreateTask(context.Background(), task))
}

func newApprovalFixture(t *testing.T) (*memory.Store, *compliance.ApprovalService) {
	t.Helper()
	store := memory.New()
	store.AddTenant(compliance.Tenant{ID: tenantA, Name: "Acme", CreatedAt: date(2025, time.January, 1)})
	return store, compliance.NewApprovalService(store)
}

func TestApprove_PendingInstance(t *testing.T) {
	ctx := context.Background()
	store, svc := newApprovalFixture(t)
	seedInstance(t, store, "inst-1", true)

	ok, err := svc.Approve(ctx, "inst-1", tenantA)
	require.NoError(t, err)
	assert.True(t, ok)

	task, err := store.GetTask(ctx, "inst-1", tenantA)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.NeedsApproval, "approval must clear NeedsApproval")
}

func TestApprove_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("already approved is a no-op failure", func(t *testing.T) {
		store, svc := newApprovalFixture(t)
		seedInstance(t, store, "inst-1", false)

		ok, err := svc.Approve(ctx, "inst-1", tenantA)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not found", func(t *testing.T) {
		_, svc := newApprovalFixture(t)

		ok, err := svc.Approve(ctx, "missing", tenantA)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wrong tenant", func(t *testing.T) {
		store, svc := newApprovalFixture(t)
		seedInstance(t, store, "inst-1", true)

		ok, err := svc.Approve(ctx, "inst-1", "other-tenant")
		require.NoError(t, err)
		assert.False(t, ok)

		// And the instance is untouched.
		task, err := store.GetTask(ctx, "inst-1", tenantA)
		require.NoError(t, err)
		assert.True(t, task.NeedsApproval)
	})

	t.Run("manually created task is never approvable", func(t *testing.T) {
		store, svc := newApprovalFixture(t)
		manual := &compliance.Task{
			ID:            "manual-1",
			TenantID:      tenantA,
			CategoryID:    catTax,
			ServiceTypeID: svcVAT,
			StatusID:      statusNew,
			NeedsApproval: true, // even with the flag set
			CreatedAt:     date(2025, time.June, 10),
		}
		require.NoError(t, store.CreateTask(ctx, manual))

		ok, err := svc.Approve(ctx, "manual-1", tenantA)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestReject_DeletesInstanceOutright(t *testing.T) {
	ctx := context.Background()
	store, svc := newApprovalFixture(t)
	seedInstance(t, store, "inst-1", true)

	ok, err := svc.Reject(ctx, "inst-1", tenantA)
	require.NoError(t, err)
	assert.True(t, ok)

	task, err := store.GetTask(ctx, "inst-1", tenantA)
	require.NoError(t, err)
	assert.Nil(t, task, "rejected instance must be deleted")

	pending, err := svc.ListPending(ctx, tenantA)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReject_NonPendingIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, svc := newApprovalFixture(t)
	seedInstance(t, store, "inst-1", false)

	ok, err := svc.Reject(ctx, "inst-1", tenantA)
	require.NoError(t, err)
	assert.False(t, ok)

	task, err := store.GetTask(ctx, "inst-1", tenantA)
	require.NoError(t, err)
	assert.NotNil(t, task, "non-pending instance must not be deleted")
}

func TestListPending_OnlyPendingAutoGenerated(t *testing.T) {
	ctx := context.Background()
	store, svc := newApprovalFixture(t)
	seedInstance(t, store, "pending-1", true)
	seedInstance(t, store, "approved-1", false)

	pending, err := svc.ListPending(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, compliance.TaskID("pending-1"), pending[0].ID)
}

func TestApproveAll_CountsAndClears(t *testing.T) {
	ctx := context.Background()
	store, svc := newApprovalFixture(t)
	seedInstance(t, store, "inst-1", true)
	seedInstance(t, store, "inst-2", true)
	seedInstance(t, store, "inst-3", false)

	count, err := svc.ApproveAll(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := svc.ListPending(ctx, tenantA)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
