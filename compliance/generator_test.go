package compliance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/compliance-engine/compliance"
	"github.com/warp/compliance-engine/store/memory"
)

// =============================================================================
// FIXTURE
// =============================================================================

const (
	tenantA   = compliance.TenantID("tenant-a")
	statusNew = compliance.StatusID("status-new")
	svcVAT    = compliance.ServiceTypeID("svc-vat")
	catTax    = compliance.CategoryID("cat-tax")
)

// newFixture seeds a tenant with a rank-1 status and a service type, and
// returns a generator with a fixed clock of 2025-06-15.
func newFixture(t *testing.T) (*memory.Store, *compliance.Generator) {
	t.Helper()

	store := memory.New()
	store.AddTenant(compliance.Tenant{ID: tenantA, Name: "Acme Accounting", CreatedAt: date(2025, time.January, 1)})
	store.AddTaskStatus(compliance.TaskStatus{ID: statusNew, TenantID: tenantA, Name: "New", Rank: 1})
	store.AddTaskStatus(compliance.TaskStatus{ID: "status-done", TenantID: tenantA, Name: "Done", Rank: 2})
	store.AddServiceType(compliance.ServiceType{ID: svcVAT, TenantID: tenantA, Name: "VAT Return"})

	gen := compliance.NewGenerator(store)
	gen.Now = func() time.Time { return date(2025, time.June, 15) }
	return store, gen
}

// monthlyTemplate returns a template whose next period is June 2025
// (due 25 June, inside the default 14-day lead window on 15 June).
func monthlyTemplate(id compliance.TaskID) *compliance.Task {
	lastEnd := endOfDay(2025, time.May, 31)
	client := compliance.ClientID("client-1")
	return &compliance.Task{
		ID:            id,
		TenantID:      tenantA,
		ClientID:      &client,
		CategoryID:    catTax,
		ServiceTypeID: svcVAT,
		StatusID:      statusNew,
		Currency:      "EUR",
		Rate:          decimal.NewFromInt(150),
		IsRecurring:   true,
		Frequency:     compliance.NewFrequency(compliance.FreqMonthly),
		ComplianceEnd: &lastEnd,
		CreatedAt:     date(2025, time.January, 2),
	}
}

func instancesOf(t *testing.T, store *memory.Store, templateID compliance.TaskID) []compliance.Task {
	t.Helper()
	tasks, err := store.GetTasks(context.Background(), tenantA, compliance.TaskFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []compliance.Task
	for _, task := range tasks {
		if task.IsAutoGenerated && task.TemplateID != nil && *task.TemplateID == templateID {
			out = append(out, task)
		}
	}
	return out
}

// =============================================================================
// INSTANCE CREATION
// =============================================================================

func TestGenerate_CreatesInstanceFromTemplate(t *testing.T) {
	ctx := context.Background()
	store, gen := newFixture(t)
	tmpl := monthlyTemplate("tmpl-1")
	if err := store.CreateTask(ctx, tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	summary, err := gen.GenerateForTenant(ctx, tenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("created: got %d, want 1", summary.Created)
	}

	instances := instancesOf(t, store, "tmpl-1")
	if len(instances) != 1 {
		t.Fatalf("instances: got %d, want 1", len(instances))
	}

	inst := instances[0]
	if inst.IsRecurring {
		t.Error("instance must not itself be recurring")
	}
	if !inst.NeedsApproval {
		t.Error("instance must need approval when auto-approve is off")
	}
	if inst.StatusID != statusNew {
		t.Errorf("status: got %s, want rank-1 status", inst.StatusID)
	}
	if inst.ClientID == nil || *inst.ClientID != "client-1" {
		t.Error("client scope not inherited")
	}
	if !inst.Rate.Equal(decimal.NewFromInt(150)) {
		t.Errorf("rate not inherited: got %s", inst.Rate)
	}
	if inst.ComplianceStart == nil || !inst.ComplianceStart.Equal(date(2025, time.June, 1)) {
		t.Errorf("period start: got %v, want 2025-06-01", inst.ComplianceStart)
	}
	if inst.ComplianceEnd == nil || !inst.ComplianceEnd.Equal(endOfDay(2025, time.June, 30)) {
		t.Errorf("period end: got %v, want 2025-06-30 end of day", inst.ComplianceEnd)
	}
	if inst.DueDate == nil || !inst.DueDate.Equal(endOfDay(2025, time.June, 25)) {
		t.Errorf("due date: got %v, want 2025-06-25 end of day", inst.DueDate)
	}
	if inst.Detail == "" {
		t.Error("detail must be synthesized when template has none")
	}
}

func TestGenerate_TemplateDetailIsInherited(t *testing.T) {
	ctx := context.Background()
	store, gen := newFixture(t)
	tmpl := monthlyTemplate("tmpl-1")
	tmpl.Detail = "Monthly VAT filing for Acme GmbH"
	if err := store.CreateTask(ctx, tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	if _, err := gen.GenerateForTenant(ctx, tenantA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instances := instancesOf(t, store, "tmpl-1")
	if len(instances) != 1 || instances[0].Detail != tmpl.Detail {
		t.Error("template detail must be inherited verbatim")
	}
}

// =============================================================================
// IDEMPOTENCE AND EXCLUSIONS
// =============================================================================

func TestGenerate_IsIdempotent(t *testing.T) {
	// GIVEN: One due template
	// WHEN: Generation runs twice with no intervening state change
	// THEN: The second run creates nothing
	ctx := context.Background()
	store, gen := newFixture(t)
	if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	first := gen.GenerateUpcoming(ctx)
	second := gen.GenerateUpcoming(ctx)

	if first.Created != 1 {
		t.Errorf("first run created: got %d, want 1", first.Created)
	}
	if second.Created != 0 {
		t.Errorf("second run created: got %d, want 0", second.Created)
	}
	if got := len(instancesOf(t, store, "tmpl-1")); got != 1 {
		t.Errorf("instances after two runs: got %d, want 1", got)
	}
}

func TestGenerate_OneTimeNeverProduces(t *testing.T) {
	ctx := context.Background()
	store, gen := newFixture(t)
	tmpl := monthlyTemplate("tmpl-1")
	tmpl.Frequency = compliance.NewFrequency(compliance.FreqOneTime)
	if err := store.CreateTask(ctx, tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	summary, err := gen.GenerateForTenant(ctx, tenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 0 || summary.Failed != 0 {
		t.Errorf("one-time template must be a clean skip, got %+v", summary)
	}
	if len(instancesOf(t, store, "tmpl-1")) != 0 {
		t.Error("one-time template produced an instance")
	}
}

func TestGenerate_UnsupportedFrequencySkipsWithoutError(t *testing.T) {
	ctx := context.Background()
	store, gen := newFixture(t)
	tmpl := monthlyTemplate("tmpl-1")
	tmpl.Frequency = compliance.ParseFrequency("whenever")
	if err := store.CreateTask(ctx, tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	summary, err := gen.GenerateForTenant(ctx, tenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Failed != 0 {
		t.Errorf("unsupported frequency must not count as a failure, got %+v", summary)
	}
	if len(instancesOf(t, store, "tmpl-1")) != 0 {
		t.Error("unsupported frequency produced an instance")
	}
}

func TestGenerate_DuplicateSuppression(t *testing.T) {
	// GIVEN: An existing instance with identical category, service type and period
	// WHEN: Generation runs again for the same template
	// THEN: Zero new instances
	ctx := context.Background()
	store, gen := newFixture(t)
	if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	if _, err := gen.GenerateForTenant(ctx, tenantA); err != nil {
		t.Fatalf("first run: %v", err)
	}

	summary, err := gen.GenerateForTenant(ctx, tenantA)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Created != 0 || summary.Skipped != 1 {
		t.Errorf("duplicate must be skipped, got %+v", summary)
	}
}

// =============================================================================
// LEAD WINDOW
// =============================================================================

func TestGenerate_LeadWindowGate(t *testing.T) {
	// Due date is 2025-06-25 end of day; default lead time is 14 days, so
	// the window opens at 2025-06-11 end of day.
	ctx := context.Background()

	t.Run("before the window nothing is generated", func(t *testing.T) {
		store, gen := newFixture(t)
		gen.Now = func() time.Time { return date(2025, time.June, 5) }
		if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
			t.Fatalf("seed template: %v", err)
		}

		summary, err := gen.GenerateForTenant(ctx, tenantA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Created != 0 {
			t.Errorf("created before lead window: got %d, want 0", summary.Created)
		}
	})

	t.Run("at the boundary instant generation proceeds", func(t *testing.T) {
		store, gen := newFixture(t)
		gen.Now = func() time.Time { return endOfDay(2025, time.June, 11) }
		if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
			t.Fatalf("seed template: %v", err)
		}

		summary, err := gen.GenerateForTenant(ctx, tenantA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Created != 1 {
			t.Errorf("created at boundary: got %d, want 1", summary.Created)
		}
	})

	t.Run("tenant lead time override widens the window", func(t *testing.T) {
		store, gen := newFixture(t)
		gen.Now = func() time.Time { return date(2025, time.June, 5) }
		store.SetTenantSetting(tenantA, compliance.SettingLeadTimeDays, "30")
		if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
			t.Fatalf("seed template: %v", err)
		}

		summary, err := gen.GenerateForTenant(ctx, tenantA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Created != 1 {
			t.Errorf("created with 30 day lead: got %d, want 1", summary.Created)
		}
	})
}

// =============================================================================
// APPROVAL POLICY AND CONFIG GAPS
// =============================================================================

func TestGenerate_AutoApproveSetting(t *testing.T) {
	ctx := context.Background()
	store, gen := newFixture(t)
	store.SetTenantSetting(tenantA, compliance.SettingAutoApprove, "true")
	if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	if _, err := gen.GenerateForTenant(ctx, tenantA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instances := instancesOf(t, store, "tmpl-1")
	if len(instances) != 1 {
		t.Fatalf("instances: got %d, want 1", len(instances))
	}
	if instances[0].NeedsApproval {
		t.Error("auto-approve tenant must produce instances with NeedsApproval=false")
	}
}

func TestGenerate_MissingInitialStatusFailsTemplateOnly(t *testing.T) {
	// GIVEN: A tenant with templates but no statuses at all
	// THEN: The template is counted failed and nothing is created
	ctx := context.Background()
	store := memory.New()
	store.AddTenant(compliance.Tenant{ID: tenantA, Name: "Acme", CreatedAt: date(2025, time.January, 1)})
	store.AddServiceType(compliance.ServiceType{ID: svcVAT, TenantID: tenantA, Name: "VAT Return"})

	gen := compliance.NewGenerator(store)
	gen.Now = func() time.Time { return date(2025, time.June, 15) }

	if err := store.CreateTask(ctx, monthlyTemplate("tmpl-1")); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	summary, err := gen.GenerateForTenant(ctx, tenantA)
	if err != nil {
		t.Fatalf("a config gap must not fail the tenant run: %v", err)
	}
	if summary.Failed != 1 || summary.Created != 0 {
		t.Errorf("expected 1 failed template, got %+v", summary)
	}
}

func TestGenerate_TenantFailureDoesNotBlockOthers(t *testing.T) {
	// GIVEN: Tenant A has no statuses, tenant B is fully configured
	// WHEN: A full run executes
	// THEN: Tenant B still gets its instance
	ctx := context.Background()
	store := memory.New()

	store.AddTenant(compliance.Tenant{ID: tenantA, Name: "Broken", CreatedAt: date(2025, time.January, 1)})
	store.AddServiceType(compliance.ServiceType{ID: svcVAT, TenantID: tenantA, Name: "VAT Return"})

	tenantB := compliance.TenantID("tenant-b")
	store.AddTenant(compliance.Tenant{ID: tenantB, Name: "Healthy", CreatedAt: date(2025, time.January, 2)})
	store.AddTaskStatus(compliance.TaskStatus{ID: "b-new", TenantID: tenantB, Name: "New", Rank: 1})
	store.AddServiceType(compliance.ServiceType{ID: "b-svc", TenantID: tenantB, Name: "Payroll"})

	gen := compliance.NewGenerator(store)
	gen.Now = func() time.Time { return date(2025, time.June, 15) }

	if err := store.CreateTask(ctx, monthlyTemplate("tmpl-a")); err != nil {
		t.Fatalf("seed template A: %v", err)
	}

	lastEnd := endOfDay(2025, time.May, 31)
	tmplB := &compliance.Task{
		ID:            "tmpl-b",
		TenantID:      tenantB,
		CategoryID:    "b-cat",
		ServiceTypeID: "b-svc",
		StatusID:      "b-new",
		IsRecurring:   true,
		Frequency:     compliance.NewFrequency(compliance.FreqMonthly),
		ComplianceEnd: &lastEnd,
		CreatedAt:     date(2025, time.January, 3),
	}
	if err := store.CreateTask(ctx, tmplB); err != nil {
		t.Fatalf("seed template B: %v", err)
	}

	summary := gen.GenerateUpcoming(ctx)
	if summary.Tenants != 2 {
		t.Errorf("tenants processed: got %d, want 2", summary.Tenants)
	}
	if summary.Created != 1 {
		t.Errorf("created: got %d, want 1 (tenant B only)", summary.Created)
	}
	if summary.Failed != 1 {
		t.Errorf("failed: got %d, want 1 (tenant A's template)", summary.Failed)
	}

	tasksB, err := store.GetTasks(ctx, tenantB, compliance.TaskFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	generated := 0
	for _, task := range tasksB {
		if task.IsAutoGenerated {
			generated++
		}
	}
	if generated != 1 {
		t.Errorf("tenant B generated instances: got %d, want 1", generated)
	}
}

func TestGenerate_TemplateWithoutHistoryAnchorsOnNow(t *testing.T) {
	// A template that has never had a period uses the current time as the
	// reference, so a monthly template generates for next month once the
	// lead window opens.
	ctx := context.Background()
	store, gen := newFixture(t)
	gen.Now = func() time.Time { return date(2025, time.June, 20) }
	// Next month's due date (26 July) is outside the default window on
	// 20 June, so widen the lead time.
	store.SetTenantSetting(tenantA, compliance.SettingLeadTimeDays, "45")

	tmpl := monthlyTemplate("tmpl-1")
	tmpl.ComplianceEnd = nil
	if err := store.CreateTask(ctx, tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	summary, err := gen.GenerateForTenant(ctx, tenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("created: got %d, want 1", summary.Created)
	}

	inst := instancesOf(t, store, "tmpl-1")[0]
	if !inst.ComplianceStart.Equal(date(2025, time.July, 1)) {
		t.Errorf("period start: got %v, want 2025-07-01", inst.ComplianceStart)
	}
}
