package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	logger := common.NewLogger("error")
	store, err := NewStore(logger, filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *common.Logger {
	return common.NewLogger("error")
}

func TestStore_OpenClose(t *testing.T) {
	dir := t.TempDir()
	logger := testLogger()
	store, err := NewStore(logger, filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store.DB() == nil {
		t.Fatal("expected non-nil DB")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil DB should not error: %v", err)
	}
}

func defaultTestLimits() map[models.Plan]models.PlanLimits {
	return map[models.Plan]models.PlanLimits{
		models.PlanFree: {MonthlyWords: 1000, MonthlyChars: 5000},
		models.PlanPro:  {MonthlyWords: 100000, MonthlyChars: 500000},
	}
}

func TestQuotaLedger_AdmitWordLimitCheckedFirst(t *testing.T) {
	store := newTestStore(t)
	ledger := NewQuotaLedger(store, testLogger(), defaultTestLimits(), nil)
	ctx := context.Background()

	decision, err := ledger.Admit(ctx, "teacher-1", 1500, 10000)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if decision.Admitted {
		t.Fatal("expected denial over word limit")
	}
	if decision.Reason != "monthly word limit exceeded" {
		t.Errorf("expected word-limit reason, got %q", decision.Reason)
	}
}

func TestQuotaLedger_AdmitCharacterLimitSecond(t *testing.T) {
	store := newTestStore(t)
	ledger := NewQuotaLedger(store, testLogger(), defaultTestLimits(), nil)
	ctx := context.Background()

	decision, err := ledger.Admit(ctx, "teacher-1", 100, 50000)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if decision.Admitted {
		t.Fatal("expected denial over character limit")
	}
	if decision.Reason != "monthly character limit exceeded" {
		t.Errorf("expected character-limit reason, got %q", decision.Reason)
	}
}

func TestQuotaLedger_AdmitAndRecordUsage(t *testing.T) {
	store := newTestStore(t)
	ledger := NewQuotaLedger(store, testLogger(), defaultTestLimits(), nil)
	ctx := context.Background()

	decision, err := ledger.Admit(ctx, "teacher-2", 200, 1000)
	if err != nil || !decision.Admitted {
		t.Fatalf("expected admission, got %+v err=%v", decision, err)
	}
	if err := ledger.RecordUsage(ctx, "teacher-2", 200, 1); err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}

	decision, err = ledger.Admit(ctx, "teacher-2", 900, 1000)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if decision.Admitted {
		t.Fatal("expected denial: 200 + 900 > 1000 monthly word limit")
	}
}

func TestQuotaLedger_SchoolsPlanAlwaysAdmits(t *testing.T) {
	store := newTestStore(t)
	planOf := func(context.Context, string) (models.Plan, error) { return models.PlanSchools, nil }
	ledger := NewQuotaLedger(store, testLogger(), defaultTestLimits(), planOf)
	ctx := context.Background()

	decision, err := ledger.Admit(ctx, "school-1", 1_000_000, 5_000_000)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !decision.Admitted {
		t.Fatal("SCHOOLS plan should always be admitted")
	}
}
