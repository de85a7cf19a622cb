package report

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"messbook/internal/balance"
	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage/sqlite"
)

func setup(t *testing.T) (*Generator, *sqlite.SQLiteStore, string) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	mess := &models.Mess{Name: "Test Mess", ManagerID: "alice", InviteCode: "CODE0004"}
	if err := store.CreateMess(ctx, mess); err != nil {
		t.Fatalf("CreateMess failed: %v", err)
	}
	for _, id := range []string{"alice", "bob"} {
		role := models.RoleMember
		if id == "alice" {
			role = models.RoleManager
		}
		m := &models.Member{ID: id, MessID: mess.ID, DisplayName: id, Role: role}
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
	}

	balances := balance.New(store)
	return New(store, balances), store, mess.ID
}

func seedMonth(t *testing.T, store *sqlite.SQLiteStore, messID string) {
	t.Helper()
	ctx := context.Background()

	txs := []*models.Transaction{
		{MessID: messID, MemberID: "alice", Kind: models.KindExpense, Amount: 1250.50, Description: "Groceries", Date: "2026-08-05", Status: models.StatusApproved, CreatedBy: "alice"},
		{MessID: messID, MemberID: "bob", Kind: models.KindDeposit, Amount: 2000, Date: "2026-08-01", Status: models.StatusApproved, CreatedBy: "bob"},
		{MessID: messID, MemberID: "alice", Kind: models.KindDeposit, Amount: 500, Date: "2026-08-02", Status: models.StatusApproved, CreatedBy: "alice"},
		// Pending records must not appear anywhere in the report.
		{MessID: messID, MemberID: "bob", Kind: models.KindDeposit, Amount: 9999, Date: "2026-08-03", Status: models.StatusPending, CreatedBy: "bob"},
	}
	for _, tx := range txs {
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
	}

	for day := 1; day <= 10; day++ {
		date := time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
		for _, st := range []*models.MealStatus{
			{MessID: messID, MemberID: "alice", Date: date, Breakfast: 1, Lunch: 1, Dinner: 1},
			{MessID: messID, MemberID: "bob", Date: date, Breakfast: 1, Lunch: 1},
		} {
			if err := store.UpsertMealStatus(ctx, st); err != nil {
				t.Fatalf("UpsertMealStatus failed: %v", err)
			}
		}
	}
}

func TestGenerate(t *testing.T) {
	gen, store, messID := setup(t)
	ctx := context.Background()
	seedMonth(t, store, messID)

	report, err := gen.Generate(ctx, messID, 2026, 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.TotalExpenses != 1250.50 {
		t.Errorf("total expenses: expected 1250.50, got %v", report.TotalExpenses)
	}
	if report.TotalDeposits != 2500 {
		t.Errorf("total deposits: expected 2500, got %v", report.TotalDeposits)
	}
	if report.TotalMeals != 50 {
		t.Errorf("total meals: expected 50, got %v", report.TotalMeals)
	}
	if report.MealRate != 25.01 {
		t.Errorf("meal rate: expected 25.01, got %v", report.MealRate)
	}

	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Rows))
	}
	// Rows follow join order: alice joined first.
	alice, bob := report.Rows[0], report.Rows[1]
	if alice.MemberID != "alice" || bob.MemberID != "bob" {
		t.Fatalf("rows out of join order: %s, %s", alice.MemberID, bob.MemberID)
	}

	if bob.TotalMeals != 20 || bob.MealCost != 500.20 || bob.TotalDeposits != 2000 || bob.FinalBalance != 1499.80 {
		t.Errorf("bob settlement wrong: %+v", bob)
	}
	if alice.TotalMeals != 30 || alice.MealCost != 750.30 || alice.TotalDeposits != 500 || alice.FinalBalance != -250.30 {
		t.Errorf("alice settlement wrong: %+v", alice)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen, store, messID := setup(t)
	ctx := context.Background()
	seedMonth(t, store, messID)

	first, err := gen.Generate(ctx, messID, 2026, 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := gen.Generate(ctx, messID, 2026, 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-running over unchanged data produced a different report:\n%+v\n%+v", first, second)
	}
}

func TestGenerateEmptyMonth(t *testing.T) {
	gen, _, messID := setup(t)
	ctx := context.Background()

	report, err := gen.Generate(ctx, messID, 2026, 7)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.TotalExpenses != 0 || report.TotalMeals != 0 || report.MealRate != 0 {
		t.Errorf("empty month should produce zero totals: %+v", report)
	}
	for _, row := range report.Rows {
		if row.MealCost != 0 || row.FinalBalance != 0 {
			t.Errorf("empty month row should be zero: %+v", row)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	gen, _, messID := setup(t)
	ctx := context.Background()

	for _, month := range []int{0, 13, -1} {
		_, err := gen.Generate(ctx, messID, 2026, month)
		var validation *errs.ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("month %d: expected ValidationError, got %v", month, err)
		}
	}

	_, err := gen.Generate(ctx, "nope", 2026, 8)
	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError for unknown mess, got %v", err)
	}
}
