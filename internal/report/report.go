// Package report aggregates the ledger and meal records of one calendar
// month into a settlement report.
package report

import (
	"context"

	"messbook/internal/balance"
	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage"
)

// Generator builds monthly settlement reports.
type Generator struct {
	store    storage.Store
	balances *balance.Engine
}

// New creates a report generator.
func New(store storage.Store, balances *balance.Engine) *Generator {
	return &Generator{store: store, balances: balances}
}

// Generate computes the settlement report for one calendar month.
// The report is deterministic: re-running it over unchanged data yields an
// identical result, because every figure comes from source records and the
// member rows are ordered by join time.
func (g *Generator) Generate(ctx context.Context, messID string, year, month int) (*models.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, errs.Validationf("month must be 1-12, got %d", month)
	}
	if _, err := g.store.GetMess(ctx, messID); err != nil {
		return nil, err
	}

	fromDate, toDate := balance.MonthBounds(year, month)

	totalExpenses, err := g.store.SumApproved(ctx, messID, "", models.KindExpense, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	totalDeposits, err := g.store.SumApproved(ctx, messID, "", models.KindDeposit, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	totalMeals, err := g.store.SumMeals(ctx, messID, "", fromDate, toDate)
	if err != nil {
		return nil, err
	}
	mealRate, err := g.balances.MealRate(ctx, messID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	members, err := g.store.ListMembers(ctx, messID)
	if err != nil {
		return nil, err
	}

	rows := make([]models.MemberSettlement, 0, len(members))
	for _, member := range members {
		meals, err := g.store.SumMeals(ctx, messID, member.ID, fromDate, toDate)
		if err != nil {
			return nil, err
		}
		deposits, err := g.store.SumApproved(ctx, messID, member.ID, models.KindDeposit, fromDate, toDate)
		if err != nil {
			return nil, err
		}

		mealCost := balance.Round2(meals * mealRate)
		rows = append(rows, models.MemberSettlement{
			MemberID:      member.ID,
			DisplayName:   member.DisplayName,
			TotalMeals:    meals,
			MealCost:      mealCost,
			TotalDeposits: deposits,
			FinalBalance:  balance.Round2(deposits - mealCost),
		})
	}

	return &models.MonthlyReport{
		MessID:        messID,
		Year:          year,
		Month:         month,
		TotalExpenses: totalExpenses,
		TotalDeposits: totalDeposits,
		TotalMeals:    totalMeals,
		MealRate:      balance.Round2(mealRate),
		Rows:          rows,
	}, nil
}
