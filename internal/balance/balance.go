// Package balance derives member balances and the shared meal rate from meal
// statuses and approved transactions.
//
// Nothing here is ever authoritative storage: approvals and meal edits can
// retroactively change both sides of the rate, so every figure is recomputed
// from source data on demand. The cached Member.Balance column exists only to
// make list views cheap, and Recompute can rebuild it at any time.
package balance

import (
	"context"
	"log/slog"
	"math"
	"time"

	"messbook/internal/models"
	"messbook/internal/storage"
)

// Engine computes balances and meal rates from a store.
type Engine struct {
	store storage.Store
}

// New creates a balance engine backed by the given store.
func New(store storage.Store) *Engine {
	return &Engine{store: store}
}

// MealRate returns total approved expenses divided by total meal units
// (personal plus guest) logged in [fromDate, toDate]. Returns 0 when no
// meals were logged; never divides by zero.
func (e *Engine) MealRate(ctx context.Context, messID, fromDate, toDate string) (float64, error) {
	expenses, err := e.store.SumApproved(ctx, messID, "", models.KindExpense, fromDate, toDate)
	if err != nil {
		return 0, err
	}
	meals, err := e.store.SumMeals(ctx, messID, "", fromDate, toDate)
	if err != nil {
		return 0, err
	}
	if meals <= 0 {
		return 0, nil
	}
	return expenses / meals, nil
}

// MemberBalance returns the member's approved deposits minus attributed meal
// cost for the calendar month containing asOf.
func (e *Engine) MemberBalance(ctx context.Context, messID, memberID string, asOf time.Time) (float64, error) {
	fromDate, toDate := MonthBounds(asOf.Year(), int(asOf.Month()))

	deposits, err := e.store.SumApproved(ctx, messID, memberID, models.KindDeposit, fromDate, toDate)
	if err != nil {
		return 0, err
	}
	meals, err := e.store.SumMeals(ctx, messID, memberID, fromDate, toDate)
	if err != nil {
		return 0, err
	}
	rate, err := e.MealRate(ctx, messID, fromDate, toDate)
	if err != nil {
		return 0, err
	}

	return Round2(deposits - meals*rate), nil
}

// Recompute rebuilds the member's cached balance column from source data.
// Used opportunistically after every approved-transaction mutation and
// explicitly for repair or audit.
func (e *Engine) Recompute(ctx context.Context, messID, memberID string, asOf time.Time) (float64, error) {
	bal, err := e.MemberBalance(ctx, messID, memberID, asOf)
	if err != nil {
		return 0, err
	}
	if err := e.store.UpdateMemberBalance(ctx, messID, memberID, bal); err != nil {
		return 0, err
	}
	slog.Debug("balance cache refreshed", "mess_id", messID, "member_id", memberID, "balance", bal)
	return bal, nil
}

// MonthBounds returns the first and last calendar dates of a month.
func MonthBounds(year, month int) (fromDate, toDate string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(models.DateLayout), last.Format(models.DateLayout)
}

// Round2 rounds a currency amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
