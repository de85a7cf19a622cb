// Package meals implements the meal-status store: daily toggles with cutoff
// locking, manager edits, guest-meal logging and the recent-days ledger.
package meals

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage"
)

// Service provides meal-status operations for one store.
type Service struct {
	store storage.Store

	// now is swappable for tests.
	now func() time.Time
}

// New creates a meals service backed by the given store.
func New(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Get returns the meal status for one key, or a zero-filled record when no
// row exists for that day.
func (s *Service) Get(ctx context.Context, messID, memberID, date string) (*models.MealStatus, error) {
	status, err := s.store.GetMealStatus(ctx, messID, memberID, date)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return emptyStatus(messID, memberID, date), nil
	}
	return status, nil
}

// Toggle sets one meal type on or off for the actor's own record on the
// current date. Before the meal's cutoff (mess-local clock) any member may
// toggle; after it, non-managers get a LockedError. Past dates are not
// toggleable at all: they go through the manager Edit path.
func (s *Service) Toggle(ctx context.Context, actor models.Actor, messID, date string, meal models.MealType, on bool) (*models.MealStatus, error) {
	settings, err := s.store.GetMealSettings(ctx, messID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled(meal) {
		return nil, errs.Validationf("%s is disabled for this mess", meal)
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad mess timezone %q: %w", settings.Timezone, err)
	}
	now := s.now().In(loc)
	today := now.Format(models.DateLayout)
	if date != today {
		return nil, errs.Validationf("only today's meals can be toggled; use the manager edit path for %s", date)
	}

	if !actor.IsManager() && afterCutoff(now, settings.Cutoff(meal)) {
		return nil, &errs.LockedError{Meal: string(meal), Cutoff: settings.Cutoff(meal)}
	}

	status, err := s.Get(ctx, messID, actor.ID, date)
	if err != nil {
		return nil, err
	}
	count := 0.0
	if on {
		count = 1.0
	}
	status.SetCount(meal, count)
	status.IsSetByUser = false
	status.UpdatedAt = now.Unix()

	if err := s.store.UpsertMealStatus(ctx, status); err != nil {
		return nil, err
	}
	slog.Debug("meal toggled",
		"mess_id", messID, "member_id", actor.ID, "date", date, "meal", meal, "on", on)
	return status, nil
}

// Edit fully replaces a member's meal record for any past-or-present date.
// Manager only: this is the path that bypasses cutoff locks, and it always
// marks the record as a manual override.
func (s *Service) Edit(ctx context.Context, actor models.Actor, status *models.MealStatus) (*models.MealStatus, error) {
	if !actor.IsManager() {
		return nil, &errs.PermissionError{Action: "edit meals", Msg: "manager role required"}
	}
	for _, v := range status.Counts() {
		if !models.ValidCount(v) {
			return nil, errs.Validationf("meal counts must be non-negative multiples of 0.5, got %v", v)
		}
	}
	if _, err := time.Parse(models.DateLayout, status.Date); err != nil {
		return nil, errs.Validationf("bad date %q", status.Date)
	}
	if _, err := s.store.GetMember(ctx, status.MessID, status.MemberID); err != nil {
		return nil, err
	}

	status.IsSetByUser = true
	status.UpdatedAt = s.now().Unix()
	if err := s.store.UpsertMealStatus(ctx, status); err != nil {
		return nil, err
	}
	slog.Info("meal record edited",
		"mess_id", status.MessID, "member_id", status.MemberID, "date", status.Date, "by", actor.ID)
	return status, nil
}

// LogGuestMeals adds guest meal units to the actor's own record for a
// past-or-present date. Guest consumption is always billed to the logging
// member; there is no way to put guests on someone else's account.
func (s *Service) LogGuestMeals(ctx context.Context, actor models.Actor, messID, date string, breakfast, lunch, dinner float64) (*models.MealStatus, error) {
	for _, v := range []float64{breakfast, lunch, dinner} {
		if !models.ValidCount(v) {
			return nil, errs.Validationf("guest counts must be non-negative multiples of 0.5, got %v", v)
		}
	}

	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, errs.Validationf("bad date %q", date)
	}
	settings, err := s.store.GetMealSettings(ctx, messID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad mess timezone %q: %w", settings.Timezone, err)
	}
	today := s.now().In(loc).Format(models.DateLayout)
	if day.Format(models.DateLayout) > today {
		return nil, errs.Validationf("guest meals cannot be logged for a future date")
	}

	status, err := s.Get(ctx, messID, actor.ID, date)
	if err != nil {
		return nil, err
	}
	status.GuestBreakfast += breakfast
	status.GuestLunch += lunch
	status.GuestDinner += dinner
	status.UpdatedAt = s.now().Unix()

	if err := s.store.UpsertMealStatus(ctx, status); err != nil {
		return nil, err
	}
	slog.Info("guest meals logged",
		"mess_id", messID, "member_id", actor.ID, "date", date,
		"breakfast", breakfast, "lunch", lunch, "dinner", dinner)
	return status, nil
}

// Ledger returns the member's records for the most recent windowDays days
// (ending today, mess-local), chronologically ordered. Days with no stored
// row are synthesized as zero-filled records as the sequence is consumed.
func (s *Service) Ledger(ctx context.Context, messID, memberID string, windowDays int) (iter.Seq[*models.MealStatus], error) {
	if windowDays <= 0 {
		return nil, errs.Validationf("window must be positive, got %d", windowDays)
	}

	settings, err := s.store.GetMealSettings(ctx, messID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad mess timezone %q: %w", settings.Timezone, err)
	}

	end := s.now().In(loc)
	start := end.AddDate(0, 0, -(windowDays - 1))
	stored, err := s.store.ListMealStatuses(ctx, messID, memberID,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.MealStatus, len(stored))
	for _, st := range stored {
		byDate[st.Date] = st
	}

	return func(yield func(*models.MealStatus) bool) {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			date := day.Format(models.DateLayout)
			st, ok := byDate[date]
			if !ok {
				st = emptyStatus(messID, memberID, date)
			}
			if !yield(st) {
				return
			}
		}
	}, nil
}

func emptyStatus(messID, memberID, date string) *models.MealStatus {
	return &models.MealStatus{MessID: messID, MemberID: memberID, Date: date}
}

// afterCutoff reports whether the mess-local time of day in now is past the
// "15:04"-formatted cutoff.
func afterCutoff(now time.Time, cutoff string) bool {
	t, err := time.Parse("15:04", cutoff)
	if err != nil {
		// An unparsable cutoff never locks anyone out.
		slog.Warn("bad cutoff time", "cutoff", cutoff, "error", err)
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	return minutes >= t.Hour()*60+t.Minute()
}
