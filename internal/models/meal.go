package models

import "math"

// MealType identifies one of the three daily meals.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// DateLayout is the calendar-date key format used throughout the store.
const DateLayout = "2006-01-02"

// MealStatus holds one member's meal counts for one calendar date.
// The record is keyed by (MessID, MemberID, Date) and every write is a full
// overwrite of the row: last write wins.
type MealStatus struct {
	MessID   string
	MemberID string

	// Date is the calendar date in DateLayout, in mess-local time.
	Date string

	// Personal meal counts. Non-negative, in increments of 0.5.
	Breakfast float64
	Lunch     float64
	Dinner    float64

	// Guest meal counts, billed to this same member.
	GuestBreakfast float64
	GuestLunch     float64
	GuestDinner    float64

	// IsSetByUser distinguishes a manual edit from a toggle-derived value.
	IsSetByUser bool

	// UpdatedAt is the Unix timestamp of the last write.
	UpdatedAt int64
}

// Total returns the member's meal units for the day, guests included.
func (m *MealStatus) Total() float64 {
	return m.Breakfast + m.Lunch + m.Dinner +
		m.GuestBreakfast + m.GuestLunch + m.GuestDinner
}

// Count returns the personal count for the given meal type.
func (m *MealStatus) Count(meal MealType) float64 {
	switch meal {
	case Breakfast:
		return m.Breakfast
	case Lunch:
		return m.Lunch
	case Dinner:
		return m.Dinner
	}
	return 0
}

// SetCount sets the personal count for the given meal type.
func (m *MealStatus) SetCount(meal MealType, v float64) {
	switch meal {
	case Breakfast:
		m.Breakfast = v
	case Lunch:
		m.Lunch = v
	case Dinner:
		m.Dinner = v
	}
}

// ValidCount reports whether v is a non-negative multiple of 0.5.
func ValidCount(v float64) bool {
	return v >= 0 && math.Mod(v*2, 1) == 0
}

// Counts returns all six count fields, personal first.
func (m *MealStatus) Counts() []float64 {
	return []float64{
		m.Breakfast, m.Lunch, m.Dinner,
		m.GuestBreakfast, m.GuestLunch, m.GuestDinner,
	}
}

// MealSettings holds the per-mess meal configuration.
type MealSettings struct {
	MessID string

	// Per-meal on/off flags. A disabled meal cannot be toggled.
	IsBreakfastOn bool
	IsLunchOn     bool
	IsDinnerOn    bool

	// Cutoff times in "15:04" format, mess-local. After the cutoff a
	// non-manager can no longer toggle that meal for the current date.
	BreakfastCutoff string
	LunchCutoff     string
	DinnerCutoff    string

	// Timezone is the IANA zone name the cutoffs are evaluated in.
	Timezone string
}

// Enabled reports whether the given meal type is switched on.
func (s *MealSettings) Enabled(meal MealType) bool {
	switch meal {
	case Breakfast:
		return s.IsBreakfastOn
	case Lunch:
		return s.IsLunchOn
	case Dinner:
		return s.IsDinnerOn
	}
	return false
}

// Cutoff returns the cutoff time string for the given meal type.
func (s *MealSettings) Cutoff(meal MealType) string {
	switch meal {
	case Breakfast:
		return s.BreakfastCutoff
	case Lunch:
		return s.LunchCutoff
	case Dinner:
		return s.DinnerCutoff
	}
	return ""
}

// DefaultMealSettings returns the settings a new mess starts with.
func DefaultMealSettings(messID string) *MealSettings {
	return &MealSettings{
		MessID:          messID,
		IsBreakfastOn:   true,
		IsLunchOn:       true,
		IsDinnerOn:      true,
		BreakfastCutoff: "07:00",
		LunchCutoff:     "11:00",
		DinnerCutoff:    "18:00",
		Timezone:        "Asia/Dhaka",
	}
}
