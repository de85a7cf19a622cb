package models

// MonthlyReport is the settlement report for one calendar month.
// It is computed on demand from meal statuses and approved transactions and
// is never persisted as authoritative data.
type MonthlyReport struct {
	MessID string
	Year   int
	Month  int

	// TotalExpenses is the sum of approved expense amounts in the month.
	TotalExpenses float64

	// TotalDeposits is the sum of approved deposit amounts in the month.
	TotalDeposits float64

	// TotalMeals is the mess-wide meal-unit count, guests included.
	TotalMeals float64

	// MealRate is TotalExpenses / TotalMeals, or 0 when no meals were logged.
	MealRate float64

	// Rows holds one settlement row per member, ordered by join time.
	Rows []MemberSettlement
}

// MemberSettlement is one member's row in a monthly report.
type MemberSettlement struct {
	MemberID    string
	DisplayName string

	// TotalMeals is this member's meal units for the month, guests included.
	TotalMeals float64

	// MealCost is TotalMeals multiplied by the month's meal rate.
	MealCost float64

	// TotalDeposits is this member's approved deposits within the month.
	TotalDeposits float64

	// FinalBalance is TotalDeposits minus MealCost.
	FinalBalance float64
}
