package models

import "time"

// HoursPerDay is the number of hourly values a full day of usage carries.
const HoursPerDay = 24

// DayUsage represents one day of hourly electricity usage as returned by a
// utility connector. Values holds one kWh reading per hour, index 0 being
// midnight to 1am. A well-formed day has exactly 24 values.
type DayUsage struct {
	Date   time.Time `json:"date"`
	Values []float64 `json:"values"`
}

// UsageRecord is a single stored hourly reading for one user
type UsageRecord struct {
	ID   int       `json:"id"`
	Date time.Time `json:"date"`
	Hour int       `json:"hour"`
	KWh  float64   `json:"kwh"`
}

// UsageGrid is average kWh per (weekday, hour) bucket. Rows are weekdays
// Monday through Sunday, columns are hours 0 through 23.
type UsageGrid [7][HoursPerDay]float64

// PlanProfile is one retailer's pricing structure: a fixed daily charge plus
// a weekday-by-hour rate grid. Monetary values are in cents (the daily charge
// in cents per day, rates in cents per kWh).
type PlanProfile struct {
	Name        string                  `json:"name"`
	DailyCharge float64                 `json:"daily_charge"`
	Rates       [7][HoursPerDay]float64 `json:"rates"`
}

// PlanCost pairs a plan name with its projected yearly cost in dollars
type PlanCost struct {
	Name       string  `json:"name"`
	YearlyCost float64 `json:"yearly_cost"`
}

// WeekdayIndex maps a time.Weekday to the Monday-first index used by usage
// grids and rate grids (Monday=0 .. Sunday=6).
func WeekdayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
