// Package compare projects yearly plan costs from averaged usage.
package compare

import (
	"sort"

	"github.com/jgoulah/powercompare/internal/profiles"
	"github.com/jgoulah/powercompare/pkg/models"
)

const (
	daysPerYear  = 365
	daysPerWeek  = 7
	centsPerUnit = 100
)

// YearlyCost projects one plan's cost in dollars for a year of the given
// average usage. The usage grid holds average kWh per (weekday, hour); each
// cell is charged at the plan's matching rate, scaled from one week to a
// year, plus the daily fixed charge.
func YearlyCost(usage *models.UsageGrid, plan models.PlanProfile) float64 {
	var weekCents float64
	for day := 0; day < daysPerWeek; day++ {
		for hour := 0; hour < models.HoursPerDay; hour++ {
			weekCents += usage[day][hour] * plan.Rates[day][hour]
		}
	}
	return (weekCents*daysPerYear/daysPerWeek + plan.DailyCharge*daysPerYear) / centsPerUnit
}

// Rank returns every plan with its projected yearly cost, cheapest first.
// The sort is stable, so plans with equal costs keep their discovery order.
func Rank(usage *models.UsageGrid, plans []models.PlanProfile) []models.PlanCost {
	costs := make([]models.PlanCost, 0, len(plans))
	for _, plan := range plans {
		costs = append(costs, models.PlanCost{
			Name:       plan.Name,
			YearlyCost: YearlyCost(usage, plan),
		})
	}
	sort.SliceStable(costs, func(i, j int) bool {
		return costs[i].YearlyCost < costs[j].YearlyCost
	})
	return costs
}

// Engine combines a profile repository with the cost projection
type Engine struct {
	Profiles *profiles.Repository
}

// Compare ranks the named profile set against the usage grid. It returns
// (nil, nil) when the profile set does not exist; a malformed profile file
// is an error.
func (e *Engine) Compare(usage *models.UsageGrid, setName string) ([]models.PlanCost, error) {
	plans, err := e.Profiles.LoadProfileSet(setName)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		return nil, nil
	}
	return Rank(usage, plans), nil
}
