package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/powercompare/internal/profiles"
	"github.com/jgoulah/powercompare/pkg/models"
)

// flatGrid builds a usage grid with every cell set to value
func flatGrid(value float64) *models.UsageGrid {
	var grid models.UsageGrid
	for d := range grid {
		for h := range grid[d] {
			grid[d][h] = value
		}
	}
	return &grid
}

// flatPlan builds a plan with every rate cell set to rate
func flatPlan(name string, dailyCharge, rate float64) models.PlanProfile {
	plan := models.PlanProfile{Name: name, DailyCharge: dailyCharge}
	for d := range plan.Rates {
		for h := range plan.Rates[d] {
			plan.Rates[d][h] = rate
		}
	}
	return plan
}

func TestYearlyCost(t *testing.T) {
	usage := flatGrid(1.0)

	// 168 cells of 1 kWh at 10c, no daily charge:
	// 168 * 10 * 365/7 / 100 = 876 dollars
	assert.InDelta(t, 876.0, YearlyCost(usage, flatPlan("a", 0, 10)), 1e-9)

	// Same usage at 1c plus a 10000c daily charge:
	// (168 * 1 * 365/7 + 10000 * 365) / 100 = 36587.6 dollars
	assert.InDelta(t, 36587.6, YearlyCost(usage, flatPlan("b", 10000, 1)), 1e-9)

	// No usage costs only the daily charge
	assert.InDelta(t, 365.0, YearlyCost(flatGrid(0), flatPlan("c", 100, 50)), 1e-9)
}

func TestYearlyCostWeightsCells(t *testing.T) {
	// Only Monday midnight has usage; only its matching rate cell should count
	var usage models.UsageGrid
	usage[0][0] = 2.0

	plan := flatPlan("tou", 0, 0)
	plan.Rates[0][0] = 30
	plan.Rates[6][23] = 1000

	assert.InDelta(t, 2.0*30*365/7/100, YearlyCost(&usage, plan), 1e-9)
}

func TestRankOrdersByCost(t *testing.T) {
	usage := flatGrid(1.0)
	plans := []models.PlanProfile{
		flatPlan("expensive", 10000, 1),
		flatPlan("cheap", 0, 10),
	}

	costs := Rank(usage, plans)
	require.Len(t, costs, 2)
	assert.Equal(t, "cheap", costs[0].Name)
	assert.InDelta(t, 876.0, costs[0].YearlyCost, 1e-9)
	assert.Equal(t, "expensive", costs[1].Name)
	assert.InDelta(t, 36587.6, costs[1].YearlyCost, 1e-9)
}

func TestRankStableOnTies(t *testing.T) {
	usage := flatGrid(1.0)
	plans := []models.PlanProfile{
		flatPlan("first", 0, 10),
		flatPlan("second", 0, 10),
		flatPlan("third", 0, 10),
	}

	costs := Rank(usage, plans)
	require.Len(t, costs, 3)
	assert.Equal(t, "first", costs[0].Name)
	assert.Equal(t, "second", costs[1].Name)
	assert.Equal(t, "third", costs[2].Name)
}

// writeFlatPlanCSV renders a plan file in the repository's CSV layout
func writeFlatPlanCSV(t *testing.T, dir, name string, rate, dailyCharge float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Day")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",%d", h)
	}
	b.WriteString("\n")
	for _, label := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		b.WriteString(label)
		for h := 0; h < 24; h++ {
			fmt.Fprintf(&b, ",%g", rate)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Daily Charge,%g\n", dailyCharge)

	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0644))
}

func TestEngineCompare(t *testing.T) {
	root := t.TempDir()
	setDir := filepath.Join(root, "wellington-2024")
	writeFlatPlanCSV(t, setDir, "pricey.csv", 1, 10000)
	writeFlatPlanCSV(t, setDir, "value.csv", 10, 0)

	engine := &Engine{Profiles: profiles.NewRepository(root)}
	usage := flatGrid(1.0)

	t.Run("ranked", func(t *testing.T) {
		costs, err := engine.Compare(usage, "wellington-2024")
		require.NoError(t, err)
		require.Len(t, costs, 2)
		assert.Equal(t, "value", costs[0].Name)
		assert.Equal(t, "pricey", costs[1].Name)
	})

	t.Run("missing set", func(t *testing.T) {
		costs, err := engine.Compare(usage, "nope")
		require.NoError(t, err)
		assert.Nil(t, costs)
	})

	t.Run("malformed plan is an error", func(t *testing.T) {
		brokenDir := filepath.Join(root, "broken")
		require.NoError(t, os.MkdirAll(brokenDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(brokenDir, "bad.csv"), []byte("just,one,row\n"), 0644))

		_, err := engine.Compare(usage, "broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.csv")
	})
}
