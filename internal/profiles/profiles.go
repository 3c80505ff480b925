// Package profiles loads plan-profile catalogs from disk.
//
// A profile set is a directory of CSV files, one per retail plan. Each file
// has a header row, then seven data rows (Monday through Sunday) of a label
// followed by 24 hourly rates in cents per kWh, then a row carrying the
// plan's daily fixed charge in cents.
package profiles

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jgoulah/powercompare/internal/logging"
	"github.com/jgoulah/powercompare/pkg/models"
)

// rateRows is the number of data rows a plan file must carry, one per weekday
const rateRows = 7

// dailyChargeRow is the zero-based row index holding the daily fixed charge
const dailyChargeRow = 8

// Repository reads profile sets from a directory tree
type Repository struct {
	dir string
}

// NewRepository creates a repository rooted at dir
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// ListProfileSets returns the names of the available profile sets, sorted
func (r *Repository) ListProfileSets() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profiles directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadProfileSet returns the plan profiles in the named set, in file
// discovery order. It returns (nil, nil) when the set does not exist. A
// malformed plan file is a hard error naming the file, never a silently
// truncated profile.
func (r *Repository) LoadProfileSet(name string) ([]models.PlanProfile, error) {
	setDir := filepath.Join(r.dir, name)
	entries, err := os.ReadDir(setDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profile set %s: %w", name, err)
	}

	// Non-nil even when the set is empty, so callers can tell an empty set
	// apart from a missing one.
	plans := []models.PlanProfile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		plan, err := loadPlanFile(filepath.Join(setDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading plan %s: %w", entry.Name(), err)
		}
		plans = append(plans, plan)
	}

	logging.Logger.Debug("loaded profile set",
		zap.String("set", name),
		zap.Int("plans", len(plans)))
	return plans, nil
}

// loadPlanFile parses one plan CSV. The plan name is the file name without
// its extension.
func loadPlanFile(path string) (models.PlanProfile, error) {
	var plan models.PlanProfile

	f, err := os.Open(path)
	if err != nil {
		return plan, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return plan, fmt.Errorf("reading CSV: %w", err)
	}

	// Exactly header + 7 rate rows + charge row. Anything more would let a
	// stray rate row be misread as the daily charge.
	if len(rows) != dailyChargeRow+1 {
		return plan, fmt.Errorf("file has %d rows, want %d", len(rows), dailyChargeRow+1)
	}

	// Row 0 is the header. Rows 1-7 are weekday-major rate rows of a label
	// plus 24 hourly cells.
	for day := 0; day < rateRows; day++ {
		row := rows[day+1]
		if len(row) != models.HoursPerDay+1 {
			return plan, fmt.Errorf("rate row %d has %d columns, want %d",
				day+1, len(row), models.HoursPerDay+1)
		}
		for hour := 0; hour < models.HoursPerDay; hour++ {
			cell := strings.TrimSpace(row[hour+1])
			rate, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return plan, fmt.Errorf("rate row %d column %d: %q is not numeric",
					day+1, hour+1, cell)
			}
			plan.Rates[day][hour] = rate
		}
	}

	chargeRow := rows[dailyChargeRow]
	if len(chargeRow) < 2 {
		return plan, fmt.Errorf("daily charge row has %d columns, want at least 2", len(chargeRow))
	}
	charge, err := strconv.ParseFloat(strings.TrimSpace(chargeRow[1]), 64)
	if err != nil {
		return plan, fmt.Errorf("daily charge %q is not numeric", chargeRow[1])
	}

	plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	plan.DailyCharge = charge
	return plan, nil
}
