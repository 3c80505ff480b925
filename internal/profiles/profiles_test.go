package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// planCSV renders a well-formed plan file with every rate cell set to rate
// and the given daily charge
func planCSV(rate, dailyCharge float64) string {
	var b strings.Builder
	b.WriteString("Day")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",%d", h)
	}
	b.WriteString("\n")
	for _, label := range weekdayLabels {
		b.WriteString(label)
		for h := 0; h < 24; h++ {
			fmt.Fprintf(&b, ",%g", rate)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Daily Charge,%g\n", dailyCharge)
	return b.String()
}

func writePlan(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestListProfileSets(t *testing.T) {
	root := t.TempDir()
	repo := NewRepository(root)

	names, err := repo.ListProfileSets()
	require.NoError(t, err)
	assert.Empty(t, names)

	writePlan(t, filepath.Join(root, "wellington-2024"), "basic.csv", planCSV(20, 100))
	writePlan(t, filepath.Join(root, "auckland-2024"), "basic.csv", planCSV(25, 120))
	// A stray file at the root is not a profile set
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), []byte("notes"), 0644))

	names, err = repo.ListProfileSets()
	require.NoError(t, err)
	assert.Equal(t, []string{"auckland-2024", "wellington-2024"}, names)
}

func TestListProfileSetsMissingRoot(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "nope"))

	names, err := repo.ListProfileSets()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadProfileSet(t *testing.T) {
	root := t.TempDir()
	setDir := filepath.Join(root, "wellington-2024")
	writePlan(t, setDir, "flat.csv", planCSV(25.5, 150))
	writePlan(t, setDir, "nightowl.csv", planCSV(10, 300))
	repo := NewRepository(root)

	plans, err := repo.LoadProfileSet("wellington-2024")
	require.NoError(t, err)
	require.Len(t, plans, 2)

	// Discovery (directory read) order, names from file stems
	assert.Equal(t, "flat", plans[0].Name)
	assert.Equal(t, "nightowl", plans[1].Name)

	assert.InDelta(t, 150, plans[0].DailyCharge, 1e-9)
	assert.InDelta(t, 25.5, plans[0].Rates[0][0], 1e-9)
	assert.InDelta(t, 25.5, plans[0].Rates[6][23], 1e-9)
	assert.InDelta(t, 10, plans[1].Rates[3][12], 1e-9)
}

func TestLoadProfileSetNotFound(t *testing.T) {
	repo := NewRepository(t.TempDir())

	plans, err := repo.LoadProfileSet("nope")
	require.NoError(t, err, "a missing set is not an error")
	assert.Nil(t, plans)
}

func TestLoadProfileSetEmpty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty-set"), 0755))
	repo := NewRepository(root)

	plans, err := repo.LoadProfileSet("empty-set")
	require.NoError(t, err)
	assert.NotNil(t, plans, "an existing empty set is distinct from a missing one")
	assert.Empty(t, plans)
}

func TestLoadProfileSetMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "six rate rows",
			content: func() string {
				lines := strings.Split(strings.TrimRight(planCSV(20, 100), "\n"), "\n")
				// Drop one weekday row
				return strings.Join(append(lines[:7:7], lines[8]), "\n") + "\n"
			}(),
			wantErr: "rows",
		},
		{
			// An extra rate row must not shift a rate cell into the daily
			// charge position
			name: "eight rate rows",
			content: func() string {
				lines := strings.Split(strings.TrimRight(planCSV(20, 150), "\n"), "\n")
				extra := append(lines[:8:8], lines[7])
				return strings.Join(append(extra, lines[8]), "\n") + "\n"
			}(),
			wantErr: "rows",
		},
		{
			name: "short rate row",
			content: func() string {
				lines := strings.Split(planCSV(20, 100), "\n")
				lines[3] = "Wed,1,2,3"
				return strings.Join(lines, "\n")
			}(),
			wantErr: "columns",
		},
		{
			name: "non-numeric cell",
			content: func() string {
				return strings.Replace(planCSV(20, 100), "Tue,20", "Tue,cheap", 1)
			}(),
			wantErr: "not numeric",
		},
		{
			name: "non-numeric daily charge",
			content: func() string {
				return strings.Replace(planCSV(20, 100), "Daily Charge,100", "Daily Charge,lots", 1)
			}(),
			wantErr: "daily charge",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writePlan(t, filepath.Join(root, "broken"), "plan.csv", tc.content)
			repo := NewRepository(root)

			plans, err := repo.LoadProfileSet("broken")
			require.Error(t, err, "malformed files must fail the load, not truncate")
			assert.Nil(t, plans)
			assert.Contains(t, err.Error(), "plan.csv")
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
