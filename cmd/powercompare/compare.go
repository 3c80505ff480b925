package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/powercompare/internal/compare"
	"github.com/jgoulah/powercompare/internal/profiles"
)

var compareDays int

var compareCmd = &cobra.Command{
	Use:   "compare [profile-set]",
	Short: "Rank plan profiles by projected yearly cost",
	Long: `Averages your stored usage into a weekday-by-hour grid and projects what a
year on each plan in the profile set would cost, cheapest first.

Requires enough stored history to cover every weekday and hour at least once;
run fetch first if the comparison reports insufficient data.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().IntVar(&compareDays, "days", 0, "Aggregation window in days (default from config, 365)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	setName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	days := compareDays
	if days <= 0 {
		days = cfg.GetCompareDays()
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	grid, err := store.AverageUsageGrid(start, end)
	if err != nil {
		return fmt.Errorf("averaging usage: %w", err)
	}
	if grid == nil {
		return fmt.Errorf("not enough stored usage in the last %d days to cover every weekday and hour, fetch more history first", days)
	}

	engine := &compare.Engine{Profiles: profiles.NewRepository(cfg.GetProfilesDir())}
	costs, err := engine.Compare(grid, setName)
	if err != nil {
		return fmt.Errorf("comparing plans: %w", err)
	}
	if costs == nil {
		return fmt.Errorf("profile set %q not found in %s (run 'powercompare sets' to list them)", setName, cfg.GetProfilesDir())
	}
	if len(costs) == 0 {
		fmt.Printf("Profile set %s contains no plans\n", setName)
		return nil
	}

	fmt.Printf("\nProjected yearly cost on %s plans (based on your last %d days):\n", setName, days)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("%-30s  %15s\n", "Plan", "Yearly Cost")
	fmt.Println("--------------------------------------------------")
	for _, c := range costs {
		fmt.Printf("%-30s  $%14s\n", c.Name, humanize.CommafWithDigits(c.YearlyCost, 2))
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Cheapest: %s\n", costs[0].Name)

	return nil
}
