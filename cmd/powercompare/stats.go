package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show average usage per hour of day",
	Long: `Averages your stored usage by hour of day over the aggregation window and
prints the 24 hourly values. Works with partial history; hours with no data
show as zero.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "Aggregation window in days (default from config, 365)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	days := statsDays
	if days <= 0 {
		days = cfg.GetCompareDays()
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	values, err := store.AverageUsageByHour(start, end)
	if err != nil {
		return fmt.Errorf("averaging usage: %w", err)
	}
	if values == nil {
		fmt.Printf("No stored usage in the last %d days for %s\n", days, store.Username())
		return nil
	}

	fmt.Printf("\nAverage usage per hour for %s (last %d days):\n", store.Username(), days)
	fmt.Println("------------------------------")
	fmt.Printf("%-8s  %12s\n", "Hour", "Avg kWh")
	fmt.Println("------------------------------")

	var total float64
	for hour, v := range values {
		fmt.Printf("%02d:00     %12.3f\n", hour, v)
		total += v
	}

	fmt.Println("------------------------------")
	fmt.Printf("Average daily total: %.2f kWh\n", total)
	return nil
}
