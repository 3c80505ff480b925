package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored usage data",
	Long:  `Displays daily usage totals from the database, most recent first.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 30, "Number of days to show (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	last, ok, err := store.LastRecordedDate()
	if err != nil {
		return fmt.Errorf("querying last stored date: %w", err)
	}
	if !ok {
		fmt.Printf("No data stored for %s yet, run 'powercompare fetch' first\n", store.Username())
		return nil
	}

	count, err := store.RecordCount()
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}

	totals, err := store.DailyTotals(listLimit)
	if err != nil {
		return fmt.Errorf("listing daily totals: %w", err)
	}

	fmt.Printf("\nUsage data for %s (%s hourly records, newest %s):\n",
		store.Username(), humanize.Comma(int64(count)), humanize.Time(last))
	fmt.Println("----------------------------------------")
	fmt.Printf("%-12s  %10s\n", "Date", "kWh")
	fmt.Println("----------------------------------------")

	var total float64
	for _, day := range totals {
		fmt.Printf("%-12s  %10.2f\n", day.Date.Format("2006-01-02"), day.KWh)
		total += day.KWh
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("Total: %.2f kWh (%d days shown)\n", total, len(totals))
	return nil
}
