package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/powercompare/internal/connector"
)

var (
	fetchStart string
	fetchEnd   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch usage data from the utility API",
	Long: `Logs in to the utility API and downloads hourly usage one day at a time,
walking backward from the end date. By default it picks up where the last
fetch left off. Data is stored in the local SQLite database.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "First date to fetch (YYYY-MM-DD, default: day after last stored date)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "Last date to fetch (YYYY-MM-DD, default: today)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Utility.Username == "" || cfg.Utility.Password == "" {
		return fmt.Errorf("no credentials configured: set utility.username and utility.password in %s", getConfigPath())
	}

	db, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Resolve the date range before touching the network
	var start, end time.Time
	if fetchStart != "" {
		start, err = time.Parse("2006-01-02", fetchStart)
		if err != nil {
			return fmt.Errorf("parsing --start: %w", err)
		}
	} else {
		last, ok, err := store.LastRecordedDate()
		if err != nil {
			return fmt.Errorf("querying last stored date: %w", err)
		}
		if ok {
			start = last.AddDate(0, 0, 1)
			fmt.Printf("Last stored usage is from %s (%s), fetching since then\n",
				last.Format("2006-01-02"), humanize.Time(last))
		}
	}
	if fetchEnd != "" {
		end, err = time.Parse("2006-01-02", fetchEnd)
		if err != nil {
			return fmt.Errorf("parsing --end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", fetchEnd, fetchStart)
	}

	ctx := context.Background()
	fmt.Printf("Logging in to the utility API as %s...\n", cfg.Utility.Username)
	session, err := connector.NewContactSession(ctx, cfg.Utility.Username, cfg.Utility.Password, cfg.GetTimeout())
	if err != nil {
		var authErr *connector.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("login failed, check your username and password: %w", err)
		}
		return fmt.Errorf("connecting: %w", err)
	}
	fmt.Printf("✓ Connected to %s\n", session.Name())

	days, err := session.RetrieveUsage(ctx, start, end, func(day time.Time) {
		fmt.Printf("Fetching %s...\n", day.Format("2006-01-02"))
	})
	if err != nil {
		var timeoutErr *connector.TimeoutError
		if errors.As(err, &timeoutErr) {
			return fmt.Errorf("retrieval timed out, nothing was saved, try again: %w", err)
		}
		return fmt.Errorf("retrieving usage: %w", err)
	}

	if len(days) == 0 {
		fmt.Println("No new data found")
		return nil
	}

	if err := store.Ingest(days); err != nil {
		return fmt.Errorf("storing usage: %w", err)
	}

	fmt.Printf("✓ Stored %d days of usage for %s\n", len(days), store.Username())
	return nil
}
