package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/powercompare/internal/profiles"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List available plan profile sets",
	Long:  `Lists the profile set catalogs found in the profiles directory, and the plans inside each.`,
	RunE:  runSets,
}

func init() {
	rootCmd.AddCommand(setsCmd)
}

func runSets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	repo := profiles.NewRepository(cfg.GetProfilesDir())
	names, err := repo.ListProfileSets()
	if err != nil {
		return fmt.Errorf("listing profile sets: %w", err)
	}

	if len(names) == 0 {
		fmt.Printf("No profile sets found in %s\n", cfg.GetProfilesDir())
		return nil
	}

	for _, name := range names {
		plans, err := repo.LoadProfileSet(name)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}

		fmt.Printf("\n%s (%d plans):\n", name, len(plans))
		for _, plan := range plans {
			fmt.Printf("  - %s\n", plan.Name)
		}
	}

	return nil
}
