package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/powercompare/internal/config"
	"github.com/jgoulah/powercompare/internal/database"
	"github.com/jgoulah/powercompare/internal/logging"
)

var (
	cfgFile  string
	dbPath   string
	userFlag string
)

var rootCmd = &cobra.Command{
	Use:   "powercompare",
	Short: "Compare electricity retail plans against your own usage history",
	Long: `Powercompare downloads hourly electricity usage from your utility's API,
stores it in a local SQLite database, and projects the yearly cost of retail
plan profiles against your averaged usage.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfg, err := config.Load(getConfigPath()); err == nil {
			logging.Initialize(cfg.GetLogLevel(), true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "utility account username (default from config)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// resolveUser returns the username the store should be bound to
func resolveUser(cfg *config.Config) (string, error) {
	if userFlag != "" {
		return userFlag, nil
	}
	if cfg.Utility.Username != "" {
		return cfg.Utility.Username, nil
	}
	return "", fmt.Errorf("no user configured: set utility.username in %s or pass --user", getConfigPath())
}

// openStore opens the database and binds a store to the configured user
func openStore(cfg *config.Config) (*database.DB, *database.Store, error) {
	username, err := resolveUser(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := openDB()
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	store, err := db.ForUser(username)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("binding user: %w", err)
	}

	return db, store, nil
}
