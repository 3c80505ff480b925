package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/powercompare/internal/publisher"
)

var publishLimit int

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored usage to MQTT / Home Assistant",
	Long: `Reads stored hourly usage that has not been exported yet and publishes it
to the configured MQTT broker and/or Home Assistant. Records are marked
published as they go, so reruns pick up where they left off.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of records to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.MQTT.Enabled && !cfg.HomeAssistant.Enabled {
		return fmt.Errorf("neither MQTT nor Home Assistant is enabled in config")
	}

	pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	db, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := store.UnpublishedRecords()
	if err != nil {
		return fmt.Errorf("listing unpublished records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("Nothing to publish")
		return nil
	}

	if publishLimit > 0 && len(records) > publishLimit {
		records = records[:publishLimit]
	}

	fmt.Printf("Publishing %d records...\n", len(records))

	published := 0
	for _, rec := range records {
		if err := pub.Publish(rec); err != nil {
			return fmt.Errorf("publishing record %s hour %d (published %d of %d): %w",
				rec.Date.Format("2006-01-02"), rec.Hour, published, len(records), err)
		}
		if err := store.MarkPublished(rec.ID); err != nil {
			return fmt.Errorf("marking record published: %w", err)
		}
		published++
	}

	fmt.Printf("✓ Published %d records\n", published)
	return nil
}
