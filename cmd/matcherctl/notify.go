package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"example.com/playdate/internal/events"
)

func newNotifySyncCommand(c *cli) *cobra.Command {
	var (
		source     string
		activities int
		materials  int
	)
	cmd := &cobra.Command{
		Use:   "notify-sync",
		Short: "Publish a catalog.sync_completed event so running matchers drop their candidate cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(c.cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is not set")
			}
			publisher := events.NewPublisher(c.cfg.KafkaBrokers)
			defer publisher.Close()

			event := events.NewCatalogSynced(source, activities, materials)
			if err := publisher.PublishCatalogSynced(cmd.Context(), c.cfg.SyncTopic, event); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "published %s %s to %s\n", events.TypeCatalogSyncCompleted, event.SyncID, c.cfg.SyncTopic)
			return err
		},
	}
	cmd.Flags().StringVar(&source, "source", "matcherctl", "name of the system that completed the sync")
	cmd.Flags().IntVar(&activities, "activities", 0, "number of playdates written by the sync")
	cmd.Flags().IntVar(&materials, "materials", 0, "number of materials written by the sync")
	return cmd
}
