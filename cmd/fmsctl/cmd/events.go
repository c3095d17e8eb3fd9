package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/config"
	"github.com/maegy2011/FMS-sub000/internal/infra/postgres"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

var (
	flagEventsKind     string
	flagEventsSourceIP string
	flagEventsFollow   bool
	flagEventsInterval time.Duration
	flagEventsLimit    int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the security event log",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print recent security events, optionally following new ones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		db, err := postgres.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		events := app.NewSecurityEventService(postgres.NewSecurityEventRepository(db), logger.NewNop())

		filter := app.EventFilter{SourceIP: flagEventsSourceIP}
		if flagEventsKind != "" {
			kind := secevent.Kind(flagEventsKind)
			if !kind.IsValid() {
				return fmt.Errorf("unknown event kind %q", flagEventsKind)
			}
			filter.Kind = kind
		}

		if _, err := printEvents(cmd, events, filter, time.Time{}); err != nil {
			return err
		}

		if !flagEventsFollow {
			return nil
		}

		// Follow mode polls for events newer than the last batch.
		since := time.Now()
		ticker := time.NewTicker(flagEventsInterval)
		defer ticker.Stop()

		for range ticker.C {
			cutoff := since
			since = time.Now()
			if _, err := printEvents(cmd, events, filter, cutoff); err != nil {
				return err
			}
		}
		return nil
	},
}

func printEvents(cmd *cobra.Command, events *app.SecurityEventService, filter app.EventFilter, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter.Since = since
	result, err := events.List(ctx, filter, pagination.New(1, flagEventsLimit))
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}

	// List returns newest first; print oldest first for tailing.
	for i := len(result.Data) - 1; i >= 0; i-- {
		e := result.Data[i]
		userID := "-"
		if e.UserID != nil {
			userID = *e.UserID
		}
		cmd.Printf("%s  %-22s  %-15s  user=%s  %s\n",
			e.Timestamp.Format(time.RFC3339),
			e.Action.String(),
			e.SourceIP,
			userID,
			e.Details,
		)
	}
	return len(result.Data), nil
}

func init() {
	eventsTailCmd.Flags().StringVar(&flagEventsKind, "kind", "", "Filter by event kind")
	eventsTailCmd.Flags().StringVar(&flagEventsSourceIP, "source-ip", "", "Filter by source IP")
	eventsTailCmd.Flags().BoolVarP(&flagEventsFollow, "follow", "f", false, "Poll for new events")
	eventsTailCmd.Flags().DurationVar(&flagEventsInterval, "interval", 2*time.Second, "Poll interval in follow mode")
	eventsTailCmd.Flags().IntVarP(&flagEventsLimit, "limit", "n", 50, "Maximum events per batch")

	eventsCmd.AddCommand(eventsTailCmd)
}
