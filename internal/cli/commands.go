package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/estatehub/marketplace/backend/internal/adapters/database"
	"github.com/estatehub/marketplace/backend/internal/bootstrap"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	"github.com/estatehub/marketplace/backend/pkg/config"
)

const defaultSweepBatch = 500

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := postgres.NewClient(&cfg.Database)
			if err != nil {
				return err
			}
			defer client.Close()

			applied, err := database.Migrate(cmd.Context(), client.DB())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), map[string][]string{"applied": applied}, func(w io.Writer) {
				if len(applied) == 0 {
					fmt.Fprintln(w, "schema is up to date")
					return
				}
				for _, name := range applied {
					fmt.Fprintf(w, "applied %s\n", name)
				}
			})
		},
	}
}

// NewOffersCommand creates the offers command group.
func NewOffersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "offers", Short: "Offer negotiation maintenance"}

	var batch int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Reject every open offer past its expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(app *bootstrap.Container) error {
				expired, err := app.Offers.SweepExpired(cmd.Context(), batch)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]int{"expired": expired}, func(w io.Writer) {
					fmt.Fprintf(w, "expired %d offers\n", expired)
				})
			})
		},
	}
	sweep.Flags().IntVar(&batch, "batch", defaultSweepBatch, "offers expired per transaction")
	cmd.AddCommand(sweep)
	return cmd
}

// NewBoostCommand creates the boost command group.
func NewBoostCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "boost", Short: "Listing boost scores"}
	cmd.AddCommand(&cobra.Command{
		Use:   "recompute",
		Short: "Recompute the boost score of every active listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(app *bootstrap.Container) error {
				updated, err := app.Boost.Recompute(cmd.Context())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]int{"updated": updated}, func(w io.Writer) {
					fmt.Fprintf(w, "recomputed %d listings\n", updated)
				})
			})
		},
	})
	return cmd
}

// NewRatingsCommand creates the ratings command group.
func NewRatingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "ratings", Short: "Rating aggregate maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile <property-id>...",
		Short: "Rebuild rating aggregates from live reviews",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(app *bootstrap.Container) error {
				summaries := make([]*entities.RatingSummary, 0, len(args))
				for _, id := range args {
					summary, err := app.Ratings.Reconcile(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("reconcile %s: %w", id, err)
					}
					summaries = append(summaries, summary)
				}
				return opts.print(cmd.OutOrStdout(), summaries, func(w io.Writer) {
					for _, s := range summaries {
						fmt.Fprintf(w, "%s\tcount=%d\taverage=%.2f\n", s.PropertyID, s.RatingsCount, s.AverageRating)
					}
				})
			})
		},
	})
	return cmd
}

// NewAuditCommand creates the audit command group.
func NewAuditCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: "Inspect soft-deleted records"}

	var since string
	var limit int
	deleted := &cobra.Command{
		Use:   "deleted <property|offer|booking|review|favorite|notification>",
		Short: "List soft-deleted records of one kind, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var from time.Time
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("--since must be an RFC3339 timestamp: %w", err)
				}
				from = t
			}
			return opts.withContainer(cmd.Context(), func(app *bootstrap.Container) error {
				records, err := app.Deletes.ListDeleted(cmd.Context(), systemActor, entities.EntityKind(args[0]), from, limit)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), records, func(w io.Writer) {
					for _, r := range records {
						fmt.Fprintf(w, "%s\t%s\t%s\n", r.Kind, r.ID, r.DeletedAt.Format(time.RFC3339))
					}
				})
			})
		},
	}
	deleted.Flags().StringVar(&since, "since", "", "only records deleted at or after this RFC3339 time")
	deleted.Flags().IntVar(&limit, "limit", 100, "maximum records to list")
	cmd.AddCommand(deleted)
	return cmd
}

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(opts *RootOptions) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the periodic boost recompute and offer expiry sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return opts.withContainer(ctx, func(app *bootstrap.Container) error {
				return runWorker(ctx, app, batch)
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", defaultSweepBatch, "offers expired per transaction")
	return cmd
}

// runWorker blocks until ctx is cancelled
func runWorker(ctx context.Context, app *bootstrap.Container, batch int) error {
	mkt := app.Config.Marketplace
	logger := observability.LoggerFromContext(ctx)

	if err := app.StartSubscribers(); err != nil {
		logger.Warn().Err(err).Msg("event subscribers not running")
	}
	app.Boost.StartPeriodic(ctx, mkt.BoostInterval)
	app.Offers.StartSweeper(ctx, mkt.OfferSweepInterval, batch)

	logger.Info().Msg("worker running")
	<-ctx.Done()
	logger.Info().Msg("worker stopping")
	return nil
}
