package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/estatehub/marketplace/backend/internal/bootstrap"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/pkg/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	// load builds the application graph; tests swap it for an in-memory one
	load func(ctx context.Context) (*bootstrap.Container, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// systemActor is the identity the CLI acts under on admin-only paths
var systemActor = entities.Actor{UserID: "mktctl", Role: entities.RoleAdmin}

// NewRootCommand creates the root command of the marketplace admin CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{load: loadContainer})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mktctl",
		Short: "Marketplace maintenance and worker commands",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewOffersCommand(opts))
	cmd.AddCommand(NewBoostCommand(opts))
	cmd.AddCommand(NewRatingsCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))

	return cmd
}

func loadContainer(ctx context.Context) (*bootstrap.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

// withContainer runs fn against a freshly built application graph
func (o *RootOptions) withContainer(ctx context.Context, fn func(app *bootstrap.Container) error) error {
	app, err := o.load(ctx)
	if err != nil {
		return err
	}
	runErr := fn(app)
	if err := app.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// print writes v as JSON, or text through the given formatter
func (o *RootOptions) print(w io.Writer, v interface{}, text func(w io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
