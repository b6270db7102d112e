// Package cli is the terminal front end of miboda. Every command builds a
// session store over the configured gateway, passes the route guards the
// matching screen would pass and renders the result as text or JSON.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/supabase"
)

// BackendFactory builds the gateway for one invocation. home is the
// directory holding config.yaml and the persisted session.
type BackendFactory func(cfg Config, home string, log *slog.Logger) (gateway.Backend, error)

// RootOptions holds global flags and the wiring shared by every command.
type RootOptions struct {
	Home    string
	Format  string
	Verbose bool
	Timeout time.Duration

	// Backend defaults to the HTTP gateway described by config.yaml.
	Backend BackendFactory
	// In is read for prompts. Defaults to stdin.
	In io.Reader
}

func httpBackend(cfg Config, home string, log *slog.Logger) (gateway.Backend, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return supabase.New(supabase.Config{
		URL:     cfg.URL,
		AnonKey: cfg.AnonKey,
		Storage: supabase.FileStorage{Path: filepath.Join(home, sessionFile)},
		Logger:  log,
	})
}

// NewRootCommand creates the miboda command tree.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{Backend: httpBackend, In: os.Stdin})
}

// NewRootCommandWith creates the command tree over opts. Tests inject an
// in-memory backend through opts.Backend.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.Backend == nil {
		opts.Backend = httpBackend
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	cmd := &cobra.Command{
		Use:           "miboda",
		Short:         "Mi Boda - planeador de bodas",
		Long:          "Presupuesto, gastos, tareas, proveedores e itinerario de tu boda desde la terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("formato %q inválido: usa uno de %v", opts.Format, ValidFormats))
			}
			if opts.Home == "" {
				home, err := HomeDir()
				if err != nil {
					return WrapExitError(ExitCommandError, "no se encontró el directorio de configuración", err)
				}
				opts.Home = home
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Home, "home", opts.Home, "directorio de configuración (por defecto $"+EnvHome+" o ~/.config/miboda)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "registro detallado")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "tiempo máximo por comando")

	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewOnboardingCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewBudgetCommand(opts))
	cmd.AddCommand(NewExpenseCommand(opts))
	cmd.AddCommand(NewIncomeCommand(opts))
	cmd.AddCommand(NewTransactionsCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewProvidersCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code. Errors
// already shown as notices are not printed twice.
func Execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if !errors.As(err, &ee) || !ee.Silent {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return ExitCode(err)
}
