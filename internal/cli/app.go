package cli

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/guard"
	"github.com/iliyamo/miboda/internal/notice"
	"github.com/iliyamo/miboda/internal/onboarding"
	"github.com/iliyamo/miboda/internal/planner"
	"github.com/iliyamo/miboda/internal/session"
	"github.com/iliyamo/miboda/pkg/logging"
)

// access is the guard a command passes before it runs.
type access int

const (
	public   access = iota // no session needed
	member                 // route guard
	planning               // route guard plus onboarding gate
	admin                  // admin guard
)

// App is the wiring of one command invocation.
type App struct {
	Backend gateway.Backend
	Store   *session.Store
	Planner *planner.Client
	Notices notice.Notifier
	Log     *slog.Logger

	out printer
}

type action func(ctx context.Context, a *App, args []string) error

func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*App, error) {
	cfg, err := LoadConfig(filepath.Join(o.Home, configFile))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configuración inválida", err)
	}
	level := logging.ParseLevel(cfg.LogLevel)
	if o.Verbose {
		level = slog.LevelDebug
	} else if cfg.LogLevel == "" {
		// Failures already reach the user as notices.
		level = slog.LevelError
	}
	log := logging.New(cmd.ErrOrStderr(), level)

	backend, err := o.Backend(cfg, o.Home, log)
	if err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			return nil, ee
		}
		return nil, WrapExitError(ExitCommandError, "no se pudo crear el cliente", err)
	}

	notices := notice.NewWriter(cmd.ErrOrStderr())
	store := session.New(backend, backend, session.WithLogger(log))
	if err := store.Initialize(ctx); err != nil {
		// A rejected refresh token leaves the store signed out.
		var ae *gateway.AuthError
		if !errors.As(err, &ae) {
			store.Dispose()
			return nil, WrapExitError(ExitFailure, "no se pudo leer la sesión", err)
		}
	}
	return &App{
		Backend: backend,
		Store:   store,
		Planner: planner.New(backend, store, planner.WithNotifier(notices), planner.WithLogger(log)),
		Notices: notices,
		Log:     log,
		out:     printer{format: o.Format, w: cmd.OutOrStdout()},
	}, nil
}

func (a *App) Close() { a.Store.Dispose() }

// run wraps fn with app setup, the guard for mode and teardown.
func (o *RootOptions) run(mode access, fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, o.Timeout)
		defer cancel()

		a, err := o.open(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		location := locationOf(cmd)
		switch mode {
		case member:
			err = a.authorize(ctx, location)
		case planning:
			if err = a.authorize(ctx, location); err == nil {
				err = a.onboarded(ctx)
			}
		case admin:
			err = a.authorizeAdmin(ctx, location)
		}
		if err != nil {
			return err
		}
		return fn(ctx, a, args)
	}
}

// locationOf maps "miboda tasks add" to "/tasks/add".
func locationOf(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	if len(parts) <= 1 {
		return guard.HomeRoute
	}
	return "/" + strings.Join(parts[1:], "/")
}

func (a *App) authorize(ctx context.Context, location string) error {
	g := guard.New(a.Store, guard.ProfileStatus{Data: a.Backend},
		guard.WithNotifier(a.Notices), guard.WithLogger(a.Log))
	g.Activate(ctx, location)
	defer g.Deactivate()

	d, err := g.Wait(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "no se pudo verificar la sesión", err)
	}
	if d.Kind != guard.Redirect {
		return nil
	}
	if d.Notice != nil {
		// The guard already posted the suspension notice.
		return &ExitError{Code: ExitAuth, Message: d.Notice.Title, Silent: true}
	}
	return NewExitError(ExitAuth, "No hay sesión activa. Ejecuta `miboda login`")
}

func (a *App) onboarded(ctx context.Context) error {
	d, err := onboarding.NewGate(a.Planner).Check(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "no se pudo leer el perfil de boda", err)
	}
	if d.Kind == guard.Redirect {
		return NewExitError(ExitFailure, "Primero completa tu perfil con `miboda onboarding`")
	}
	return nil
}

func (a *App) authorizeAdmin(ctx context.Context, location string) error {
	d, err := guard.NewAdmin(a.Store).Wait(ctx, location)
	if err != nil {
		return WrapExitError(ExitFailure, "no se pudo verificar la sesión", err)
	}
	switch {
	case d.Kind != guard.Redirect:
		return nil
	case d.To == guard.HomeRoute:
		return NewExitError(ExitAuth, planner.ErrNotAdmin.Error())
	}
	return NewExitError(ExitAuth, "No hay sesión activa. Ejecuta `miboda login`")
}

// result classifies a mutation error. Remote failures were already posted
// as notices by the planner; validation failures were not.
func result(err error) error {
	if err == nil {
		return nil
	}
	var ve *planner.ValidationError
	if errors.As(err, &ve) {
		return NewExitError(ExitCommandError, ve.Message)
	}
	return &ExitError{Code: ExitFailure, Message: gateway.Message(err), Err: err, Silent: true}
}

// readErr wraps a failed read, which posts no notice.
func readErr(what string, err error) error {
	return WrapExitError(ExitFailure, "no se pudo cargar "+what, err)
}
