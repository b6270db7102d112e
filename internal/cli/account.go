package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/session"
	"github.com/iliyamo/miboda/internal/validate"
)

// NewConfigCommand writes config.yaml.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	var cfg Config
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Guarda la URL y la llave pública del servidor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(opts.Home, configFile)
			current, err := LoadConfig(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "configuración inválida", err)
			}
			if cmd.Flags().Changed("url") {
				current.URL = strings.TrimRight(cfg.URL, "/")
			}
			if cmd.Flags().Changed("anon-key") {
				current.AnonKey = cfg.AnonKey
			}
			if cmd.Flags().Changed("log-level") {
				current.LogLevel = cfg.LogLevel
			}
			if err := current.Save(path); err != nil {
				return WrapExitError(ExitFailure, "no se pudo guardar la configuración", err)
			}
			p := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return p.emit(map[string]string{"path": path, "url": current.URL}, func(w io.Writer) {
				fmt.Fprintf(w, "Configuración guardada en %s\n", path)
			})
		},
	}
	cmd.Flags().StringVar(&cfg.URL, "url", "", "URL base del servidor")
	cmd.Flags().StringVar(&cfg.AnonKey, "anon-key", "", "llave pública (anon key)")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", "", "debug|info|warn|error")
	return cmd
}

// NewCategoriesCommand lists the budget categories.
func NewCategoriesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Lista las categorías de presupuesto",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := category.All()
			p := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return p.emit(all, func(w io.Writer) {
				rows := make([][]string, 0, len(all))
				for _, c := range all {
					rows = append(rows, []string{string(c.ID), c.Label, fmt.Sprintf("%g%%", c.Percentage)})
				}
				table(w, []string{"ID", "CATEGORÍA", "SUGERIDO"}, rows)
			})
		},
	}
}

// NewLoginCommand signs in with email and password.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var creds session.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión",
		Long:  "Inicia sesión con correo y contraseña. Sin --password la contraseña se lee de la entrada estándar.",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(public, func(ctx context.Context, a *App, _ []string) error {
		if creds.Password == "" {
			pw, err := readLine(opts.In)
			if err != nil {
				return WrapExitError(ExitCommandError, "no se pudo leer la contraseña", err)
			}
			creds.Password = pw
		}
		err := a.Store.SignIn(ctx, creds.Email, creds.Password)
		var fe *validate.FieldError
		var ae *session.AuthError
		switch {
		case errors.As(err, &fe):
			return NewExitError(ExitCommandError, fe.Message)
		case errors.As(err, &ae):
			msg := ae.Message
			if ae.Title != "" {
				msg = ae.Title + ": " + ae.Message
			}
			return &ExitError{Code: ExitAuth, Message: msg, Err: ae.Err}
		case err != nil:
			return WrapExitError(ExitFailure, "no se pudo iniciar sesión", err)
		}
		snap := a.Store.Snapshot()
		return a.out.emit(snap.Identity, func(w io.Writer) {
			fmt.Fprintf(w, "¡Hola, %s!\n", snap.Identity.FirstName(snap.Identity.Email))
		})
	})
	cmd.Flags().StringVar(&creds.Email, "email", "", "correo electrónico")
	cmd.Flags().StringVar(&creds.Password, "password", "", "contraseña")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLogoutCommand signs out and forgets the stored session.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Cierra la sesión",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(public, func(ctx context.Context, a *App, _ []string) error {
		if a.Store.Snapshot().Identity == nil {
			return NewExitError(ExitAuth, "No hay sesión activa")
		}
		if err := a.Store.SignOut(ctx); err != nil {
			// The local session is gone regardless.
			a.Log.Warn("remote sign out failed", "err", err)
		}
		return a.out.emit(map[string]bool{"signed_out": true}, func(w io.Writer) {
			fmt.Fprintln(w, "Sesión cerrada")
		})
	})
	return cmd
}

type statusView struct {
	SignedIn bool   `json:"signed_in"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Admin    bool   `json:"admin"`
	Active   *bool  `json:"active,omitempty"`
}

// NewStatusCommand prints the current session.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Muestra la sesión actual",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(public, func(ctx context.Context, a *App, _ []string) error {
		snap, err := waitResolved(ctx, a.Store)
		if err != nil {
			return WrapExitError(ExitFailure, "no se pudo leer la sesión", err)
		}
		v := statusView{SignedIn: snap.Identity != nil, Admin: snap.IsAdmin}
		if snap.Identity != nil {
			v.UserID, v.Email, v.Name = snap.Identity.ID, snap.Identity.Email, snap.Identity.FullName
		}
		if snap.Profile != nil {
			v.Active = &snap.Profile.IsActive
		}
		return a.out.emit(v, func(w io.Writer) {
			if !v.SignedIn {
				fmt.Fprintln(w, "Sin sesión")
				return
			}
			role := "usuario"
			if v.Admin {
				role = "administrador"
			}
			fmt.Fprintf(w, "%s (%s), %s\n", v.Email, v.UserID, role)
			if v.Active != nil && !*v.Active {
				fmt.Fprintln(w, session.TitleSuspended)
			}
		})
	})
	return cmd
}

// waitResolved blocks until the derived lookups for the current identity
// have finished.
func waitResolved(ctx context.Context, st *session.Store) (session.Snapshot, error) {
	changes, cancel := st.Subscribe()
	defer cancel()
	for {
		snap := st.Snapshot()
		if !snap.LoadingInitial && snap.Resolved {
			return snap, nil
		}
		select {
		case _, ok := <-changes:
			if !ok {
				return st.Snapshot(), nil
			}
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}
