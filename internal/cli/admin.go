package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/planner"
)

// NewAdminCommand groups the administrator operations.
func NewAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administración de usuarios",
	}
	cmd.AddCommand(newAdminUsers(opts), newAdminUser(opts), newAdminStats(opts), newAdminCreateUser(opts),
		newAdminSetActive(opts, "activate", "Reactiva una cuenta", true),
		newAdminSetActive(opts, "deactivate", "Suspende una cuenta", false))
	return cmd
}

func userRow(u model.UserWithRole) []string {
	state := "activo"
	if !u.IsActive {
		state = "suspendido"
	}
	return []string{u.Email, deref(u.FullName), u.Role, state, u.CreatedAt.Format(model.DateLayout), u.UserID}
}

var userHeader = []string{"CORREO", "NOMBRE", "ROL", "ESTADO", "REGISTRO", "ID"}

func newAdminUsers(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Lista los usuarios, más recientes primero",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(admin, func(ctx context.Context, a *App, _ []string) error {
		users, err := a.Planner.Users(ctx)
		if err != nil {
			return readErr("los usuarios", err)
		}
		return a.out.emit(users, func(w io.Writer) {
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, userRow(u))
			}
			table(w, userHeader, rows)
		})
	})
	return cmd
}

func newAdminUser(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user <id>",
		Short: "Muestra un usuario",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(admin, func(ctx context.Context, a *App, args []string) error {
		u, err := a.Planner.User(ctx, args[0])
		if err != nil {
			return readErr("el usuario", err)
		}
		return a.out.emit(u, func(w io.Writer) { table(w, userHeader, [][]string{userRow(*u)}) })
	})
	return cmd
}

func newAdminStats(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Totales de usuarios y bodas",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(admin, func(ctx context.Context, a *App, _ []string) error {
		s, err := a.Planner.Stats(ctx)
		if err != nil {
			return readErr("las estadísticas", err)
		}
		return a.out.emit(s, func(w io.Writer) {
			fmt.Fprintf(w, "Usuarios       %d\n", s.TotalUsers)
			fmt.Fprintf(w, "  activos      %d\n", s.ActiveUsers)
			fmt.Fprintf(w, "  suspendidos  %d\n", s.InactiveUsers)
			fmt.Fprintf(w, "  este mes     %d\n", s.UsersThisMonth)
			fmt.Fprintf(w, "Bodas          %d\n", s.TotalWeddings)
		})
	})
	return cmd
}

func newAdminCreateUser(opts *RootOptions) *cobra.Command {
	var in planner.CreateUserInput
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Crea una cuenta con correo confirmado",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(admin, func(ctx context.Context, a *App, _ []string) error {
		if in.Password == "" {
			pw, err := readLine(opts.In)
			if err != nil {
				return WrapExitError(ExitCommandError, "no se pudo leer la contraseña", err)
			}
			in.Password = pw
		}
		created, err := a.Planner.CreateUser(ctx, in)
		if err != nil {
			return result(err)
		}
		return a.out.emit(created, func(w io.Writer) {
			fmt.Fprintf(w, "%s (%s)\n", created.Email, created.ID)
		})
	})
	cmd.Flags().StringVar(&in.Email, "email", "", "correo")
	cmd.Flags().StringVar(&in.Password, "password", "", "contraseña inicial (mínimo 6 caracteres)")
	cmd.Flags().StringVar(&in.FullName, "name", "", "nombre completo")
	return cmd
}

func newAdminSetActive(opts *RootOptions, use, short string, active bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(admin, func(ctx context.Context, a *App, args []string) error {
		return result(a.Planner.SetUserActive(ctx, args[0], active))
	})
	return cmd
}
