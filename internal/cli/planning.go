package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/onboarding"
	"github.com/iliyamo/miboda/internal/planner"
)

// parseAmount accepts plain numbers and Colombian notation: "$ 1.500.000,50".
func parseAmount(s string) (float64, error) {
	t := strings.NewReplacer("$", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if strings.Contains(t, ",") || strings.Count(t, ".") > 1 || isThousands(t) {
		t = strings.ReplaceAll(t, ".", "")
		t = strings.Replace(t, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("monto inválido %q", s))
	}
	return v, nil
}

// isThousands reports "1.500" style input: one dot followed by exactly three
// digits.
func isThousands(s string) bool {
	i := strings.IndexByte(s, '.')
	return i > 0 && len(s)-i-1 == 3
}

func parseCategory(s string) (category.ID, error) {
	id, err := category.Parse(s)
	if err != nil {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("categoría %q desconocida: ejecuta `miboda categories`", s))
	}
	return id, nil
}

type onboardingFlags struct {
	date   string
	budget string
	guests int
	city   string
}

// NewOnboardingCommand runs the four setup steps from flags.
func NewOnboardingCommand(opts *RootOptions) *cobra.Command {
	var f onboardingFlags
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Configura tu boda: fecha, presupuesto, invitados y ciudad",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(member, func(ctx context.Context, a *App, _ []string) error {
		w := onboarding.NewWizard()
		if f.date != "" {
			d, err := time.Parse(model.DateLayout, f.date)
			if err != nil {
				return NewExitError(ExitCommandError, "fecha inválida: usa AAAA-MM-DD")
			}
			w.SetDate(d)
		}
		if f.budget != "" {
			v, err := parseAmount(f.budget)
			if err != nil {
				return err
			}
			w.SetBudget(v)
		}
		w.SetGuests(f.guests)
		w.SetCity(f.city)

		for w.Step() < onboarding.StepCity {
			if err := w.Next(); err != nil {
				return NewExitError(ExitCommandError, "falta "+stepFlag(w.Step()))
			}
		}
		if !w.CanProceed() {
			return NewExitError(ExitCommandError, "falta "+stepFlag(w.Step()))
		}
		if _, err := w.Complete(ctx, a.Planner, a.Store.Snapshot().Identity); err != nil {
			return result(err)
		}
		profile, err := a.Planner.WeddingProfile(ctx)
		if err != nil {
			return readErr("el perfil", err)
		}
		return a.out.emit(profile, func(w io.Writer) {
			fmt.Fprintf(w, "¡Listo! Boda el %s en %s con %d invitados y %s de presupuesto.\n",
				deref(profile.WeddingDate), deref(profile.City), *profile.GuestCount, planner.FormatCOP(profile.Budget()))
		})
	})
	cmd.Flags().StringVar(&f.date, "date", "", "fecha de la boda (AAAA-MM-DD)")
	cmd.Flags().StringVar(&f.budget, "budget", "", "presupuesto total en COP")
	cmd.Flags().IntVar(&f.guests, "guests", 0, "número de invitados")
	cmd.Flags().StringVar(&f.city, "city", "", "ciudad ("+strings.Join(onboarding.Cities(), ", ")+")")
	return cmd
}

func stepFlag(s onboarding.Step) string {
	switch s {
	case onboarding.StepDate:
		return "--date"
	case onboarding.StepBudget:
		return "--budget (mayor que 0)"
	case onboarding.StepGuests:
		return "--guests (mayor que 0)"
	}
	return "--city"
}

// NewSummaryCommand prints the dashboard.
func NewSummaryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "summary",
		Aliases: []string{"dashboard"},
		Short:   "Resumen: días restantes, presupuesto y próximas tareas",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		s, err := a.Planner.Summary(ctx)
		if err != nil {
			return readErr("el resumen", err)
		}
		return a.out.emit(s, func(w io.Writer) {
			if s.HasDate {
				fmt.Fprintf(w, "Faltan %d días para tu boda (%s)\n\n", s.DaysUntilWedding, s.WeddingDate.Format(model.DateLayout))
			}
			fmt.Fprintf(w, "Presupuesto  %s\n", planner.FormatCOP(s.TotalPlanned))
			fmt.Fprintf(w, "Gastado      %s (%.0f%%)\n", planner.FormatCOP(s.TotalSpent), s.PercentUsed)
			fmt.Fprintf(w, "Disponible   %s\n", planner.FormatCOP(s.Remaining))
			fmt.Fprintf(w, "Ingresos     %s\n", planner.FormatCOP(s.TotalIncome))
			fmt.Fprintf(w, "Ahorro       %s\n", planner.FormatCOP(s.Savings))
			fmt.Fprintf(w, "Tareas       %d/%d\n", s.CompletedTasks, s.TotalTasks)
			if len(s.TopCategories) > 0 {
				fmt.Fprintln(w, "\nMayores gastos")
				for _, l := range s.TopCategories {
					fmt.Fprintf(w, "  %-26s %s\n", l.Label, planner.FormatCOP(l.Spent))
				}
			}
			if len(s.UpcomingTasks) > 0 {
				fmt.Fprintln(w, "\nPróximas tareas")
				for _, t := range s.UpcomingTasks {
					fmt.Fprintf(w, "  %s  %s\n", deref(t.DueDate), t.Title)
				}
			}
		})
	})
	return cmd
}

// NewBudgetCommand lists and edits per-category budgets.
func NewBudgetCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Presupuesto por categoría",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		profile, err := a.Planner.WeddingProfile(ctx)
		if err != nil {
			return readErr("el perfil", err)
		}
		budgets, err := a.Planner.Budgets(ctx)
		if err != nil {
			return readErr("el presupuesto", err)
		}
		lines := planner.Breakdown(profile, budgets)
		return a.out.emit(lines, func(w io.Writer) {
			rows := make([][]string, 0, len(lines))
			for _, l := range lines {
				flag := ""
				if l.Over() {
					flag = "excedido"
				}
				rows = append(rows, []string{string(l.Category), l.Label, planner.FormatCOP(l.Planned),
					planner.FormatCOP(l.Spent), fmt.Sprintf("%.0f%%", l.Percent()), flag})
			}
			table(w, []string{"ID", "CATEGORÍA", "PLANEADO", "GASTADO", "%", ""}, rows)
		})
	})
	cmd.AddCommand(budgetWrite(opts, "set", "Fija el monto planeado de una categoría", (*planner.Client).SetPlanned))
	cmd.AddCommand(budgetWrite(opts, "spent", "Corrige el total gastado de una categoría", (*planner.Client).SetSpent))
	return cmd
}

func budgetWrite(opts *RootOptions, use, short string,
	write func(*planner.Client, context.Context, category.ID, float64) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <categoría> <monto>",
		Short: short,
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		cat, err := parseCategory(args[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return result(write(a.Planner, ctx, cat, amount))
	})
	return cmd
}

// NewExpenseCommand records an expense against a category.
func NewExpenseCommand(opts *RootOptions) *cobra.Command {
	var in planner.ExpenseInput
	cmd := &cobra.Command{
		Use:   "expense <monto> <categoría>",
		Short: "Registra un gasto y lo suma al presupuesto de la categoría",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		v, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		if in.Category, err = parseCategory(args[1]); err != nil {
			return err
		}
		in.Amount = v
		return result(a.Planner.AddExpense(ctx, in))
	})
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "descripción")
	cmd.Flags().StringVar(&in.ProviderID, "provider", "", "id del proveedor")
	return cmd
}

// NewIncomeCommand records money received.
func NewIncomeCommand(opts *RootOptions) *cobra.Command {
	var in planner.IncomeInput
	cmd := &cobra.Command{
		Use:   "income <monto> <fuente>",
		Short: "Registra un ingreso (aporte, regalo, ahorro)",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		v, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		in.Amount, in.Source = v, args[1]
		return result(a.Planner.AddIncome(ctx, in))
	})
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "descripción")
	return cmd
}

// NewTransactionsCommand lists transactions, newest first.
func NewTransactionsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Lista ingresos y gastos",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		txs, err := a.Planner.Transactions(ctx)
		if err != nil {
			return readErr("las transacciones", err)
		}
		return a.out.emit(txs, func(w io.Writer) {
			rows := make([][]string, 0, len(txs))
			for _, t := range txs {
				amount := planner.FormatCOP(t.Amount)
				if t.Type == model.TransactionExpense {
					amount = planner.FormatCOP(-t.Amount)
				}
				label := ""
				if t.Category != nil {
					label = category.ID(*t.Category).Label()
				}
				rows = append(rows, []string{t.TransactionDate.Format(model.DateLayout), t.Type, amount, label, deref(t.Description)})
			}
			table(w, []string{"FECHA", "TIPO", "MONTO", "CATEGORÍA", "DESCRIPCIÓN"}, rows)
		})
	})
	return cmd
}
