package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/planner"
)

// byID is a subcommand taking one row id.
func byID(opts *RootOptions, use, short string, fn func(c *planner.Client, ctx context.Context, id string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		return result(fn(a.Planner, ctx, args[0]))
	})
	return cmd
}

func seeded(a *App, n int, what string) error {
	return a.out.emit(map[string]int{"created": n}, func(w io.Writer) {
		if n == 0 {
			fmt.Fprintf(w, "Ya tienes %s, no se agregó nada\n", what)
		}
	})
}

// NewTasksCommand manages the checklist.
func NewTasksCommand(opts *RootOptions) *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Lista de tareas",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		tasks, err := a.Planner.Tasks(ctx)
		if err != nil {
			return readErr("las tareas", err)
		}
		if pending {
			open := tasks[:0:0]
			for _, t := range tasks {
				if !t.Completed {
					open = append(open, t)
				}
			}
			tasks = open
		}
		return a.out.emit(tasks, func(w io.Writer) {
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{check(t.Completed), deref(t.DueDate), t.Title, t.ID})
			}
			table(w, []string{"", "FECHA", "TAREA", "ID"}, rows)
		})
	})
	cmd.Flags().BoolVar(&pending, "pending", false, "solo tareas pendientes")

	var in planner.TaskInput
	add := &cobra.Command{
		Use:   "add <título>",
		Short: "Crea una tarea personalizada",
		Args:  cobra.MinimumNArgs(1),
	}
	add.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		in.Title = strings.Join(args, " ")
		return result(a.Planner.AddTask(ctx, in))
	})
	add.Flags().StringVarP(&in.Description, "description", "d", "", "descripción")
	add.Flags().StringVar(&in.DueDate, "due", "", "fecha límite (AAAA-MM-DD)")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Crea la lista de tareas sugerida según la fecha de la boda",
		Args:  cobra.NoArgs,
	}
	seed.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		n, err := a.Planner.SeedDefaultTasks(ctx)
		if err != nil {
			return result(err)
		}
		return seeded(a, n, "la lista sugerida")
	})

	cmd.AddCommand(add, seed,
		byID(opts, "done", "Marca una tarea como hecha", func(c *planner.Client, ctx context.Context, id string) error {
			return c.ToggleTask(ctx, id, true)
		}),
		byID(opts, "undo", "Marca una tarea como pendiente", func(c *planner.Client, ctx context.Context, id string) error {
			return c.ToggleTask(ctx, id, false)
		}),
		byID(opts, "delete", "Elimina una tarea", (*planner.Client).DeleteTask),
	)
	return cmd
}

// NewProvidersCommand manages vendors.
func NewProvidersCommand(opts *RootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"proveedores"},
		Short:   "Proveedores",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		var want category.ID
		if filter != "" {
			id, err := parseCategory(filter)
			if err != nil {
				return err
			}
			want = id
		}
		all, err := a.Planner.Providers(ctx)
		if err != nil {
			return readErr("los proveedores", err)
		}
		providers := all[:0:0]
		for _, p := range all {
			if want == "" || category.ID(p.Category) == want {
				providers = append(providers, p)
			}
		}
		return a.out.emit(providers, func(w io.Writer) {
			rows := make([][]string, 0, len(providers))
			for _, p := range providers {
				rows = append(rows, []string{p.Name, category.ID(p.Category).Label(), deref(p.City), price(p),
					check(p.Contacted), check(p.Hired), p.ID})
			}
			table(w, []string{"NOMBRE", "CATEGORÍA", "CIUDAD", "PRECIO", "CONTACTADO", "CONTRATADO", "ID"}, rows)
		})
	})
	cmd.Flags().StringVar(&filter, "category", "", "filtra por categoría")

	cmd.AddCommand(newProviderAdd(opts), newProviderUpdate(opts),
		byID(opts, "contacted", "Marca un proveedor como contactado", func(c *planner.Client, ctx context.Context, id string) error {
			return c.SetContacted(ctx, id, true)
		}),
		byID(opts, "hired", "Marca un proveedor como contratado", func(c *planner.Client, ctx context.Context, id string) error {
			return c.SetHired(ctx, id, true)
		}),
		byID(opts, "delete", "Elimina un proveedor", (*planner.Client).DeleteProvider),
	)
	return cmd
}

func price(p model.Provider) string {
	if p.PriceApprox == nil {
		return ""
	}
	return planner.FormatCOP(*p.PriceApprox)
}

func newProviderAdd(opts *RootOptions) *cobra.Command {
	var in planner.ProviderInput
	var cat, amount string
	cmd := &cobra.Command{
		Use:   "add <nombre>",
		Short: "Guarda un proveedor",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		in.Name = strings.Join(args, " ")
		id, err := parseCategory(cat)
		if err != nil {
			return err
		}
		in.Category = id
		if amount != "" {
			if in.PriceApprox, err = parseAmount(amount); err != nil {
				return err
			}
		}
		return result(a.Planner.AddProvider(ctx, in))
	})
	cmd.Flags().StringVarP(&cat, "category", "c", "", "categoría")
	cmd.Flags().StringVar(&in.City, "city", "", "ciudad")
	cmd.Flags().StringVar(&amount, "price", "", "precio aproximado")
	cmd.Flags().StringVar(&in.WhatsApp, "whatsapp", "", "número de WhatsApp")
	cmd.Flags().StringVar(&in.Instagram, "instagram", "", "usuario de Instagram")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newProviderUpdate(opts *RootOptions) *cobra.Command {
	var name, cat, city, amount, whatsapp, instagram, notes string
	var contacted, hired bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Modifica un proveedor; solo se envían los campos indicados",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		f := cmd.Flags()
		var patch model.ProviderPatch
		str := func(flag string, v *string) *string {
			if f.Changed(flag) {
				return v
			}
			return nil
		}
		patch.Name = str("name", &name)
		patch.City = str("city", &city)
		patch.WhatsApp = str("whatsapp", &whatsapp)
		patch.Instagram = str("instagram", &instagram)
		patch.Notes = str("notes", &notes)
		if f.Changed("category") {
			id, err := parseCategory(cat)
			if err != nil {
				return err
			}
			s := string(id)
			patch.Category = &s
		}
		if f.Changed("price") {
			v, err := parseAmount(amount)
			if err != nil {
				return err
			}
			patch.PriceApprox = &v
		}
		if f.Changed("contacted") {
			patch.Contacted = &contacted
		}
		if f.Changed("hired") {
			patch.Hired = &hired
		}
		return result(a.Planner.UpdateProvider(ctx, args[0], patch))
	})
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "nombre")
	f.StringVarP(&cat, "category", "c", "", "categoría")
	f.StringVar(&city, "city", "", "ciudad")
	f.StringVar(&amount, "price", "", "precio aproximado")
	f.StringVar(&whatsapp, "whatsapp", "", "número de WhatsApp")
	f.StringVar(&instagram, "instagram", "", "usuario de Instagram")
	f.StringVar(&notes, "notes", "", "notas")
	f.BoolVar(&contacted, "contacted", false, "contactado")
	f.BoolVar(&hired, "hired", false, "contratado (implica contactado)")
	return cmd
}

// NewScheduleCommand manages the wedding-day itinerary.
func NewScheduleCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"mi-dia"},
		Short:   "Itinerario del día de la boda",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		items, err := a.Planner.Schedule(ctx)
		if err != nil {
			return readErr("el itinerario", err)
		}
		return a.out.emit(items, func(w io.Writer) {
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{check(it.Completed), it.Time, it.Activity, deref(it.Notes), it.ID})
			}
			table(w, []string{"", "HORA", "ACTIVIDAD", "NOTAS", "ID"}, rows)
		})
	})

	var in planner.ScheduleInput
	add := &cobra.Command{
		Use:   "add <HH:MM> <actividad>",
		Short: "Agrega una actividad",
		Args:  cobra.MinimumNArgs(2),
	}
	add.RunE = opts.run(planning, func(ctx context.Context, a *App, args []string) error {
		in.Time, in.Activity = args[0], strings.Join(args[1:], " ")
		return result(a.Planner.AddScheduleItem(ctx, in))
	})
	add.Flags().StringVar(&in.Notes, "notes", "", "notas")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Crea el itinerario sugerido",
		Args:  cobra.NoArgs,
	}
	seed.RunE = opts.run(planning, func(ctx context.Context, a *App, _ []string) error {
		n, err := a.Planner.SeedDefaultSchedule(ctx)
		if err != nil {
			return result(err)
		}
		return seeded(a, n, "un itinerario")
	})

	cmd.AddCommand(add, seed,
		byID(opts, "done", "Marca una actividad como hecha", func(c *planner.Client, ctx context.Context, id string) error {
			return c.ToggleScheduleItem(ctx, id, true)
		}),
		byID(opts, "undo", "Marca una actividad como pendiente", func(c *planner.Client, ctx context.Context, id string) error {
			return c.ToggleScheduleItem(ctx, id, false)
		}),
		byID(opts, "delete", "Elimina una actividad", (*planner.Client).DeleteScheduleItem),
	)
	return cmd
}
