package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"civicdesk/internal/api"
	"civicdesk/internal/audit"
	"civicdesk/internal/browser"
	"civicdesk/internal/entities"
	"civicdesk/internal/export"
	"civicdesk/internal/tui"
)

const shutdownTimeout = 10 * time.Second

// viewFlags narrow a view before a command acts on it.
type viewFlags struct {
	criterion string
	search    string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.criterion, "criterion", "", "named sort or filter to apply")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case-insensitive name search")
}

// withApp builds the app, runs fn with the operator attached to the context
// and shuts everything down afterwards.
func withApp(cmd *cobra.Command, g *globalFlags, confirm export.Confirmer, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, *g, confirm)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, a.Close(closeCtx))
	}()
	return fn(a.userContext(ctx), a)
}

// openView opens and loads the named entity, then applies f.
func openView(ctx context.Context, a *app, name string, f viewFlags) (browser.View, error) {
	v, err := a.open(name)
	if err != nil {
		return nil, err
	}
	if err := v.Load(ctx); err != nil {
		v.Close()
		return nil, fmt.Errorf("load %s: %s", v.Title(), api.Message(err))
	}
	if f.criterion != "" {
		if !slices.Contains(v.Criteria(), f.criterion) {
			v.Close()
			return nil, fmt.Errorf("unknown criterion %q for %s (known: %s)", f.criterion, v.Title(), strings.Join(v.Criteria(), ", "))
		}
		v.SetCriterion(f.criterion)
	}
	v.SetQuery(f.search)
	return v, nil
}

func entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the record collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, len(entities.All()))
			for _, e := range entities.All() {
				rows = append(rows, []string{string(e.Type), e.Title})
			}
			renderTable(cmd.OutOrStdout(), []string{"Name", "Title"}, rows)
			return nil
		},
	}
}

func listCmd(g *globalFlags) *cobra.Command {
	var (
		vf    viewFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "Print the records of a collection",
		Long: `Prints the records of a collection after the optional criterion and
search are applied.

Example:
  civicdesk list youth --criterion "In School Youth" --search maria`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				v, err := openView(ctx, a, args[0], vf)
				if err != nil {
					return err
				}
				defer v.Close()
				rows := v.Rows()
				if limit > 0 && len(rows) > limit {
					rows = rows[:limit]
				}
				out := cmd.OutOrStdout()
				renderTable(out, v.Columns(), rows)
				st := v.Status()
				fmt.Fprintf(out, "Showing %d of %d %s\n", len(rows), st.Total, v.Title())
				return nil
			})
		},
	}
	vf.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many rows")
	return cmd
}

func summaryCmd(g *globalFlags) *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "summary <entity>",
		Short: "Print the summary figures of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				v, err := openView(ctx, a, args[0], vf)
				if err != nil {
					return err
				}
				defer v.Close()
				rows := make([][]string, 0)
				for _, m := range v.Summary() {
					rows = append(rows, []string{m.Label, m.Value})
				}
				fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(v.Title()))
				renderTable(cmd.OutOrStdout(), []string{"Figure", "Value"}, rows)
				return nil
			})
		},
	}
	vf.register(cmd)
	return cmd
}

func dashboardCmd(g *globalFlags) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Count the records of every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				all := entities.All()
				rows := make([][]string, len(all))
				eg, egCtx := errgroup.WithContext(ctx)
				eg.SetLimit(max(parallel, 1))
				for i, e := range all {
					i, e := i, e // per-iteration copies (module targets go 1.21)
					eg.Go(func() error {
						rows[i] = []string{e.Title, "-", ""}
						v, err := e.Open(a.deps(), entities.WithLocale(a.cfg.Language()))
						if err != nil {
							return err
						}
						defer v.Close()
						if err := v.Load(egCtx); err != nil {
							if ctxErr := egCtx.Err(); ctxErr != nil {
								return ctxErr
							}
							rows[i][2] = api.Message(err)
							return nil
						}
						rows[i][1] = strconv.Itoa(v.Status().Total)
						return nil
					})
				}
				if err := eg.Wait(); err != nil {
					return err
				}
				renderTable(cmd.OutOrStdout(), []string{"Collection", "Records", "Problem"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 4, "collections fetched at once")
	return cmd
}

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		vf  viewFlags
		yes bool
		key string
	)
	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Write the visible records of a collection to CSV",
		Long: `Writes the records left after --criterion and --search to a CSV file in
the configured export destination. The file is named <entity>-YYYY-MM-DD.csv
unless --key is given; an existing file of the same name is replaced.

You are asked to confirm first; --yes skips the question.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, confirmer(cmd, yes), func(ctx context.Context, a *app) error {
				v, err := openView(ctx, a, args[0], vf)
				if err != nil {
					return err
				}
				defer v.Close()
				job, err := v.Export(ctx, key)
				out := cmd.OutOrStdout()
				switch {
				case errors.Is(err, export.ErrDeclined):
					fmt.Fprintln(out, "Export cancelled.")
					return nil
				case errors.Is(err, export.ErrNoRecords):
					return errors.New("no matching records to export")
				case errors.Is(err, export.ErrNotInteractive):
					return errors.New("cannot ask for confirmation without a terminal; pass --yes")
				case err != nil:
					if stage, ok := export.FailedStage(err); ok && stage == export.StageWrite {
						return fmt.Errorf("could not save %s: %w", job.Key, err)
					}
					return err
				}
				where := job.Info.Location
				if where == "" {
					where = job.Key
				}
				fmt.Fprintf(out, "Exported %d %s record(s) to %s\n", job.Rows, v.Entity(), where)
				if job.Info.Replaced {
					fmt.Fprintln(out, "An existing file with the same name was replaced.")
				}
				return nil
			})
		},
	}
	vf.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().StringVar(&key, "key", "", "file name inside the export destination")
	return cmd
}

func deleteCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>...",
		Short: "Delete records in one batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			confirm := confirmer(cmd, yes)
			return withApp(cmd, g, confirm, func(ctx context.Context, a *app) error {
				v, err := openView(ctx, a, args[0], viewFlags{})
				if err != nil {
					return err
				}
				defer v.Close()
				for _, id := range ids {
					if !v.Toggle(id) {
						return fmt.Errorf("%s %d: %w", v.Entity(), id, browser.ErrNotFound)
					}
				}
				ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete %d %s record(s)?", len(ids), v.Entity()))
				switch {
				case errors.Is(err, export.ErrNotInteractive):
					return errors.New("cannot ask for confirmation without a terminal; pass --yes")
				case err != nil:
					return err
				case !ok:
					fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
					return nil
				}
				n, err := v.DeleteSelected(ctx)
				if err != nil {
					return fmt.Errorf("delete failed: %s", api.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s record(s)\n", n, v.Entity())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func editCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <entity> <id> <field=value>...",
		Short: "Change fields of one record",
		Long: `Changes fields of one record. Only the fields whose value differs from
the stored record are sent.

Example:
  civicdesk edit youth 2 Lastname=Cruz-Santos InSchoolYouth=false`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[1])
			}
			values, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				v, err := openView(ctx, a, args[0], viewFlags{})
				if err != nil {
					return err
				}
				defer v.Close()
				changed, err := v.Edit(ctx, id, values)
				if err != nil {
					return fmt.Errorf("edit %s %d: %s", v.Entity(), id, api.Message(err))
				}
				if len(changed) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
					return nil
				}
				slices.Sort(changed)
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %d: %s\n", v.Entity(), id, strings.Join(changed, ", "))
				return nil
			})
		},
	}
}

func createCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <entity> <field=value>...",
		Short: "Add a record",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				v, err := openView(ctx, a, args[0], viewFlags{})
				if err != nil {
					return err
				}
				defer v.Close()
				id, err := v.Create(ctx, values)
				if err != nil {
					return fmt.Errorf("create %s: %s", v.Entity(), api.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %d\n", v.Entity(), id)
				return nil
			})
		},
	}
}

func auditCmd(g *globalFlags) *cobra.Command {
	var (
		entity string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent exports and changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				entries, err := a.trail.List(ctx, audit.Filter{Entity: entity, Limit: limit})
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					ids := make([]string, len(e.RecordIDs))
					for i, id := range e.RecordIDs {
						ids[i] = strconv.FormatInt(id, 10)
					}
					rows = append(rows, []string{
						e.OccurredAt.Local().Format(time.DateTime),
						e.Actor, string(e.Action), e.Entity,
						strings.Join(ids, " "), e.Outcome, e.Detail,
					})
				}
				renderTable(cmd.OutOrStdout(), []string{"When", "Actor", "Action", "Entity", "Records", "Outcome", "Detail"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "only this collection")
	cmd.Flags().IntVar(&limit, "limit", 20, "most recent entries to show")
	return cmd
}

func browseCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <entity>",
		Short: "Open the interactive browser for a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The page asks before every export, so the worker does not ask again.
			return withApp(cmd, g, export.AlwaysConfirm, func(ctx context.Context, a *app) error {
				v, err := a.open(args[0])
				if err != nil {
					return err
				}
				defer v.Close()
				page := tui.New(ctx, v)
				defer page.Close()
				p := tea.NewProgram(page,
					tea.WithContext(ctx),
					tea.WithAltScreen(),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				_, err = p.Run()
				if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
					return nil
				}
				return err
			})
		},
	}
}

func confirmer(cmd *cobra.Command, yes bool) export.Confirmer {
	if yes {
		return export.AlwaysConfirm
	}
	return export.PromptConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parseAssignments turns field=value arguments into a value map.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		values[field] = value
	}
	return values, nil
}
