package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/rpc"
	"github.com/idilsaglam/todolist/internal/service"
	"github.com/idilsaglam/todolist/internal/ui"
)

func newListCmd(app *App) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List items",
		Args:    exactArgs(0, "todo ls [--group]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withService(cmd, func(_ context.Context, svc *service.TodoListService) error {
				return doList(cmd.OutOrStdout(), svc.Items(), group)
			})
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "Group output by pending/done")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a new item (text can be multiple words)",
		Args:  minArgs(1, "todo add <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := itemText("add", args)
			if err != nil {
				return err
			}
			return app.withService(cmd, func(ctx context.Context, svc *service.TodoListService) error {
				before := svc.Items()
				items, err := svc.Create(ctx, model.CreateInput{Text: text})
				if err != nil {
					return fmt.Errorf("add: %w", err)
				}
				ui.OK(cmd.OutOrStdout(), "added #"+addedID(before, items))
				return nil
			})
		},
	}
}

func newDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle completion of an item",
		Args:    exactArgs(1, "todo done <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withService(cmd, func(ctx context.Context, svc *service.TodoListService) error {
				it, err := lookup(svc, args[0])
				if err != nil {
					return err
				}
				if _, err := svc.ToggleComplete(ctx, it); err != nil {
					return fmt.Errorf("toggle: %w", err)
				}
				ui.OK(cmd.OutOrStdout(), "toggled")
				return nil
			})
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text...>",
		Short: "Replace the text of an item",
		Args:  minArgs(2, "todo edit <id> <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := itemText("edit", args[1:])
			if err != nil {
				return err
			}
			return app.withService(cmd, func(ctx context.Context, svc *service.TodoListService) error {
				it, err := lookup(svc, args[0])
				if err != nil {
					return err
				}
				if _, err := svc.UpdateText(ctx, it, text); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				ui.OK(cmd.OutOrStdout(), "saved")
				return nil
			})
		},
	}
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item",
		Args:    exactArgs(1, "todo rm <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withService(cmd, func(ctx context.Context, svc *service.TodoListService) error {
				it, err := lookup(svc, args[0])
				if err != nil {
					return err
				}
				if _, err := svc.Remove(ctx, it); err != nil {
					return fmt.Errorf("remove: %w", err)
				}
				ui.OK(cmd.OutOrStdout(), "removed")
				return nil
			})
		},
	}
}

func newServeCmd(app *App) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured data source over JSON-RPC",
		Args:  exactArgs(0, "todo serve [--listen addr]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := app.openSource()
			if err != nil {
				return err
			}
			defer src.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), "serving on "+ln.Addr().String())
			return rpc.NewServer(src, app.log).Serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7070", "TCP address to listen on")
	return cmd
}

// -------------- helpers ----------------

func itemText(op string, args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", usageError{op + ": empty text"}
	}
	return text, nil
}

// addedID returns the newest id in after that before lacks. A create lists the
// collection in the same step as the insert, so that id is ours even when
// other clients of a shared source added items since before was read.
func addedID(before, after []model.Item) string {
	seen := make(map[string]bool, len(before))
	for _, it := range before {
		seen[it.ID] = true
	}
	for i := len(after) - 1; i >= 0; i-- {
		if !seen[after[i].ID] {
			return after[i].ID
		}
	}
	return "?"
}

func lookup(svc *service.TodoListService, id string) (model.Item, error) {
	it, ok := model.Find(svc.Items(), strings.TrimPrefix(id, "#"))
	if !ok {
		return model.Item{}, notFoundError{id: id}
	}
	return it, nil
}

func doList(w io.Writer, items []model.Item, group bool) error {
	t := ui.Current()
	d, p := model.Stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), d,
		t.Pending.Render(t.SymPending), p,
		t.Accent.Render("Total"), len(items),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, t.Muted.Render(ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(w, lines)
	return nil
}

func flatLines(items []model.Item) []string {
	t := ui.Current()
	if len(items) == 0 {
		return []string{t.Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		box := t.Muted.Render(t.BoxUnchecked)
		if it.IsComplete {
			box = t.Success.Render(t.BoxChecked)
		}
		text := ansi.Truncate(it.Text, 80, "...")
		switch {
		case text == "":
			text = t.Muted.Render("(empty)")
		case it.IsComplete:
			text = t.Done.Render(text)
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			t.Muted.Render(fmt.Sprintf("%3s.", it.ID)), box, text))
	}
	return out
}

func groupLines(items []model.Item) []string {
	t := ui.Current()
	var pend, done []model.Item
	for _, it := range items {
		if it.IsComplete {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
