package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

// textView keeps the last rows and alert so a one-shot command can print
// them after the controller is done.
type textView struct {
	rows  []controller.Row
	alert string
}

func (v *textView) RenderRows(rows []controller.Row) { v.rows = rows }
func (v *textView) SetEditable(string, bool)         {}
func (v *textView) ClearInput()                      {}
func (v *textView) ShowAlert(msg string)             { v.alert = msg }
func (v *textView) HideAlert()                       { v.alert = "" }

// open connects a controller to the configured collection and loads it.
func (app *App) open(ctx context.Context) (*controller.Controller, *textView, error) {
	view := &textView{}
	c := controller.New(app.newStore(app.cfg), view, app.controllerOptions()...)
	if err := c.Init(ctx); err != nil {
		return nil, nil, err
	}
	return c, view, nil
}

// openFiltered is open plus the --filter selection, so row numbers match
// what `tada ls` with the same filter printed.
func (app *App) openFiltered(ctx context.Context, filter string) (*controller.Controller, *textView, error) {
	f, err := model.ParseFilter(filter)
	if err != nil {
		return nil, nil, usageError{msg: err.Error()}
	}
	c, view, err := app.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	c.FilterTasks(f)
	return c, view, nil
}

func addFilterFlag(cmd *cobra.Command, filter *string) {
	cmd.Flags().StringVarP(filter, "filter", "f", string(model.FilterAll), "Rows to show: all|completed|uncompleted")
}

// resolveIndex maps a 1-based row number to a task id.
func resolveIndex(c *controller.Controller, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", usagef("not a number: %s", arg)
	}
	id, ok := c.RowID(n - 1)
	if !ok {
		return "", usagef("index out of range: have %d, got %d", len(c.Rows()), n)
	}
	return id, nil
}

func newListCmd(app *App) *cobra.Command {
	var filter string
	var group bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, view, err := app.openFiltered(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), c, view.rows, group)
			return nil
		},
	}
	addFilterFlag(cmd, &filter)
	cmd.Flags().BoolVarP(&group, "group", "g", false, "Group output by pending/done")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task (title can be multiple words)",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.open(cmd.Context())
			if err != nil {
				return err
			}
			err = c.AddTask(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, controller.ErrEmptyTitle) {
				return usagef("add: %v", err)
			}
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "added")
			return nil
		},
	}
}

func newDoneCmd(app *App) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle done for the task at a 1-based index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.openFiltered(cmd.Context(), filter)
			if err != nil {
				return err
			}
			id, err := resolveIndex(c, args[0])
			if err != nil {
				return err
			}
			if err := c.CrossOut(cmd.Context(), id); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "toggled")
			return nil
		},
	}
	addFilterFlag(cmd, &filter)
	return cmd
}

func newRenameCmd(app *App) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "rename <index> <title...>",
		Short: "Change the title of a task; an empty title removes it",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.openFiltered(cmd.Context(), filter)
			if err != nil {
				return err
			}
			id, err := resolveIndex(c, args[0])
			if err != nil {
				return err
			}
			s := c.BeginEdit(id)
			if err := c.CommitEdit(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			if s.State() == controller.Deleted {
				ui.OK(cmd.OutOrStdout(), "removed")
				return nil
			}
			ui.OK(cmd.OutOrStdout(), "renamed")
			return nil
		},
	}
	addFilterFlag(cmd, &filter)
	return cmd
}

func newRemoveCmd(app *App) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the task at a 1-based index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.openFiltered(cmd.Context(), filter)
			if err != nil {
				return err
			}
			id, err := resolveIndex(c, args[0])
			if err != nil {
				return err
			}
			if err := c.RemoveRow(cmd.Context(), id); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "removed")
			return nil
		},
	}
	addFilterFlag(cmd, &filter)
	return cmd
}

// -------------- rendering helpers --------------

// numberedRow keeps a row's position in the listing so grouped output still
// prints the index `done`/`rm` expect.
type numberedRow struct {
	n int
	controller.Row
}

func printList(w io.Writer, c *controller.Controller, rows []controller.Row, group bool) {
	th := ui.Current()
	d, p := c.Stats()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d  %s",
		ui.C(th.Title, "Tasks"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymUnchecked), p,
		ui.C(th.Accent, "Total"), d+p,
		ui.C(th.Muted, "["+string(c.Filter())+"]"),
	)

	numbered := make([]numberedRow, len(rows))
	for i, r := range rows {
		numbered[i] = numberedRow{n: i + 1, Row: r}
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")
	if group {
		lines = append(lines, groupLines(numbered)...)
	} else {
		lines = append(lines, flatLines(numbered)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, "Tip: add with `tada add \"Buy milk\"`"))
	ui.Panel(w, lines)
}

func flatLines(rows []numberedRow) []string {
	th := ui.Current()
	if len(rows) == 0 {
		return []string{ui.C(th.Muted, "no tasks")}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		box, color := th.BoxUnchecked, th.Muted
		title := truncate(r.Title, 80)
		if r.Done {
			box, color = th.BoxChecked, th.Success
			title = ui.Strike(title)
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			ui.Dim(fmt.Sprintf("%2d.", r.n)), ui.C(color, box), title))
	}
	return out
}

func groupLines(rows []numberedRow) []string {
	th := ui.Current()
	var pend, done []numberedRow
	for _, r := range rows {
		if r.Done {
			done = append(done, r)
		} else {
			pend = append(pend, r)
		}
	}
	var lines []string
	lines = append(lines, ui.C(th.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
