// Package tui is the interactive front end: a bubbletea list driven by the
// task controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
)

// listItem adapts a rendered row to bubbles/list.Item
type listItem struct {
	ID   string
	Text string
	Done bool
}

func (i listItem) TitleText() string {
	box := boxUnchecked
	if i.Done {
		box = boxChecked
	}
	return fmt.Sprintf("%s %s", box, i.Text)
}

// Implement list.Item interface
func (i listItem) Title() string       { return i.TitleText() }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.Text }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)

	boxStyled := mutedStyle.Render(boxUnchecked)
	textStyled := it.Text
	if it.Done {
		boxStyled = successStyle.Render(boxChecked)
		textStyled = doneStyle.Render(it.Text)
	}

	line := fmt.Sprintf("%s %s", boxStyled, textStyled)
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

// opDoneMsg reports that a controller call issued from a command returned.
type opDoneMsg struct {
	op  string
	err error
}

var (
	addBind     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	toggleBind  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done"))
	editBind    = key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit"))
	deleteBind  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	filterBind  = key.NewBinding(key.WithKeys("1", "2", "3", "tab"), key.WithHelp("1-3/tab", "filter"))
	refreshBind = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	dismissBind = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss"))
)

type Model struct {
	ctx    context.Context
	ctl    *controller.Controller
	buf    *viewBuffer
	logger *log.Logger

	list list.Model

	// Inline add
	adding bool
	input  textinput.Model

	// Inline edit; editingID is empty when no row is in edit mode
	editingID string
	edit      textinput.Model

	alert        string
	alertVisible bool

	busy          int
	width, height int
}

// New wires a controller over store to a fresh list model. The controller
// is not initialized until the program runs Init.
func New(ctx context.Context, store controller.Store, opts ...controller.Option) Model {
	buf := &viewBuffer{}
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("task", "tasks")

	extra := func() []key.Binding {
		return []key.Binding{addBind, toggleBind, editBind, deleteBind, filterBind, refreshBind, dismissBind}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "New task title..."
	in.CharLimit = 200

	ed := textinput.New()
	ed.Prompt = "> "
	ed.Placeholder = "Edit task title..."
	ed.CharLimit = 200

	m := Model{
		ctx:    ctx,
		ctl:    controller.New(store, buf, opts...),
		buf:    buf,
		logger: log.Default(),
		list:   l,
		input:  in,
		edit:   ed,
	}
	m.list.Title = m.header()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, store controller.Store, opts ...controller.Option) error {
	p := tea.NewProgram(New(ctx, store, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Update and View implement Bubble Tea's Model on Model
func (m Model) Init() tea.Cmd {
	return m.run("load", func(ctx context.Context) error { return m.ctl.Init(ctx) })
}

// run executes fn off the update loop; its view output is applied when the
// resulting opDoneMsg arrives. A panic in fn (a row the snapshot no longer
// holds) fails this operation only.
func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = opDoneMsg{op: op, err: fmt.Errorf("%v", r)}
			}
		}()
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case opDoneMsg:
		if m.busy > 0 {
			m.busy--
		}
		if msg.err != nil {
			m.logger.Printf("%s: %v", msg.op, msg.err)
		}
		m.applyView()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// A command may have replaced the snapshot since the last opDoneMsg;
		// keys act on the rows it left.
		m.applyView()
		switch {
		case m.editingID != "":
			return m.updateEditing(msg)
		case m.adding:
			return m.updateAdding(msg)
		}
		return m.updateBrowsing(msg)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "a":
		m.adding = true
		m.input.Focus()
		return m, nil
	case " ":
		id := m.selectedID()
		if id == "" {
			return m, nil
		}
		m.busy++
		return m, m.run("toggle", func(ctx context.Context) error { return m.ctl.CrossOut(ctx, id) })
	case "d":
		id := m.selectedID()
		if id == "" {
			return m, nil
		}
		m.busy++
		return m, m.run("delete", func(ctx context.Context) error { return m.ctl.RemoveRow(ctx, id) })
	case "e", "enter":
		if id := m.selectedID(); id != "" {
			m.ctl.BeginEdit(id)
			m.applyView()
		}
		return m, nil
	case "1", "2", "3":
		m.ctl.FilterTasks(model.Filters[int(msg.String()[0]-'1')])
		m.applyView()
		return m, nil
	case "tab":
		m.ctl.FilterTasks(m.ctl.Filter().Next())
		m.applyView()
		return m, nil
	case "r":
		m.busy++
		return m, m.run("refresh", m.ctl.Refresh)
	case "x":
		m.ctl.DismissAlert()
		m.applyView()
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.input.Value()
		m.busy++
		return m, m.run("add", func(ctx context.Context) error {
			err := m.ctl.AddTask(ctx, text)
			if errors.Is(err, controller.ErrEmptyTitle) {
				return nil
			}
			return err
		})
	case "esc":
		m.adding = false
		m.input.SetValue("")
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctl.InputChanged(m.input.Value())
	m.applyView()
	return m, cmd
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctl.HandleKey(msg.String()) {
		id, text := m.editingID, m.edit.Value()
		m.editingID = ""
		m.edit.Blur()
		m.showLocalTitle(id, text)
		m.busy++
		return m, m.run("edit", func(ctx context.Context) error { return m.ctl.CommitEdit(ctx, id, text) })
	}
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	return m, cmd
}

// applyView replays what the controller asked the view to do.
func (m *Model) applyView() {
	for _, op := range m.buf.drain() {
		switch op := op.(type) {
		case rowsMsg:
			m.setRows(op)
		case editableMsg:
			if op.on {
				m.startEditing(op.id)
			} else if m.editingID == op.id {
				m.editingID = ""
				m.edit.Blur()
			}
		case clearInputMsg:
			m.input.SetValue("")
		case alertMsg:
			if op.visible {
				m.alert = op.text
			}
			m.alertVisible = op.visible
		}
	}
	m.list.Title = m.header()
}

func (m *Model) setRows(rows []controller.Row) {
	idx := m.list.Index()
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, listItem{ID: r.ID, Text: r.Title, Done: r.Done})
	}
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m *Model) startEditing(id string) {
	for _, it := range m.list.Items() {
		if li, ok := it.(listItem); ok && li.ID == id {
			m.editingID = id
			m.edit.SetValue(li.Text)
			m.edit.CursorEnd()
			m.edit.Focus()
			return
		}
	}
}

// showLocalTitle puts the edited text on the row until the refresh lands.
func (m *Model) showLocalTitle(id, text string) {
	for i, it := range m.list.Items() {
		if li, ok := it.(listItem); ok && li.ID == id {
			li.Text = strings.TrimSpace(text)
			m.list.SetItem(i, li)
			return
		}
	}
}

func (m Model) selectedID() string {
	if li, ok := m.list.SelectedItem().(listItem); ok {
		return li.ID
	}
	return ""
}

func (m Model) header() string {
	dn, pn := m.ctl.Stats()
	var tabs []string
	for i, f := range model.Filters {
		label := fmt.Sprintf("%d %s", i+1, f)
		if f == m.ctl.Filter() {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, mutedStyle.Render(label))
		}
	}
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d   %s",
		titleStyle.Render("Tasks"),
		successStyle.Render("✔"), dn,
		pendingStyle.Render("•"), pn,
		accentStyle.Render("Total"), dn+pn,
		strings.Join(tabs, "  "),
	)
}

func (m *Model) resize() {
	listHeight := m.height - 4
	if m.adding || m.editingID != "" {
		listHeight -= 4
	}
	if m.alertVisible {
		listHeight--
	}
	if listHeight < 1 {
		listHeight = 1
	}
	m.list.SetSize(m.width-4, listHeight)
}

func (m Model) View() string {
	m.resize()
	content := m.list.View()

	if m.alertVisible {
		content += "\n" + errorStyle.Render("✖ "+m.alert) + helpStyle.Render("  (x to dismiss)")
	}
	if m.busy > 0 {
		content += "\n" + helpStyle.Render("syncing…")
	}
	switch {
	case m.editingID != "":
		content += "\n" + inputBar("Edit task (enter/esc to save)", m.edit.View())
	case m.adding:
		content += "\n" + inputBar("Add new task (esc to close)", m.input.View())
	}
	return panelString(content)
}
