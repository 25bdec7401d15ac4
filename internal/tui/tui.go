// Package tui is the interactive todo list. All changes go through the list
// service; the view redraws from the states the service publishes.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/service"
	"github.com/idilsaglam/todolist/internal/ui"
)

// noticeTTL is how long an error notification stays on screen.
const noticeTTL = 4 * time.Second

// action names the operation a notification is about.
type action string

const (
	actionLoad   action = "load"
	actionCreate action = "create"
	actionRemove action = "remove"
	actionSave   action = "save"
	actionToggle action = "toggle"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdding
	modeEditing
)

type loadedMsg struct{ err error }

type stateMsg service.State

type opErrMsg struct {
	action action
	err    error
}

type clearNoticeMsg struct{ seq int }

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ model.Item }

func (i listItem) FilterValue() string { return i.Text }

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	removeBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove"))
	quitBind   = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit"))
)

// Model is the Bubble Tea model for the list.
type Model struct {
	ctx context.Context
	svc *service.TodoListService
	log *log.Logger

	loading bool
	spinner spinner.Model
	list    list.Model
	items   []model.Item

	// Inline add / edit share one text input.
	mode    mode
	ti      textinput.Model
	editID  string
	formErr string

	notice    string
	noticeSeq int

	width, height int
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	t := ui.Current()
	box := t.Muted.Render(t.BoxUnchecked)
	text := it.Text
	if it.IsComplete {
		box = t.Success.Render(t.BoxChecked)
		text = t.Done.Render(text)
	}
	if it.Text == "" {
		text = t.Muted.Render("(empty)")
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render(">") + " "
	}
	fmt.Fprintln(w, prefix+box+" "+text)
}

// New builds the model. The initial fetch is issued by Init.
func New(ctx context.Context, svc *service.TodoListService, logger *log.Logger) Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := ui.Current()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	bindings := func() []key.Binding { return []key.Binding{addBind, editBind, toggleBind, removeBind} }
	l.AdditionalShortHelpKeys = bindings
	l.AdditionalFullHelpKeys = bindings

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(t.Accent))

	m := Model{
		ctx:     ctx,
		svc:     svc,
		log:     logger,
		loading: true,
		spinner: sp,
		list:    l,
		ti:      ti,
		width:   80,
		height:  24,
	}
	m.list.Title = m.title()
	m.resize()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, svc *service.TodoListService, logger *log.Logger) error {
	p := tea.NewProgram(New(ctx, svc, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := svc.Subscribe(func(st service.State) { p.Send(stateMsg(st)) })
	defer unsubscribe()
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return loadedMsg{err: svc.Start(ctx)}
	})
}

// perform runs op off the UI loop. Success is reported through the service
// subscription; failures come back as notifications.
func (m Model) perform(a action, op func(context.Context) ([]model.Item, error)) tea.Cmd {
	ctx, logger := m.ctx, m.log
	return func() tea.Msg {
		if _, err := op(ctx); err != nil {
			logger.Debug("action failed", "action", a, "err", err)
			return opErrMsg{action: a, err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		if msg.err != nil {
			return m.notify(actionLoad, msg.err)
		}
		m.loading = false
		cmd := m.setItems(m.svc.Items())
		return m, cmd

	case stateMsg:
		m.loading = msg.Loading
		cmd := m.setItems(msg.Items)
		return m, cmd

	case opErrMsg:
		return m.notify(msg.action, msg.err)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.loading:
			if key.Matches(msg, quitBind) {
				return m, tea.Quit
			}
			return m, nil
		case m.mode != modeBrowse:
			return m.updateInput(msg)
		case m.list.FilterState() == list.Filtering:
			// typing into the filter; keys are not commands
		default:
			if next, cmd, handled := m.updateBrowse(msg); handled {
				return next, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, quitBind):
		return m, tea.Quit, true
	case key.Matches(msg, addBind):
		m.mode = modeAdding
		m.formErr = ""
		m.ti.SetValue("")
		m.ti.Placeholder = "New item text..."
		m.resize()
		cmd := m.ti.Focus()
		return m, cmd, true
	case key.Matches(msg, editBind):
		it, ok := m.selected()
		if !ok {
			return m, nil, true
		}
		m.mode = modeEditing
		m.editID = it.ID
		m.formErr = ""
		m.ti.SetValue(it.Text)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit item text..."
		m.resize()
		cmd := m.ti.Focus()
		return m, cmd, true
	case key.Matches(msg, toggleBind):
		it, ok := m.selected()
		if !ok {
			return m, nil, true
		}
		svc := m.svc
		return m, m.perform(actionToggle, func(ctx context.Context) ([]model.Item, error) {
			return svc.ToggleComplete(ctx, it)
		}), true
	case key.Matches(msg, removeBind):
		it, ok := m.selected()
		if !ok {
			return m, nil, true
		}
		svc := m.svc
		return m, m.perform(actionRemove, func(ctx context.Context) ([]model.Item, error) {
			return svc.Remove(ctx, it)
		}), true
	}
	return m, nil, false
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeInput(), nil
	case "enter":
		text, err := validateText(m.ti.Value())
		if err != "" {
			m.formErr = err
			return m, nil
		}
		svc := m.svc
		if m.mode == modeAdding {
			m = m.closeInput()
			return m, m.perform(actionCreate, func(ctx context.Context) ([]model.Item, error) {
				return svc.Create(ctx, model.CreateInput{Text: text})
			})
		}
		id := m.editID
		it, ok := model.Find(m.items, id)
		m = m.closeInput()
		if !ok {
			return m.notify(actionSave, fmt.Errorf("item %s is gone", id))
		}
		return m, m.perform(actionSave, func(ctx context.Context) ([]model.Item, error) {
			return svc.UpdateText(ctx, it, text)
		})
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	if m.formErr != "" {
		_, m.formErr = validateText(m.ti.Value())
	}
	return m, cmd
}

// validateText returns the trimmed text, or a message when it is unusable.
func validateText(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "Text cannot be empty"
	}
	return s, ""
}

func (m Model) closeInput() Model {
	m.mode = modeBrowse
	m.ti.SetValue("")
	m.ti.Blur()
	m.formErr = ""
	m.resize()
	return m
}

func (m Model) notify(a action, err error) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = fmt.Sprintf("Could not %s item: %v", a, err)
	if a == actionLoad {
		m.notice = fmt.Sprintf("Could not load items: %v", err)
	}
	seq := m.noticeSeq
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

func (m *Model) setItems(items []model.Item) tea.Cmd {
	m.items = items
	li := make([]list.Item, 0, len(items))
	for _, it := range items {
		li = append(li, listItem{it})
	}
	idx := m.list.Index()
	cmd := m.list.SetItems(li)
	if idx >= len(li) {
		idx = len(li) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = m.title()
	return cmd
}

func (m Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return it.Item, true
}

// title renders the header with live counts
func (m Model) title() string {
	t := ui.Current()
	d, p := model.Stats(m.items)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), d,
		t.Pending.Render(t.SymPending), p,
		t.Accent.Render("Total"), len(m.items),
	)
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != modeBrowse {
		h -= 3
	}
	if m.notice != "" {
		h--
	}
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) View() string {
	t := ui.Current()
	if m.loading {
		body := m.spinner.View() + " Loading todos..."
		if m.notice != "" {
			body += "\n" + t.Error.Render(m.notice)
		}
		return ui.PanelString([]string{body})
	}

	content := m.list.View()
	if m.mode != modeBrowse {
		bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.BorderColor).Padding(0, 1)
		title := "Add new item"
		if m.mode == modeEditing {
			title = "Edit item"
		}
		if m.formErr != "" {
			title += " - " + t.Error.Render(m.formErr)
		}
		content += "\n" + bar.Render(title+"\n"+m.ti.View())
	}
	if m.notice != "" {
		content += "\n" + t.Error.Render(t.SymFail+" "+m.notice)
	}
	return ui.PanelString([]string{content})
}
