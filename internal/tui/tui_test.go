package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/service"
)

type failingRemove struct {
	datasource.DataSource
}

func (failingRemove) Remove(context.Context, model.Item) ([]model.Item, error) {
	return nil, errors.New("disk on fire")
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

// loaded returns a model past the loading state over src.
func loaded(t *testing.T, src datasource.DataSource) (Model, *service.TodoListService) {
	t.Helper()
	ctx := context.Background()
	svc := service.New(src)
	m := New(ctx, svc, nil)
	if !m.loading {
		t.Fatalf("new model should be loading")
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	m, _ = send(t, m, loadedMsg{})
	if m.loading {
		t.Fatalf("model still loading after fetch")
	}
	return m, svc
}

// settle runs cmd and feeds the resulting message and the service state back in.
func settle(t *testing.T, m Model, svc *service.TodoListService, cmd tea.Cmd) Model {
	t.Helper()
	if cmd != nil {
		if msg := cmd(); msg != nil {
			m, _ = send(t, m, msg)
		}
	}
	m, _ = send(t, m, stateMsg(svc.State()))
	return m
}

func TestLoadingView(t *testing.T) {
	m := New(context.Background(), service.New(datasource.NewEphemeral(datasource.Options{})), nil)
	if v := m.View(); !strings.Contains(v, "Loading todos") {
		t.Fatalf("loading view missing spinner text:\n%s", v)
	}
}

func TestLoadedShowsItems(t *testing.T) {
	m, _ := loaded(t, datasource.NewEphemeral(datasource.Options{}))
	want := datasource.NewEphemeral(datasource.Options{})
	items, _ := want.Fetch(context.Background())
	if diff := cmp.Diff(items, m.items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if got := len(m.list.Items()); got != 2 {
		t.Fatalf("expected 2 list rows, got %d", got)
	}
}

func TestLoadFailureShowsNotice(t *testing.T) {
	m := New(context.Background(), service.New(datasource.NewEphemeral(datasource.Options{})), nil)
	m, cmd := send(t, m, loadedMsg{err: errors.New("offline")})
	if !m.loading {
		t.Fatalf("failed load should keep the loading state")
	}
	if !strings.Contains(m.notice, "Could not load items: offline") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
	if cmd == nil {
		t.Fatalf("expected a clear timer")
	}
}

func TestAddCreatesItem(t *testing.T) {
	m, svc := loaded(t, datasource.NewEphemeral(datasource.Options{Seed: []model.CreateInput{}}))

	m, _ = send(t, m, runes("a"))
	if m.mode != modeAdding {
		t.Fatalf("expected adding mode")
	}
	m, _ = send(t, m, runes("buy milk"))
	m, cmd := send(t, m, enter)
	if m.mode != modeBrowse {
		t.Fatalf("input should close after submit")
	}
	m = settle(t, m, svc, cmd)

	want := []model.Item{{ID: "1", Text: "buy milk"}}
	if diff := cmp.Diff(want, m.items); diff != "" {
		t.Fatalf("add mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRejectsBlankText(t *testing.T) {
	m, svc := loaded(t, datasource.NewEphemeral(datasource.Options{Seed: []model.CreateInput{}}))

	m, _ = send(t, m, runes("a"))
	m, _ = send(t, m, runes("   "))
	m, cmd := send(t, m, enter)
	if cmd != nil {
		t.Fatalf("blank text should not reach the service")
	}
	if m.formErr != "Text cannot be empty" {
		t.Fatalf("unexpected form error %q", m.formErr)
	}
	if m.mode != modeAdding {
		t.Fatalf("input should stay open")
	}
	if got := svc.Items(); len(got) != 0 {
		t.Fatalf("expected no items, got %+v", got)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse || m.formErr != "" {
		t.Fatalf("esc should close the input and clear the error")
	}
}

func TestEditUpdatesText(t *testing.T) {
	m, svc := loaded(t, datasource.NewEphemeral(datasource.Options{}))

	m, _ = send(t, m, runes("e"))
	if m.mode != modeEditing || m.editID != "1" {
		t.Fatalf("expected editing item 1, got mode %d id %q", m.mode, m.editID)
	}
	m, _ = send(t, m, runes(" else"))
	m, cmd := send(t, m, enter)
	m = settle(t, m, svc, cmd)

	want := []model.Item{
		{ID: "1", Text: "something else", IsComplete: true},
		{ID: "2", Text: "Another thing"},
	}
	if diff := cmp.Diff(want, m.items); diff != "" {
		t.Fatalf("edit mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleFlipsSelected(t *testing.T) {
	m, svc := loaded(t, datasource.NewEphemeral(datasource.Options{}))

	m, cmd := send(t, m, space)
	m = settle(t, m, svc, cmd)

	if m.items[0].IsComplete {
		t.Fatalf("item 1 should be pending after toggle: %+v", m.items[0])
	}
	if m.items[1].IsComplete {
		t.Fatalf("item 2 should be untouched: %+v", m.items[1])
	}
}

func TestRemoveFailureNotifies(t *testing.T) {
	src := failingRemove{datasource.NewEphemeral(datasource.Options{})}
	m, svc := loaded(t, src)

	m, cmd := send(t, m, runes("d"))
	if cmd == nil {
		t.Fatalf("expected remove command")
	}
	m, _ = send(t, m, cmd())
	if !strings.Contains(m.notice, "Could not remove item: disk on fire") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
	if got := svc.Items(); len(got) != 2 {
		t.Fatalf("service should keep its items, got %+v", got)
	}
}

func TestNoticeClearsOnlyForLatestSeq(t *testing.T) {
	m, _ := loaded(t, datasource.NewEphemeral(datasource.Options{}))

	m, _ = send(t, m, opErrMsg{action: actionSave, err: errors.New("first")})
	m, _ = send(t, m, opErrMsg{action: actionToggle, err: errors.New("second")})

	m, _ = send(t, m, clearNoticeMsg{seq: m.noticeSeq - 1})
	if !strings.Contains(m.notice, "Could not toggle item: second") {
		t.Fatalf("stale timer cleared the notice: %q", m.notice)
	}
	m, _ = send(t, m, clearNoticeMsg{seq: m.noticeSeq})
	if m.notice != "" {
		t.Fatalf("notice not cleared: %q", m.notice)
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := loaded(t, datasource.NewEphemeral(datasource.Options{}))
	for _, k := range []tea.KeyMsg{runes("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := send(t, m, k)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected tea.QuitMsg", k)
		}
	}
}
