package tui

import (
	"context"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/api"
	"civicdesk/internal/apitest"
	"civicdesk/internal/audit"
	"civicdesk/internal/browser"
	"civicdesk/internal/entities"
	"civicdesk/internal/export"
	"civicdesk/internal/infra/blob/memory"
	"civicdesk/internal/query"
	"civicdesk/pkg/domain"
	"civicdesk/pkg/session"
)

func newPage(t *testing.T) (*apitest.Server, browser.View, Page) {
	t.Helper()
	srv := apitest.NewServer(t)
	srv.Register("youth", "youth")
	srv.Seed(t, "youth",
		domain.Youth{ID: 1, Firstname: "Ana", Lastname: "Diaz"},
		domain.Youth{ID: 2, Firstname: "Maria", Lastname: "Cruz", InSchoolYouth: true},
		domain.Youth{ID: 3, Firstname: "Maria", Lastname: "abad", InSchoolYouth: true},
	)
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	pool := query.NewPool()
	worker := export.NewWorker(memory.New())
	worker.Start()
	e, ok := entities.Lookup("youth")
	require.True(t, ok)
	v, err := e.Open(browser.Deps{Client: client, Pool: pool, Exporter: worker, Audit: audit.NewMemory()})
	require.NoError(t, err)

	ctx := session.WithUser(context.Background(), session.User{Name: "secretary"})
	require.NoError(t, v.Load(ctx))
	p := New(ctx, v)
	t.Cleanup(func() {
		p.Close()
		v.Close()
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, worker.Stop(stopCtx))
		require.NoError(t, pool.Close(stopCtx))
	})
	return srv, v, p
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func press(p Page, keys ...string) (Page, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = p.Update(keyMsg(k))
		p = next.(Page)
	}
	return p, cmd
}

// run executes cmd and feeds its message back into the page.
func run(t *testing.T, p Page, cmd tea.Cmd) Page {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := p.Update(cmd())
	return next.(Page)
}

func TestSearchNarrowsRows(t *testing.T) {
	_, v, p := newPage(t)
	require.Equal(t, []int64{1, 2, 3}, p.ids)

	p, _ = press(p, "/", "maria", "enter")
	require.False(t, p.searchFocused)
	require.Equal(t, "maria", v.Query())
	require.Equal(t, []int64{2, 3}, p.ids)
	require.Contains(t, p.View(), "Showing 2 of 3")

	p, _ = press(p, "esc")
	require.Equal(t, "", v.Query())
	require.Equal(t, []int64{1, 2, 3}, p.ids)
}

func TestTabCyclesCriteria(t *testing.T) {
	_, v, p := newPage(t)

	p, _ = press(p, "tab")
	require.Equal(t, "Alphabetical", v.Criterion())
	require.Equal(t, []int64{3, 2, 1}, p.ids)
	require.Contains(t, p.View(), "Alphabetical")

	p, _ = press(p, "shift+tab")
	require.Equal(t, "", v.Criterion())
	require.Equal(t, []int64{1, 2, 3}, p.ids)

	p, _ = press(p, "shift+tab")
	names := v.Criteria()
	require.Equal(t, names[len(names)-1], v.Criterion())
}

func TestSelectionKeys(t *testing.T) {
	_, v, p := newPage(t)

	p, _ = press(p, " ")
	require.Equal(t, []int64{1}, v.Selected())
	require.Equal(t, "x", p.table.Rows()[0][0])
	require.Equal(t, "[-]", p.table.Columns()[0].Title)

	p, _ = press(p, "a")
	require.Equal(t, []int64{1, 2, 3}, v.Selected())
	require.Equal(t, "[x]", p.table.Columns()[0].Title)

	p, _ = press(p, "c")
	require.Empty(t, v.Selected())
	require.Equal(t, "[ ]", p.table.Columns()[0].Title)
}

func TestDeleteAsksBeforeSending(t *testing.T) {
	srv, v, p := newPage(t)

	p, cmd := press(p, "d")
	require.Nil(t, cmd)
	require.Contains(t, p.View(), "Nothing selected")

	p, _ = press(p, "a", "d")
	require.Contains(t, p.View(), "Delete 3 selected record(s)? [y/N]")
	p, cmd = press(p, "n")
	require.Nil(t, cmd)
	require.Contains(t, p.View(), "Cancelled")
	require.Zero(t, srv.CountRequests(http.MethodDelete, "/youth"))

	p, cmd = press(p, "d", "y")
	p = run(t, p, cmd)
	require.Equal(t, 1, srv.CountRequests(http.MethodDelete, "/youth"))
	require.Contains(t, p.View(), "Deleted 3 record(s)")
	require.Empty(t, p.ids)
	require.Empty(t, v.Selected())
}

func TestDeleteFailureKeepsSelection(t *testing.T) {
	srv, v, p := newPage(t)
	srv.FailNext(http.MethodDelete, "youth", http.StatusConflict, "records are referenced by a household")

	p, cmd := press(p, " ", "d", "y")
	p = run(t, p, cmd)
	view := p.View()
	require.Contains(t, view, "records are referenced by a household")
	require.Contains(t, view, "selection kept")
	require.Equal(t, []int64{1}, v.Selected())
}

func TestExportConfirmsAndReports(t *testing.T) {
	_, _, p := newPage(t)
	timeNow = func() time.Time { return time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = time.Now })

	p, _ = press(p, "/", "maria", "enter", "e")
	require.Contains(t, p.View(), "Export 2 record(s) to youth-2024-06-01.csv? [y/N]")

	p, cmd := press(p, "y")
	p = run(t, p, cmd)
	require.Contains(t, p.View(), "Exported 2 record(s) to memory:youth-")
}

func TestExportOfEmptyViewIsRefused(t *testing.T) {
	_, _, p := newPage(t)
	p, cmd := press(p, "/", "nobody", "enter", "e")
	require.Nil(t, cmd)
	require.Equal(t, pendingNone, p.pending)
	require.Contains(t, p.View(), "No records to export")
}

func TestDescribeExportError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{export.ErrNoRecords, "No records to export"},
		{export.ErrDeclined, "Export cancelled"},
		{&export.StageError{Stage: export.StageSerialize, Err: errString("bad value")}, "Could not prepare the export: bad value"},
		{&export.StageError{Stage: export.StageWrite, Err: errString("disk full")}, "Could not save the export: disk full"},
		{api.ErrUnreachable, "Export failed: " + api.ErrUnreachable.Error()},
	}
	for _, c := range cases {
		require.Equal(t, c.want, describeExportError(c.err))
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestChangesFromOutsideResync(t *testing.T) {
	_, v, p := newPage(t)
	v.SelectAll()

	next, cmd := p.Update(p.waitForChange()())
	p = next.(Page)
	require.NotNil(t, cmd, "the page keeps listening")
	for _, row := range p.table.Rows() {
		require.Equal(t, "x", row[0])
	}
}

func TestQuitStopsListening(t *testing.T) {
	_, _, p := newPage(t)
	p, cmd := press(p, "q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
	require.Equal(t, "", p.View())
	require.Nil(t, p.waitForChange()())
}
