package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"civicdesk/internal/api"
	"civicdesk/internal/browser"
	"civicdesk/internal/export"
	"civicdesk/internal/selection"
)

const maxColumnWidth = 28

// pending is an action waiting for a y/n answer.
type pending int

const (
	pendingNone pending = iota
	pendingDelete
	pendingExport
)

type changedMsg struct{}

type loadedMsg struct{ err error }

type deletedMsg struct {
	n   int
	err error
}

type exportedMsg struct {
	job export.Job
	err error
}

var timeNow = time.Now

// Page is the browser page for one entity collection.
type Page struct {
	ctx     context.Context
	view    browser.View
	changes chan struct{}
	done    chan struct{}
	stop    func()
	once    *sync.Once

	width  int
	height int
	table  table.Model
	ids    []int64
	idCol  int

	search        textinput.Model
	searchFocused bool
	criteria      []string
	criterion     int // index into criteria, -1 when none is active

	pending  pending
	notice   string
	failure  string
	quitting bool
	styles   Styles
}

// New builds a page over v. The page listens for view changes until Close.
func New(ctx context.Context, v browser.View) Page {
	columns := v.Columns()
	idCol := 0
	for i, c := range columns {
		if c == "ID" {
			idCol = i
			break
		}
	}

	t := table.New(
		table.WithColumns(columnsFor(columns, nil, selection.None)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	si := textinput.New()
	si.Placeholder = "Search by name..."
	si.CharLimit = 80
	si.Width = 40

	p := Page{
		ctx:       ctx,
		view:      v,
		changes:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		once:      &sync.Once{},
		table:     t,
		idCol:     idCol,
		search:    si,
		criteria:  v.Criteria(),
		criterion: -1,
		styles:    DefaultStyles(),
	}
	for i, name := range p.criteria {
		if name == v.Criterion() {
			p.criterion = i
		}
	}
	changes := p.changes
	p.stop = v.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	p.sync()
	return p
}

// Init loads the collection and starts listening for changes.
func (p Page) Init() tea.Cmd {
	return tea.Batch(p.load(), p.waitForChange())
}

// Close stops listening for view changes. The view itself stays open.
func (p Page) Close() {
	p.once.Do(func() {
		p.stop()
		close(p.done)
	})
}

func (p Page) load() tea.Cmd {
	return func() tea.Msg {
		err := p.view.Load(p.ctx)
		if err == nil {
			p.view.Watch()
		}
		return loadedMsg{err: err}
	}
}

func (p Page) refresh() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: p.view.Refresh(p.ctx)}
	}
}

func (p Page) deleteSelected() tea.Cmd {
	return func() tea.Msg {
		n, err := p.view.DeleteSelected(p.ctx)
		return deletedMsg{n: n, err: err}
	}
}

func (p Page) exportVisible() tea.Cmd {
	return func() tea.Msg {
		job, err := p.view.Export(p.ctx, "")
		return exportedMsg{job: job, err: err}
	}
}

func (p Page) waitForChange() tea.Cmd {
	changes, done := p.changes, p.done
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

// Update handles messages.
func (p Page) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.SetSize(msg.Width, msg.Height)
		return p, nil
	case changedMsg:
		p.sync()
		return p, p.waitForChange()
	case loadedMsg:
		p.failure = ""
		if msg.err != nil {
			p.failure = "Could not load records: " + api.Message(msg.err)
		}
		p.sync()
		return p, nil
	case deletedMsg:
		if msg.err != nil {
			p.notice, p.failure = "", "Delete failed: "+api.Message(msg.err)+" (selection kept)"
		} else {
			p.notice, p.failure = fmt.Sprintf("Deleted %d record(s)", msg.n), ""
		}
		p.sync()
		return p, nil
	case exportedMsg:
		if msg.err != nil {
			p.notice, p.failure = "", describeExportError(msg.err)
		} else {
			p.notice, p.failure = exportNotice(msg.job), ""
		}
		return p, nil
	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return p, cmd
}

func (p Page) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return p.quit()
	}
	if p.pending != pendingNone {
		return p.answer(key)
	}

	if p.searchFocused {
		switch key {
		case "enter", "esc":
			p.searchFocused = false
			p.search.Blur()
			return p, nil
		}
		var cmd tea.Cmd
		p.search, cmd = p.search.Update(msg)
		p.view.SetQuery(p.search.Value())
		p.sync()
		return p, cmd
	}

	switch key {
	case "q":
		return p.quit()
	case "/":
		p.searchFocused = true
		return p, p.search.Focus()
	case "esc":
		p.search.SetValue("")
		p.view.SetQuery("")
		p.sync()
		return p, nil
	case "tab":
		p.cycle(1)
		return p, nil
	case "shift+tab":
		p.cycle(-1)
		return p, nil
	case " ", "space":
		if c := p.table.Cursor(); c >= 0 && c < len(p.ids) {
			p.view.Toggle(p.ids[c])
		}
		p.sync()
		return p, nil
	case "a":
		p.view.SelectAll()
		p.sync()
		return p, nil
	case "c":
		p.view.ClearSelection()
		p.sync()
		return p, nil
	case "r":
		p.notice = ""
		return p, p.refresh()
	case "d":
		p.notice = ""
		if len(p.view.Selected()) == 0 {
			p.failure = "Nothing selected"
			return p, nil
		}
		p.failure = ""
		p.pending = pendingDelete
		return p, nil
	case "e":
		p.notice = ""
		if len(p.ids) == 0 {
			p.failure = "No records to export"
			return p, nil
		}
		p.failure = ""
		p.pending = pendingExport
		return p, nil
	}

	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return p, cmd
}

// answer resolves a pending confirmation.
func (p Page) answer(key string) (tea.Model, tea.Cmd) {
	action := p.pending
	p.pending = pendingNone
	if key != "y" && key != "Y" {
		p.notice = "Cancelled"
		return p, nil
	}
	switch action {
	case pendingDelete:
		return p, p.deleteSelected()
	case pendingExport:
		return p, p.exportVisible()
	}
	return p, nil
}

func (p Page) quit() (tea.Model, tea.Cmd) {
	p.quitting = true
	p.Close()
	return p, tea.Quit
}

// cycle moves the active criterion by step, passing through "none".
func (p *Page) cycle(step int) {
	n := len(p.criteria) + 1
	next := ((p.criterion+1+step)%n+n)%n - 1
	p.criterion = next
	if next < 0 {
		p.view.SetCriterion("")
	} else {
		p.view.SetCriterion(p.criteria[next])
	}
	p.sync()
}

// sync copies the view into the table.
func (p *Page) sync() {
	cells := p.view.Rows()
	selected := make(map[int64]bool)
	for _, id := range p.view.Selected() {
		selected[id] = true
	}
	ids := make([]int64, len(cells))
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		if p.idCol < len(c) {
			ids[i], _ = strconv.ParseInt(c[p.idCol], 10, 64)
		}
		mark := " "
		if selected[ids[i]] {
			mark = "x"
		}
		rows[i] = append(table.Row{mark}, c...)
	}
	p.ids = ids
	p.table.SetColumns(columnsFor(p.view.Columns(), cells, p.view.Header()))
	p.table.SetRows(rows)
	if c := p.table.Cursor(); c >= len(rows) {
		p.table.SetCursor(max(len(rows)-1, 0))
	}
}

func columnsFor(names []string, cells [][]string, header selection.HeaderState) []table.Column {
	mark := "[ ]"
	switch header {
	case selection.Partial:
		mark = "[-]"
	case selection.All:
		mark = "[x]"
	}
	cols := make([]table.Column, 0, len(names)+1)
	cols = append(cols, table.Column{Title: mark, Width: 3})
	for i, name := range names {
		w := len(name)
		for _, row := range cells {
			if i < len(row) && len(row[i]) > w {
				w = len(row[i])
			}
		}
		cols = append(cols, table.Column{Title: name, Width: min(max(w, 3), maxColumnWidth)})
	}
	return cols
}

// SetSize updates the size.
func (p *Page) SetSize(w, h int) {
	p.width = w
	p.height = h
	p.table.SetWidth(w - 4)
	p.table.SetHeight(max(h-12, 3))
}

// View renders the page.
func (p Page) View() string {
	if p.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(p.styles.Header.Render(" "+p.view.Title()+" ") + "\n\n")
	if s := p.renderSummary(); s != "" {
		sb.WriteString(s + "\n\n")
	}
	sb.WriteString(p.renderFilterBar() + "\n\n")
	sb.WriteString(p.styles.Content.Render(p.table.View()) + "\n")
	sb.WriteString(p.renderStatus())
	return sb.String()
}

func (p Page) renderSummary() string {
	metrics := p.view.Summary()
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		parts = append(parts, p.styles.Label.Render(m.Label+" ")+p.styles.Metric.Render(m.Value))
	}
	return strings.Join(parts, "   ")
}

func (p Page) renderFilterBar() string {
	var sb strings.Builder
	input := p.styles.Input
	if p.searchFocused {
		input = p.styles.Focused
	}
	sb.WriteString(input.Render(p.search.View()))
	sb.WriteString("  ")

	label := "All records"
	if p.criterion >= 0 {
		label = p.criteria[p.criterion]
	}
	sb.WriteString(p.styles.Muted.Render("Criterion: "))
	sb.WriteString(p.styles.Active.Render(label))
	return sb.String()
}

func (p Page) renderStatus() string {
	st := p.view.Status()
	var lines []string

	counts := fmt.Sprintf("Showing %d of %d  |  %d selected", st.Visible, st.Total, st.Selected)
	switch {
	case st.Loading:
		counts = "Loading records..."
	case st.Fetching:
		counts += "  |  refreshing"
	}
	lines = append(lines, p.styles.Muted.Render(counts))

	switch {
	case p.pending == pendingDelete:
		lines = append(lines, p.styles.Prompt.Render(fmt.Sprintf("Delete %d selected record(s)? [y/N]", st.Selected)))
	case p.pending == pendingExport:
		lines = append(lines, p.styles.Prompt.Render(fmt.Sprintf("Export %d record(s) to %s? [y/N]",
			st.Visible, export.FileName(string(p.view.Entity()), timeNow()))))
	case p.failure != "":
		lines = append(lines, p.styles.Error.Render(p.failure))
	case st.Err != nil:
		lines = append(lines, p.styles.Error.Render("Showing saved data: "+api.Message(st.Err)))
	case p.notice != "":
		lines = append(lines, p.styles.Success.Render(p.notice))
	}

	lines = append(lines, p.styles.Muted.Render(
		"[/] Search  [Tab] Criterion  [Space] Select  [a] All  [c] Clear  [d] Delete  [e] Export  [r] Refresh  [q] Quit"))
	return strings.Join(lines, "\n")
}

func exportNotice(job export.Job) string {
	where := job.Info.Location
	if where == "" {
		where = job.Key
	}
	msg := fmt.Sprintf("Exported %d record(s) to %s", job.Rows, where)
	if job.Info.Replaced {
		msg += " (replaced existing file)"
	}
	return msg
}

func describeExportError(err error) string {
	switch {
	case errors.Is(err, export.ErrNoRecords):
		return "No records to export"
	case errors.Is(err, export.ErrDeclined):
		return "Export cancelled"
	}
	var se *export.StageError
	if errors.As(err, &se) {
		switch se.Stage {
		case export.StageSerialize:
			return "Could not prepare the export: " + se.Err.Error()
		case export.StageWrite:
			return "Could not save the export: " + se.Err.Error()
		}
	}
	return "Export failed: " + api.Message(err)
}
