package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Aman-CERP/ancheck/internal/search"
)

// PickerHost is what the picker needs from the application.
type PickerHost interface {
	SearchN(ctx context.Context, query string, limit int) ([]*search.SearchResult, error)
	EvalMath(query string) (string, bool)
	LaunchFile(ctx context.Context, path string) error
	OpenContainingFolder(path string) error
}

// PickerOptions configures Run.
type PickerOptions struct {
	Limit     int
	NoColor   bool
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// PickerOutcome reports what the user chose before the picker exited.
type PickerOutcome struct {
	Action string // "launch", "reveal" or empty when cancelled
	Path   string
}

type searchResultsMsg struct {
	seq     int
	results []*search.SearchResult
	err     error
}

type actionDoneMsg struct {
	action string
	path   string
	err    error
}

type pickerModel struct {
	ctx   context.Context
	host  PickerHost
	limit int

	input   textinput.Model
	styles  Styles
	width   int
	seq     int
	results []*search.SearchResult
	math    string
	cursor  int
	status  string
	outcome PickerOutcome
	done    bool
}

func newPickerModel(ctx context.Context, host PickerHost, opts PickerOptions) *pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Type to search files, apps or 2+2"
	ti.Prompt = "› "
	ti.CharLimit = 256
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	styles := GetStyles(opts.NoColor || DetectNoColor())
	ti.PromptStyle = styles.Prompt

	limit := opts.Limit
	if limit <= 0 {
		limit = search.DefaultMaxResults
	}

	return &pickerModel{
		ctx:    ctx,
		host:   host,
		limit:  limit,
		input:  ti,
		styles: styles,
		width:  80,
	}
}

// Init implements tea.Model.
func (m *pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case searchResultsMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.status = msg.err.Error()
			m.results = nil
		} else {
			m.status = ""
			m.results = msg.results
		}
		m.cursor = 0
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.outcome = PickerOutcome{Action: msg.action, Path: msg.path}
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			return m, m.act("launch")
		case "ctrl+o":
			return m, m.act("reveal")
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.query(m.input.Value()))
}

// query evaluates math inline and returns the search command. Each query
// bumps seq so results for an older query are dropped on arrival.
func (m *pickerModel) query(q string) tea.Cmd {
	m.seq++
	seq := m.seq

	m.math = ""
	if result, ok := m.host.EvalMath(q); ok {
		m.math = result
	}

	if strings.TrimSpace(q) == "" {
		m.results = nil
		m.cursor = 0
		m.status = ""
		return nil
	}

	ctx, host, limit := m.ctx, m.host, m.limit
	return func() tea.Msg {
		results, err := host.SearchN(ctx, q, limit)
		return searchResultsMsg{seq: seq, results: results, err: err}
	}
}

func (m *pickerModel) act(action string) tea.Cmd {
	if m.cursor >= len(m.results) {
		return nil
	}
	path := m.results[m.cursor].Filepath
	ctx, host := m.ctx, m.host
	return func() tea.Msg {
		var err error
		if action == "reveal" {
			err = host.OpenContainingFolder(path)
		} else {
			err = host.LaunchFile(ctx, path)
		}
		return actionDoneMsg{action: action, path: path, err: err}
	}
}

// View implements tea.Model.
func (m *pickerModel) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	if m.math != "" {
		sb.WriteString(m.styles.Math.Render("= " + m.math))
		sb.WriteString("\n")
	}

	for i, r := range m.results {
		line := m.renderResult(r)
		if i == m.cursor {
			line = m.styles.Selected.Render("▸ ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(m.results) == 0 && m.math == "" && strings.TrimSpace(m.input.Value()) != "" && m.status == "" {
		sb.WriteString(m.styles.Dim.Render("No results"))
		sb.WriteString("\n")
	}
	if m.status != "" {
		sb.WriteString(m.styles.Error.Render(m.status))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Dim.Render("↑/↓ select · enter open · ctrl+o reveal · esc quit"))
	return sb.String()
}

func (m *pickerModel) renderResult(r *search.SearchResult) string {
	name := highlightRunes(r.Filename, r.MatchedIndices, m.styles)
	path := truncatePath(r.Filepath, max(m.width-len([]rune(r.Filename))-16, 20))
	return fmt.Sprintf("%s  %s %s", name, m.styles.Dim.Render(string(r.FileType)), m.styles.Path.Render(path))
}

// highlightRunes renders name with the runes at indices in the Match style.
func highlightRunes(name string, indices []int, styles Styles) string {
	if len(indices) == 0 {
		return name
	}
	marked := make(map[int]bool, len(indices))
	for _, i := range indices {
		marked[i] = true
	}

	var sb strings.Builder
	for i, r := range []rune(name) {
		if marked[i] {
			sb.WriteString(styles.Match.Render(string(r)))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// truncatePath keeps the tail of path within width runes.
func truncatePath(path string, width int) string {
	runes := []rune(path)
	if len(runes) <= width || width < 4 {
		return path
	}
	return "…" + string(runes[len(runes)-width+1:])
}

// Run starts the interactive picker and blocks until the user launches,
// reveals or cancels.
func Run(ctx context.Context, host PickerHost, opts PickerOptions) (PickerOutcome, error) {
	model := newPickerModel(ctx, host, opts)

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(model, progOpts...).Run()
	if err != nil {
		return PickerOutcome{}, fmt.Errorf("picker: %w", err)
	}
	return final.(*pickerModel).outcome, nil
}
