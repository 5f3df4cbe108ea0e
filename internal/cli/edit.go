package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/procflow/procflow/pkg/editor"
	"github.com/procflow/procflow/pkg/table"
)

// editCommand creates the edit command that opens the interactive editor.
func (c *CLI) editCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "edit [table.json|table.csv]",
		Short: "Edit a process interactively",
		Long: `Edit a process interactively.

The editor shows the step table alongside the generated notation text,
flowchart markup and XML, all kept consistent while you edit. Pressing
'e' opens the notation text in $EDITOR; a malformed edit is reported
without losing the last consistent state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "save path (default: input file, as JSON)")

	return cmd
}

func (c *CLI) runEdit(input, output string) error {
	rows, err := loadRows(input)
	if err != nil {
		return fmt.Errorf("load table %s: %w", input, err)
	}

	if output == "" {
		output = input
		if strings.HasSuffix(strings.ToLower(input), ".csv") {
			output = input[:len(input)-len(".csv")] + ".json"
		}
	}

	session := editor.NewSession(editor.Options{Logger: c.Logger})
	if _, err := session.ApplyTable(rows); err != nil {
		return err
	}

	m := newEditModel(session, output)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// editView selects which representation fills the body pane.
type editView int

const (
	viewTable editView = iota
	viewText
	viewMermaid
	viewXML
	viewCount
)

var viewNames = [viewCount]string{"Table", "Text", "Flowchart", "XML"}

// editorFinishedMsg is delivered when the external $EDITOR exits.
type editorFinishedMsg struct {
	tmpPath string
	err     error
}

// editModel is the bubbletea model for the interactive editor.
type editModel struct {
	session  *editor.Session
	savePath string

	view   editView
	cursor int
	status string
	failed bool
	height int
}

func newEditModel(session *editor.Session, savePath string) editModel {
	return editModel{
		session:  session,
		savePath: savePath,
		status:   "ready",
		height:   24,
	}
}

func (m editModel) Init() tea.Cmd {
	return nil
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.view = (m.view + 1) % viewCount
		case "shift+tab", "left", "h":
			m.view = (m.view + viewCount - 1) % viewCount
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.session.Snapshot().Rows)-1 {
				m.cursor++
			}
		case "e":
			return m, m.openExternalEditor()
		case "s":
			m.status, m.failed = m.save()
		}
	case editorFinishedMsg:
		m.status, m.failed = m.applyEdited(msg)
		if m.cursor >= len(m.session.Snapshot().Rows) {
			m.cursor = 0
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height
	}
	return m, nil
}

// openExternalEditor writes the current notation text to a temp file and
// hands the terminal to $EDITOR.
func (m editModel) openExternalEditor() tea.Cmd {
	ed := os.Getenv("EDITOR")
	if ed == "" {
		ed = "vi"
	}

	tmp, err := os.CreateTemp("", "procflow-*.dot")
	if err != nil {
		return func() tea.Msg { return editorFinishedMsg{err: err} }
	}
	path := tmp.Name()
	if _, err := tmp.WriteString(m.session.Snapshot().Text); err != nil {
		tmp.Close()
		os.Remove(path)
		return func() tea.Msg { return editorFinishedMsg{err: err} }
	}
	tmp.Close()

	cmd := exec.Command(ed, path)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{tmpPath: path, err: err}
	})
}

// applyEdited reads the edited temp file back and applies it through the
// session. A parse failure keeps the previous snapshot and is reported
// in the status line.
func (m editModel) applyEdited(msg editorFinishedMsg) (string, bool) {
	if msg.tmpPath != "" {
		defer os.Remove(msg.tmpPath)
	}
	if msg.err != nil {
		return fmt.Sprintf("editor failed: %v", msg.err), true
	}

	data, err := os.ReadFile(msg.tmpPath)
	if err != nil {
		return fmt.Sprintf("read edit: %v", err), true
	}

	snap, err := m.session.ApplyText(string(data))
	if err != nil {
		return fmt.Sprintf("rejected: %v (previous state kept)", err), true
	}
	if len(snap.Warnings) > 0 {
		return fmt.Sprintf("applied with %d repair(s)", len(snap.Warnings)), false
	}
	return fmt.Sprintf("applied, %d steps", len(snap.Rows)), false
}

// save writes the current rows to the save path.
func (m editModel) save() (string, bool) {
	f, err := os.Create(m.savePath)
	if err != nil {
		return fmt.Sprintf("save failed: %v", err), true
	}
	defer f.Close()
	if err := table.WriteJSON(m.session.Snapshot().Rows, f); err != nil {
		return fmt.Sprintf("save failed: %v", err), true
	}
	return "saved " + m.savePath, false
}

func (m editModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("procflow edit"))
	b.WriteString("  ")
	for v := editView(0); v < viewCount; v++ {
		name := viewNames[v]
		if v == m.view {
			b.WriteString(StyleValue.Render("[" + name + "]"))
		} else {
			b.WriteString(StyleDim.Render(" " + name + " "))
		}
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("tab switch view  ↑/↓ navigate  e edit text  s save  q quit"))
	b.WriteString("\n\n")

	switch m.view {
	case viewTable:
		b.WriteString(m.tableView())
	case viewText:
		b.WriteString(m.session.Snapshot().Text)
	case viewMermaid:
		b.WriteString(m.session.Snapshot().Mermaid)
	case viewXML:
		b.WriteString(m.session.Snapshot().XML)
	}

	b.WriteString("\n\n")
	if m.failed {
		b.WriteString(StyleError.Render(iconError + " " + m.status))
	} else {
		b.WriteString(StyleDim.Render(iconInfo + " " + m.status))
	}

	return b.String()
}

func (m editModel) tableView() string {
	snap := m.session.Snapshot()

	rows := [][]string{}
	for i, r := range snap.Rows {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		branch := ""
		if r.Type == table.RowConditional {
			branch = fmt.Sprintf("%s → oui %s / non %s", r.Condition, orDash(r.Yes), orDash(r.No))
		} else {
			branch = iconArrow + " " + orDash(r.Yes)
		}
		rows = append(rows, []string{cursor, r.ID, r.Service, r.Task, branch})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Service", "Task", "Next").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row == m.cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	out := t.Render()
	for _, w := range snap.Warnings {
		out += "\n" + StyleWarning.Render(iconWarning+" "+w.String())
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "fin"
	}
	return s
}
