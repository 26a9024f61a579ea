// Package ui renders batch progress as an interactive terminal view.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/subsync/internal/tasks"
)

const recentLines = 8

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type progressMsg tasks.ProgressUpdate

type doneMsg struct {
	result *tasks.BatchResult
	err    error
}

// Model is the bubbletea model for a running batch.
type Model struct {
	title        string
	spinner      spinner.Model
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.BatchResult
	err          error
	finished     bool
	progressChan <-chan tasks.ProgressUpdate
	doneChan     <-chan doneMsg
	help         help.Model
	keys         keyMap
}

// NewModel creates a progress model fed by the given channels.
func NewModel(title string, progressChan <-chan tasks.ProgressUpdate, doneChan <-chan doneMsg) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		title:        title,
		spinner:      s,
		progressChan: progressChan,
		doneChan:     doneChan,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init starts the spinner and the update listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForActivity())
}

// waitForActivity produces the next progress or completion message.
func (m Model) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		select {
		case done := <-m.doneChan:
			return done
		case update, ok := <-m.progressChan:
			if !ok {
				return <-m.doneChan
			}
			return progressMsg(update)
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case progressMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if msg.Step > 0 {
			m.recent = append(m.recent, msg.Message)
			if len(m.recent) > recentLines {
				m.recent = m.recent[len(m.recent)-recentLines:]
			}
		}
		return m, m.waitForActivity()

	case doneMsg:
		m.result = msg.result
		m.err = msg.err
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.finished {
		b.WriteString(RenderSummary(m.result, m.err))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.spinner.View())
	if m.progress.Total > 0 {
		b.WriteString(countStyle.Render(fmt.Sprintf(" %d/%d ", m.progress.Step, m.progress.Total)))
	}
	b.WriteString(m.progress.Message)
	b.WriteString("\n\n")

	for _, line := range m.recent {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// RenderSummary renders the final counts for a batch, usable both from
// the TUI and the plain CLI path.
func RenderSummary(result *tasks.BatchResult, err error) string {
	if result == nil {
		if err != nil {
			return failStyle.Render(fmt.Sprintf("failed: %v", err))
		}
		return ""
	}

	parts := []string{
		successStyle.Render(fmt.Sprintf("%d succeeded", result.Succeeded)),
		skipStyle.Render(fmt.Sprintf("%d skipped", result.Skipped)),
		failStyle.Render(fmt.Sprintf("%d failed", result.Failed)),
	}

	summary := fmt.Sprintf("%s: %s (of %d)", result.Operation, strings.Join(parts, ", "), result.Total)
	if err != nil {
		summary += "\n" + failStyle.Render(fmt.Sprintf("aborted: %v", err))
	}
	return summary
}

// RunProgress drives a batch under the progress view. The run function
// receives the progress channel and executes the batch; its result and
// error are returned once the view exits. Quitting the view early does
// not cancel the batch; in-flight work completes.
func RunProgress(title string, run func(chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error)) (*tasks.BatchResult, error) {
	progressChan := make(chan tasks.ProgressUpdate, 64)
	doneChan := make(chan doneMsg, 1)

	go func() {
		result, err := run(progressChan)
		doneChan <- doneMsg{result: result, err: err}
	}()

	final, err := tea.NewProgram(NewModel(title, progressChan, doneChan)).Run()
	if err != nil {
		return nil, fmt.Errorf("progress view failed: %w", err)
	}

	model, ok := final.(Model)
	if ok && model.finished {
		return model.result, model.err
	}

	// View quit before the batch finished; wait for the batch itself.
	done := <-doneChan
	return done.result, done.err
}
