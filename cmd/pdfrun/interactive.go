package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	report   *Report
	cancel   context.CancelFunc
	input    string
	spinner  spinner.Model
	progress progress.Model
	fetched  int64
	size     int64
	steps    int
	stage    stage
	done     bool
}

type progressMsg progressEvent

type doneMsg struct {
	err    error
	report *Report
}

func newInteractiveModel(input string, cancel context.CancelFunc) *interactiveModel {
	return &interactiveModel{
		input:    input,
		cancel:   cancel,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(stageStyle)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		stage:    stageOpen,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
		}

	case progressMsg:
		m.stage = msg.stage
		switch msg.stage {
		case stageDownload:
			m.fetched, m.size = msg.done, msg.total
			if m.size > 0 {
				return m, m.progress.SetPercent(float64(m.fetched) / float64(m.size))
			}
		case stageRender:
			m.steps = int(msg.done)
		}

	case doneMsg:
		m.done = true
		m.err = msg.err
		m.report = msg.report
		m.stage = stageDone
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("PDF Runner"))
	b.WriteString(" ")
	b.WriteString(m.input)
	b.WriteString("\n\n")

	if m.size > 0 {
		b.WriteString(m.progress.View())
		fmt.Fprintf(&b, " %d / %d bytes\n\n", m.fetched, m.size)
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.done:
		r := m.report
		b.WriteString(resultStyle.Render(fmt.Sprintf("%d pages, %s", r.Pages, r.Linearization)))
		b.WriteString("\n")
		if r.Render != nil {
			b.WriteString(resultStyle.Render(fmt.Sprintf("page %d rendered %dx%d in %d steps (%s)",
				r.Page.Index, r.Render.Width, r.Render.Height, r.Render.Steps, r.Render.Status)))
			b.WriteString("\n")
		}
	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(stageStyle.Render(m.stage.String()))
		if m.stage == stageRender {
			fmt.Fprintf(&b, " (step %d)", m.steps)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q cancel"))
	}

	return b.String()
}

func runInteractive(ctx context.Context, cfg Config) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newInteractiveModel(cfg.Input, cancel))
	go func() {
		rep, err := run(ctx, cfg, func(ev progressEvent) { p.Send(progressMsg(ev)) })
		p.Send(doneMsg{report: rep, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(*interactiveModel)
	if !m.done {
		return nil, ctx.Err()
	}
	return m.report, m.err
}
