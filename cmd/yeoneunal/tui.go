package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"yeoneunal/internal/api"
	"yeoneunal/internal/workflow"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type transitionMsg workflow.Transition

type runDoneMsg struct {
	res *workflow.Result
	err error
}

// progressModel shows a spinner while a workflow run is in flight.
type progressModel struct {
	spinner     spinner.Model
	state       workflow.State
	status      api.RecordStatus
	attempt     int
	maxAttempts int
	recordID    int64
	lastErr     error
	done        bool
	aborted     bool
}

func newProgressModel(maxAttempts int) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	return progressModel{spinner: sp, state: workflow.StateIdle, maxAttempts: maxAttempts}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	case transitionMsg:
		m.state = msg.To
		if msg.RecordID > 0 {
			m.recordID = msg.RecordID
		}
		if msg.Attempt > 0 {
			m.attempt = msg.Attempt
		}
		if msg.Status != "" {
			m.status = msg.Status
		}
		m.lastErr = msg.Err
		return m, nil
	case runDoneMsg:
		m.done = true
		if msg.res != nil {
			m.state = msg.res.State
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return m.spinner.View() + " " + describeProgress(m.state, m.recordID, m.attempt, m.maxAttempts, m.status, m.lastErr) + "\n"
}

func describeProgress(state workflow.State, recordID int64, attempt, maxAttempts int, status api.RecordStatus, err error) string {
	var sb strings.Builder
	switch state {
	case workflow.StateUploading:
		sb.WriteString("Uploading recording")
	case workflow.StatePollingStatus:
		fmt.Fprintf(&sb, "Analyzing record %d", recordID)
		if attempt > 0 {
			fmt.Fprintf(&sb, " (check %d/%d", attempt, maxAttempts)
			if status != "" {
				sb.WriteString(", " + string(status))
			}
			sb.WriteString(")")
		}
	case workflow.StateFetchingReport:
		fmt.Fprintf(&sb, "Fetching report for record %d", recordID)
	default:
		sb.WriteString(string(state))
	}
	if err != nil {
		sb.WriteString(mutedStyle.Render(" last check failed, retrying"))
	}
	return sb.String()
}

// runWithSpinner executes run under a bubbletea spinner. Quitting the view
// cancels the run.
func runWithSpinner(ctx context.Context, out io.Writer, eng *workflow.Engine, run func(context.Context) (*workflow.Result, error)) (*workflow.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(eng.PollConfig().MaxAttempts), tea.WithOutput(out))
	eng.Observe(func(t workflow.Transition) {
		p.Send(transitionMsg(t))
	})

	resCh := make(chan runDoneMsg, 1)
	go func() {
		res, err := run(ctx)
		msg := runDoneMsg{res: res, err: err}
		resCh <- msg
		p.Send(msg)
	}()

	final, err := p.Run()
	if err != nil {
		logger.Debug("progress view ended early")
		cancel()
	}
	if m, ok := final.(progressModel); ok && m.aborted {
		cancel()
	}
	done := <-resCh
	return done.res, done.err
}

// textProgress prints state changes as plain lines.
func textProgress(out io.Writer, maxAttempts int) workflow.Observer {
	return func(t workflow.Transition) {
		if t.From == t.To {
			logger.Debug(describeProgress(t.To, t.RecordID, t.Attempt, maxAttempts, t.Status, t.Err))
			return
		}
		if t.To.Terminal() {
			return
		}
		fmt.Fprintln(out, mutedStyle.Render("• "+describeProgress(t.To, t.RecordID, 0, maxAttempts, "", nil)))
	}
}
