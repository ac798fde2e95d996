package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/mikeboe/agentsmith/pkg/chat"
)

// stateChangedMsg is sent by the store hooks after every mutation.
type stateChangedMsg struct{}

type commandDoneMsg struct {
	cmd     Command
	outcome Outcome
	err     error
}

// Model is the bubbletea model for the interactive chat. It keeps no
// conversation state of its own; everything is read from the stores.
type Model struct {
	app *App
	ctx context.Context

	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer
	view      View

	status string
	width  int
	height int
	ready  bool
}

func NewModel(ctx context.Context, app *App) Model {
	ti := textinput.New()
	ti.Placeholder = Placeholder(app.Chat.UseRAG())
	ti.Prompt = "› "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		app:       app,
		ctx:       ctx,
		textinput: ti,
		spinner:   sp,
		view:      NewView(DefaultStyles()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.refreshDocuments(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}
		m.textinput, tiCmd = m.textinput.Update(msg)
		return m, tiCmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		if m.app.Chat.Loading() {
			m.syncContent()
		}
		return m, spCmd

	case stateChangedMsg:
		m.textinput.Placeholder = Placeholder(m.app.Chat.UseRAG())
		m.syncContent()

	case commandDoneMsg:
		if msg.outcome.Quit {
			return m, tea.Quit
		}
		m.status = statusFor(msg)
		m.syncContent()
	}

	m.textinput, tiCmd = m.textinput.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := m.textinput.Value()
	if strings.TrimSpace(input) == "" {
		return m, nil
	}

	cmd, err := ParseCommand(input)
	if err != nil {
		m.status = "❌ " + err.Error()
		return m, nil
	}
	if cmd.Kind == CmdQuit {
		return m, tea.Quit
	}
	// The store rejects a second send anyway; keep the text for later.
	if cmd.Kind == CmdSend && m.app.Chat.Loading() {
		return m, nil
	}

	m.textinput.Reset()
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, m.execute(cmd))
}

// execute runs the command off the event loop; store hooks would deadlock
// if they fired inside Update.
func (m Model) execute(cmd Command) tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		outcome, err := app.Execute(ctx, cmd)
		return commandDoneMsg{cmd: cmd, outcome: outcome, err: err}
	}
}

func (m Model) refreshDocuments() tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		app.Docs.Refresh(ctx)
		return stateChangedMsg{}
	}
}

// statusFor picks the one-line status for a finished command. Failures the
// stores already show in the transcript are not repeated.
func statusFor(msg commandDoneMsg) string {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, chat.ErrEmptyMessage), errors.Is(msg.err, chat.ErrSendInFlight):
			return ""
		case msg.cmd.Kind == CmdSend, msg.cmd.Kind == CmdUpload, msg.cmd.Kind == CmdClearDocs:
			return ""
		}
		return "❌ " + msg.err.Error()
	}
	return msg.outcome.Output
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 2
	controlsHeight := 4
	inputHeight := 3
	statusHeight := 1
	vpHeight := height - headerHeight - controlsHeight - inputHeight - statusHeight
	if h := strings.Count(m.status, "\n"); h > 0 {
		vpHeight -= h
	}
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.textinput.Width = width - 6

	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	); err == nil {
		m.renderer = r
	}
	m.view.Markdown = m.renderMarkdown
	m.syncContent()
}

func (m Model) renderMarkdown(s string) string {
	if m.renderer == nil {
		return s
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

func (m *Model) syncContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.view.RenderTranscript(m.app.Chat.State(), m.spinner.View()+" thinking"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Starting AgentSmith..."
	}

	header := m.view.Styles.Header.Render("AgentSmith") + m.view.Styles.Subtle.Render("  AI Assistant with RAG · /help for commands")
	controls := m.view.RenderControls(m.app.Docs.State(), m.app.Chat.UseRAG(), m.app.Progress())

	parts := []string{header, controls, m.viewport.View()}
	if m.status != "" {
		parts = append(parts, m.view.Styles.Notice.Render(m.status))
	}
	parts = append(parts, m.view.Styles.Input.Width(max(m.width-2, 10)).Render(m.textinput.View()))
	return strings.Join(parts, "\n")
}
