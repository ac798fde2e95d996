package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/mikeboe/agentsmith/pkg/chat"
	"github.com/mikeboe/agentsmith/pkg/documents"
	"golang.org/x/term"
)

// IsTerminal reports whether both files are attached to a terminal.
func IsTerminal(in, out *os.File) bool {
	return term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd()))
}

// RunInteractiveChat starts the full-screen chat.
func RunInteractiveChat(ctx context.Context, app *App) error {
	p := tea.NewProgram(NewModel(ctx, app), tea.WithAltScreen(), tea.WithContext(ctx))

	app.Chat.OnChange = func(chat.State) { p.Send(stateChangedMsg{}) }
	app.Docs.OnChange = func(documents.State) { p.Send(stateChangedMsg{}) }
	app.OnProgress = func(string) { p.Send(stateChangedMsg{}) }

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// RunREPL is the line-oriented chat used when stdin or stdout is not a
// terminal. It accepts the same commands as the full-screen chat.
func RunREPL(ctx context.Context, app *App, in io.Reader, out io.Writer) error {
	view := NewView(PlainStyles())
	fmt.Fprintln(out, view.RenderWelcome())
	fmt.Fprintln(out)

	app.Docs.Refresh(ctx)
	if state := app.Docs.State(); state.HasDocuments() {
		fmt.Fprintln(out, FormatDocuments(state))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			fmt.Fprintln(out, view.RenderError(err.Error()))
			continue
		}

		before := len(app.Chat.Turns())
		outcome, err := app.Execute(ctx, cmd)
		if outcome.Quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		printNewTurns(out, view, app.Chat.Turns(), before)
		if cmd.Kind == CmdSend && err != nil {
			if msg := app.Chat.Error(); msg != "" {
				fmt.Fprintln(out, view.RenderError(msg))
			}
		} else if err != nil && cmd.Kind != CmdUpload && cmd.Kind != CmdClearDocs {
			fmt.Fprintln(out, view.RenderError(err.Error()))
		}
		if outcome.Output != "" {
			fmt.Fprintln(out, outcome.Output)
		}
	}
}

// printNewTurns prints the assistant turns appended since the transcript
// had before turns.
func printNewTurns(out io.Writer, view View, turns []api.Turn, before int) {
	if before > len(turns) {
		before = 0
	}
	for _, t := range turns[before:] {
		if t.Role == api.RoleAssistant {
			fmt.Fprintln(out, view.RenderTurn(t))
			fmt.Fprintln(out)
		}
	}
}
