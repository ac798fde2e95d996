package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mikeboe/agentsmith/pkg/chat"
	"github.com/mikeboe/agentsmith/pkg/documents"
)

// App runs commands against the two stores. It is shared by the terminal
// UI and the line-oriented REPL.
type App struct {
	Chat   *chat.Store
	Docs   *documents.Registry
	Logger *slog.Logger

	mu       sync.Mutex
	progress string
	// OnProgress is called whenever the upload status line changes.
	OnProgress func(progress string)
}

func NewApp(store *chat.Store, registry *documents.Registry) *App {
	return &App{
		Chat:   store,
		Docs:   registry,
		Logger: slog.Default(),
	}
}

// Outcome is what a command produced besides store changes.
type Outcome struct {
	Output string
	Quit   bool
}

// Execute runs one command. Send, upload and clear-docs failures are also
// reflected in the stores.
func (a *App) Execute(ctx context.Context, cmd Command) (Outcome, error) {
	switch cmd.Kind {
	case CmdSend:
		return Outcome{}, a.Chat.Send(ctx, cmd.Arg)
	case CmdUpload:
		return Outcome{}, a.Upload(ctx, cmd.Arg)
	case CmdRAG:
		enabled := !a.Chat.UseRAG()
		switch cmd.Arg {
		case "on":
			enabled = true
		case "off":
			enabled = false
		}
		a.Chat.SetUseRAG(enabled)
		if enabled {
			return Outcome{Output: "RAG enabled"}, nil
		}
		return Outcome{Output: "RAG disabled"}, nil
	case CmdClear:
		a.Chat.Clear()
		return Outcome{Output: "Conversation cleared"}, nil
	case CmdClearDocs:
		return Outcome{}, a.ClearDocuments(ctx)
	case CmdDocs:
		out := FormatDocuments(a.Docs.State())
		if err := a.Docs.Reload(ctx); err != nil {
			a.Logger.Warn("Error fetching documents", "error", err)
			return Outcome{Output: out + "\n⚠️ Could not refresh documents: " + err.Error()}, nil
		}
		return Outcome{Output: FormatDocuments(a.Docs.State())}, nil
	case CmdHelp:
		return Outcome{Output: HelpText}, nil
	case CmdQuit:
		return Outcome{Quit: true}, nil
	}
	return Outcome{}, fmt.Errorf("unsupported command %d", cmd.Kind)
}

// Upload sends a PDF, announces the result in the conversation and turns
// RAG on after a success.
func (a *App) Upload(ctx context.Context, path string) error {
	if !IsPDF(path) {
		return ErrNotPDF
	}

	progress := fmt.Sprintf("Uploading %s...", filepath.Base(path))
	if info, err := os.Stat(path); err == nil {
		progress = fmt.Sprintf("Uploading %s (%s)...", filepath.Base(path), humanize.Bytes(uint64(info.Size())))
	}
	a.setProgress(progress)
	defer a.setProgress("")

	resp, err := a.Docs.UploadFile(ctx, path)
	if err != nil {
		a.Chat.AddSystemNotice(fmt.Sprintf("❌ Upload failed: %s", err.Error()))
		return err
	}

	a.Chat.AddSystemNotice(fmt.Sprintf("✅ %s (%s %s, %s %s). RAG is now enabled.",
		resp.Message,
		humanize.Comma(int64(resp.Pages)), plural(resp.Pages, "page"),
		humanize.Comma(int64(resp.Chunks)), plural(resp.Chunks, "chunk")))
	a.Chat.SetUseRAG(true)
	return nil
}

// ClearDocuments deletes every document and turns RAG off.
func (a *App) ClearDocuments(ctx context.Context) error {
	if err := a.Docs.Clear(ctx); err != nil {
		a.Chat.AddSystemNotice(fmt.Sprintf("❌ Could not clear documents: %s", err.Error()))
		return err
	}
	a.Chat.AddSystemNotice("🗑️ All documents cleared. RAG is now disabled.")
	a.Chat.SetUseRAG(false)
	return nil
}

func (a *App) Progress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

func (a *App) setProgress(p string) {
	a.mu.Lock()
	a.progress = p
	a.mu.Unlock()
	if a.OnProgress != nil {
		a.OnProgress(p)
	}
}

// FormatDocuments lists the snapshot for the /docs command.
func FormatDocuments(s documents.State) string {
	if !s.HasDocuments() {
		return "No documents uploaded."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 %s chunks loaded from %s %s:",
		humanize.Comma(int64(s.Snapshot.TotalChunks)),
		humanize.Comma(int64(len(s.Snapshot.Documents))), plural(len(s.Snapshot.Documents), "document"))
	for _, d := range s.Snapshot.Documents {
		sb.WriteString("\n  📄 ")
		sb.WriteString(d)
	}
	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
