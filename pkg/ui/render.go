package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/mikeboe/agentsmith/pkg/chat"
	"github.com/mikeboe/agentsmith/pkg/documents"
)

const (
	WelcomeTitle = "Welcome to AgentSmith"
	welcomeText  = "Upload a PDF document and ask questions about its content using advanced RAG technology"

	userLabel      = "You"
	assistantLabel = "AS"
)

// View renders store state to text. All methods are pure.
type View struct {
	Styles Styles
	// Markdown renders assistant content. Nil leaves it as is.
	Markdown func(string) string
	// Location is used for turn times. Nil means time.Local.
	Location *time.Location
}

func NewView(styles Styles) View {
	return View{Styles: styles}
}

// RenderTurn draws one message bubble: author and time, content, sources.
func (v View) RenderTurn(t api.Turn) string {
	var sb strings.Builder

	label := v.Styles.Assistant.Render(assistantLabel)
	content := t.Content
	if t.Role == api.RoleUser {
		label = v.Styles.User.Render(userLabel)
	} else if v.Markdown != nil {
		content = v.Markdown(content)
	}

	sb.WriteString(label)
	if ts := v.FormatTime(t.Timestamp); ts != "" {
		sb.WriteString(v.Styles.Subtle.Render(" · " + ts))
	}
	sb.WriteString("\n")
	sb.WriteString(content)

	if len(t.Sources) > 0 {
		sb.WriteString("\n")
		sb.WriteString(v.Styles.Subtle.Render("Sources:"))
		for _, s := range t.Sources {
			sb.WriteString(" ")
			sb.WriteString(v.Styles.Source.Render("📄 " + s))
		}
	}
	return sb.String()
}

// RenderTranscript draws the welcome screen for an empty transcript,
// otherwise every turn, then the typing indicator while loading and the
// error banner when one is set.
func (v View) RenderTranscript(s chat.State, typing string) string {
	var parts []string
	if len(s.Turns) == 0 {
		parts = append(parts, v.RenderWelcome())
	}
	for _, t := range s.Turns {
		parts = append(parts, v.RenderTurn(t))
	}
	if s.Loading {
		parts = append(parts, v.RenderTyping(typing))
	}
	if s.Error != "" {
		parts = append(parts, v.RenderError(s.Error))
	}
	return strings.Join(parts, "\n\n")
}

func (v View) RenderWelcome() string {
	return strings.Join([]string{
		v.Styles.Header.Render(WelcomeTitle),
		v.Styles.Subtle.Render(welcomeText),
		"",
		"  💬 Chat with AI        type a message and press Enter",
		"  📄 Upload Documents    /upload <file.pdf>",
	}, "\n")
}

// RenderTyping shows the assistant label with the given animation frame.
func (v View) RenderTyping(frame string) string {
	if frame == "" {
		frame = "..."
	}
	return v.Styles.Assistant.Render(assistantLabel) + " " + v.Styles.Subtle.Render(frame)
}

func (v View) RenderError(msg string) string {
	return v.Styles.Error.Render("❌ Error:\n" + msg)
}

// RenderControls draws the upload control and, when documents exist, the
// RAG toggle, clear button, chunk count and document list. progress is the
// transient upload status line.
func (v View) RenderControls(d documents.State, useRAG bool, progress string) string {
	upload := "📄 Upload PDF (/upload <file>)"
	if d.Uploading {
		upload = "⏳ Processing..."
	}
	row := []string{upload}

	var lines []string
	if d.HasDocuments() {
		toggle := "⬜ RAG Disabled"
		if useRAG {
			toggle = "✅ RAG Enabled"
		}
		row = append(row, toggle+" (/rag)", "🗑️ Clear Docs (/cleardocs)",
			v.Styles.Subtle.Render(fmt.Sprintf("📚 %s chunks loaded", humanize.Comma(int64(d.Snapshot.TotalChunks)))))
	}
	lines = append(lines, strings.Join(row, "   "))

	if progress != "" {
		lines = append(lines, v.Styles.Notice.Render(progress))
	}

	if d.HasDocuments() {
		docs := make([]string, len(d.Snapshot.Documents))
		for i, name := range d.Snapshot.Documents {
			docs[i] = v.Styles.Source.Render("📄 " + name)
		}
		lines = append(lines, v.Styles.Subtle.Render("Uploaded Documents: ")+strings.Join(docs, "  "))
	}
	return v.Styles.Controls.Render(strings.Join(lines, "\n"))
}

// FormatTime shows a turn timestamp as a 12-hour clock time. Timestamps
// that do not parse are shown unchanged.
func (v View) FormatTime(ts string) string {
	t, ok := chat.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	loc := v.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("03:04 PM")
}

// Placeholder is the input hint for the current RAG setting.
func Placeholder(useRAG bool) string {
	if useRAG {
		return "Ask a question about your documents..."
	}
	return "Type your message..."
}
