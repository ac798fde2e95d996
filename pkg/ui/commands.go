package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type CommandKind int

const (
	CmdSend CommandKind = iota
	CmdUpload
	CmdRAG
	CmdClear
	CmdClearDocs
	CmdDocs
	CmdHelp
	CmdQuit
)

// Command is one line of user input. Arg is the message text for CmdSend,
// the file path for CmdUpload and "", "on" or "off" for CmdRAG.
type Command struct {
	Kind CommandKind
	Arg  string
}

var ErrNotPDF = errors.New("only .pdf files can be uploaded")

const HelpText = `Commands:
  /upload <file.pdf>  upload a PDF to the backend
  /rag [on|off]       toggle answering from your documents
  /docs               list uploaded documents
  /cleardocs          delete all uploaded documents
  /clear              clear the conversation
  /help               show this help
  /quit               exit
Anything else is sent as a message.`

// ParseCommand reads one line of input. Plain text becomes CmdSend with the
// text unchanged.
func ParseCommand(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CmdSend, Arg: input}, nil
	}

	name, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/upload":
		if arg == "" {
			return Command{}, fmt.Errorf("usage: /upload <file.pdf>")
		}
		path := strings.Trim(arg, `"'`)
		if !IsPDF(path) {
			return Command{}, ErrNotPDF
		}
		return Command{Kind: CmdUpload, Arg: path}, nil
	case "/rag":
		switch strings.ToLower(arg) {
		case "", "on", "off":
			return Command{Kind: CmdRAG, Arg: strings.ToLower(arg)}, nil
		}
		return Command{}, fmt.Errorf("usage: /rag [on|off]")
	case "/clear":
		return Command{Kind: CmdClear}, nil
	case "/cleardocs":
		return Command{Kind: CmdClearDocs}, nil
	case "/docs":
		return Command{Kind: CmdDocs}, nil
	case "/help", "/?":
		return Command{Kind: CmdHelp}, nil
	case "/quit", "/exit", "/q":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, fmt.Errorf("unknown command: %s (try /help)", name)
}

// IsPDF reports whether path has the .pdf extension the backend accepts.
func IsPDF(path string) bool {
	return filepath.Ext(path) == ".pdf"
}
