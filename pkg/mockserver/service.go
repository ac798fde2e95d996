package mockserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/mikeboe/agentsmith/pkg/config"
	"github.com/mikeboe/agentsmith/pkg/splitter"
)

const (
	maxRetrievalDocs = 3
	maxHistory       = 10
)

var ErrNoText = errors.New("no text content found in PDF")

// Chunk is one indexed piece of an uploaded document.
type Chunk struct {
	Source  string
	Content string
}

// Responder produces the assistant reply. passages holds the retrieved chunk
// text and is empty when retrieval was off or found nothing.
type Responder func(ctx context.Context, message string, history []api.Turn, passages []string) (string, error)

// Service keeps uploaded documents in memory and answers chat requests.
type Service struct {
	Cfg      *config.BackendConfig
	Splitter *splitter.TextSplitter
	Respond  Responder
	Logger   *slog.Logger

	mu     sync.RWMutex
	chunks []Chunk
	now    func() time.Time
}

func NewService(cfg *config.BackendConfig) *Service {
	return &Service{
		Cfg:      cfg,
		Splitter: splitter.NewRecursiveCharacterTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Respond:  EchoResponder,
		Logger:   slog.Default(),
		now:      time.Now,
	}
}

// ProcessDocument extracts the text of an uploaded PDF, splits it and adds
// the chunks to the index. It returns the page and chunk counts.
func (s *Service) ProcessDocument(filename string, data []byte) (int, int, error) {
	text, pages, err := extractText(data)
	if err != nil {
		return 0, 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, 0, ErrNoText
	}
	s.Logger.Debug("Extracted text", "filename", filename, "characters", len(text), "pages", pages)

	parts, err := s.Splitter.SplitText(text)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to split text: %w", err)
	}

	s.mu.Lock()
	for _, p := range parts {
		s.chunks = append(s.chunks, Chunk{Source: filename, Content: p})
	}
	s.mu.Unlock()

	s.Logger.Info("Document indexed", "filename", filename, "pages", pages, "chunks", len(parts))
	return pages, len(parts), nil
}

func (s *Service) DocumentInfo() api.DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	docs := []string{}
	for _, c := range s.chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			docs = append(docs, c.Source)
		}
	}
	return api.DocumentInfo{TotalChunks: len(s.chunks), Documents: docs}
}

func (s *Service) ClearDocuments() {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
	s.Logger.Info("Documents cleared")
}

// Retrieve returns up to three chunks sharing the most words with query.
func (s *Service) Retrieve(query string) []Chunk {
	terms := words(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		chunk Chunk
		score int
		index int
	}

	s.mu.RLock()
	var hits []scored
	for i, c := range s.chunks {
		score := 0
		for w := range words(c.Content) {
			if terms[w] {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{chunk: c, score: score, index: i})
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].index < hits[j].index
	})

	out := make([]Chunk, 0, maxRetrievalDocs)
	for i := 0; i < len(hits) && i < maxRetrievalDocs; i++ {
		out = append(out, hits[i].chunk)
	}
	return out
}

// Chat answers one request. Sources are set only when retrieval found chunks.
func (s *Service) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	var (
		contextText []string
		sources     []string
	)
	if req.UseRAG {
		seen := make(map[string]bool)
		for _, c := range s.Retrieve(req.Message) {
			contextText = append(contextText, c.Content)
			if !seen[c.Source] {
				seen[c.Source] = true
				sources = append(sources, c.Source)
			}
		}
	}

	history := req.ConversationHistory
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	reply, err := s.Respond(ctx, req.Message, history, contextText)
	if err != nil {
		return nil, err
	}

	return &api.ChatResponse{
		Message:   reply,
		Timestamp: s.now().Format(time.RFC3339Nano),
		Sources:   sources,
	}, nil
}

// EchoResponder answers without a language model: it quotes the best
// retrieved chunk, or echoes the message.
func EchoResponder(ctx context.Context, message string, history []api.Turn, passages []string) (string, error) {
	if len(passages) > 0 {
		return fmt.Sprintf("From your documents:\n\n> %s", strings.TrimSpace(passages[0])), nil
	}
	return fmt.Sprintf("You said: %s", message), nil
}

func words(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(w) > 2 {
			out[w] = true
		}
	}
	return out
}

// extractText reads the text and page count of a PDF. Anything not starting
// with %PDF is read as plain text with one page.
func extractText(data []byte) (text string, pages int, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return string(data), 1, nil
	}

	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to read PDF: %w", err)
	}

	pages = r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteByte('\n')
	}
	return sb.String(), pages, nil
}
