// Package chat holds the conversation transcript shown by the client.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikeboe/agentsmith/pkg/api"
)

// TimestampLayout matches the ISO-8601 form browsers produce (millisecond precision, UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrEmptyReply   = errors.New("empty response from backend")
)

const fallbackErrorMessage = "An error occurred"

// Gateway is the part of the backend client the store needs.
type Gateway interface {
	SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// State is a copy of the store contents at one point in time.
type State struct {
	Turns   []api.Turn
	Loading bool
	Error   string
	UseRAG  bool
}

// Store is the conversation transcript plus the send status.
// The transcript only grows, except for Clear which empties it.
type Store struct {
	gateway   Gateway
	sessionID uuid.UUID

	mu      sync.Mutex
	turns   []api.Turn
	loading bool
	err     string
	useRAG  bool

	Logger *slog.Logger
	// OnChange is called after every mutation, outside the store lock.
	OnChange func(state State)

	now func() time.Time
}

func NewStore(gateway Gateway) *Store {
	return &Store{
		gateway:   gateway,
		sessionID: uuid.New(),
		turns:     []api.Turn{},
		Logger:    slog.Default(),
		now:       time.Now,
	}
}

// SessionID identifies this store in logs.
func (s *Store) SessionID() uuid.UUID {
	return s.sessionID
}

// Send appends the user's turn, asks the backend for a reply and appends it.
// Empty input and sends while another is outstanding are rejected without
// touching state. A backend failure is recorded as the store error and also
// returned; the user's turn stays in the transcript.
func (s *Store) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	history := cloneTurns(s.turns)
	s.turns = append(s.turns, api.Turn{
		Role:      api.RoleUser,
		Content:   text,
		Timestamp: formatTimestamp(s.now()),
	})
	s.loading = true
	s.err = ""
	useRAG := s.useRAG
	s.mu.Unlock()
	s.notify()

	s.Logger.Info("Sending message", "session_id", s.sessionID, "use_rag", useRAG, "history", len(history))

	resp, err := s.gateway.SendMessage(ctx, api.ChatRequest{
		Message:             text,
		ConversationHistory: history,
		UseRAG:              useRAG,
	})
	if err == nil && resp == nil {
		err = ErrEmptyReply
	}

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = errorMessage(err)
	} else {
		s.turns = append(s.turns, api.Turn{
			Role:      api.RoleAssistant,
			Content:   resp.Message,
			Timestamp: s.replyTimestamp(resp.Timestamp),
			Sources:   cloneStrings(resp.Sources),
		})
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.Logger.Error("Error sending message", "session_id", s.sessionID, "error", err)
		return err
	}
	s.Logger.Debug("Received reply", "session_id", s.sessionID, "sources", len(resp.Sources))
	return nil
}

// Clear empties the transcript and the error. A send in flight keeps running
// and its reply is appended to the emptied transcript.
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = []api.Turn{}
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

// AddSystemNotice appends a locally generated assistant turn.
func (s *Store) AddSystemNotice(text string) {
	s.mu.Lock()
	s.turns = append(s.turns, api.Turn{
		Role:      api.RoleAssistant,
		Content:   text,
		Timestamp: formatTimestamp(s.now()),
	})
	s.mu.Unlock()
	s.notify()
}

// SetUseRAG sets the flag sent with the next request. Past turns are not affected.
func (s *Store) SetUseRAG(enabled bool) {
	s.mu.Lock()
	changed := s.useRAG != enabled
	s.useRAG = enabled
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Store) UseRAG() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useRAG
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) Turns() []api.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.turns)
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Turns:   cloneTurns(s.turns),
		Loading: s.loading,
		Error:   s.err,
		UseRAG:  s.useRAG,
	}
}

func (s *Store) notify() {
	if s.OnChange != nil {
		s.OnChange(s.State())
	}
}

// replyTimestamp keeps the backend's timestamp unless it is unparseable or
// earlier than the last turn. Caller holds s.mu.
func (s *Store) replyTimestamp(remote string) string {
	now := s.now()
	t, ok := ParseTimestamp(remote)
	if !ok {
		return formatTimestamp(now)
	}
	if n := len(s.turns); n > 0 {
		if last, ok := ParseTimestamp(s.turns[n-1].Timestamp); ok && t.Before(last) {
			return formatTimestamp(now)
		}
	}
	return remote
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// naiveLayouts cover backends that emit local time without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads a turn timestamp: RFC 3339, or an offset-less local time.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}

func cloneTurns(turns []api.Turn) []api.Turn {
	out := make([]api.Turn, len(turns))
	for i, t := range turns {
		t.Sources = cloneStrings(t.Sources)
		out[i] = t
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
