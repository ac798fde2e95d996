package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []api.ChatRequest
	resp     *api.ChatResponse
	err      error
	// block, when set, holds SendMessage until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (g *fakeGateway) SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestSend_RejectsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Spaces", "   "},
		{"Whitespace mix", "\t\n  \r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{resp: &api.ChatResponse{Message: "never"}}
			store := NewStore(gw)

			err := store.Send(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrEmptyMessage)
			assert.Empty(t, store.Turns())
			assert.Zero(t, gw.calls())
			assert.False(t, store.Loading())
		})
	}
}

func TestSend_Success(t *testing.T) {
	gw := &fakeGateway{resp: &api.ChatResponse{Message: "Hi there", Timestamp: "2030-01-01T00:00:00Z"}}
	store := NewStore(gw)
	store.now = fixedClock(time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, store.Send(context.Background(), "Hello"))

	turns := store.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, api.RoleUser, turns[0].Role)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, api.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hi there", turns[1].Content)
	assert.Equal(t, "2030-01-01T00:00:00Z", turns[1].Timestamp)
	assert.False(t, store.Loading())
	assert.Empty(t, store.Error())

	require.Len(t, gw.requests, 1)
	assert.Equal(t, "Hello", gw.requests[0].Message)
	assert.NotNil(t, gw.requests[0].ConversationHistory)
	assert.Empty(t, gw.requests[0].ConversationHistory)
	assert.False(t, gw.requests[0].UseRAG)
}

func TestSend_TimestampsNonDecreasing(t *testing.T) {
	tests := []struct {
		name   string
		remote string
	}{
		{"Remote in the past", "2024-01-01T00:00:00Z"},
		{"Unparseable", "yesterday"},
		{"Empty", ""},
		{"Naive local time", "2024-06-01T12:00:00.123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{resp: &api.ChatResponse{Message: "ok", Timestamp: tt.remote}}
			store := NewStore(gw)

			require.NoError(t, store.Send(context.Background(), "Hello"))
			require.NoError(t, store.Send(context.Background(), "Again"))

			turns := store.Turns()
			require.Len(t, turns, 4)
			var prev time.Time
			for i, turn := range turns {
				ts, ok := ParseTimestamp(turn.Timestamp)
				require.True(t, ok, "turn %d timestamp %q", i, turn.Timestamp)
				assert.False(t, ts.Before(prev), "turn %d goes back in time", i)
				prev = ts
			}
		})
	}
}

func TestSend_Failure(t *testing.T) {
	gw := &fakeGateway{err: &api.RequestError{Kind: api.KindStatus, StatusCode: 429, Message: "Rate limit exceeded"}}
	store := NewStore(gw)

	err := store.Send(context.Background(), "Hello")
	require.Error(t, err)

	turns := store.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, api.RoleUser, turns[0].Role)
	assert.Equal(t, "Rate limit exceeded", store.Error())
	assert.False(t, store.Loading())
}

func TestSend_FailureWithoutMessage(t *testing.T) {
	store := NewStore(&fakeGateway{err: errors.New("")})

	require.Error(t, store.Send(context.Background(), "Hello"))
	assert.Equal(t, fallbackErrorMessage, store.Error())
}

func TestSend_NilReply(t *testing.T) {
	store := NewStore(&fakeGateway{})

	var err error
	require.NotPanics(t, func() {
		err = store.Send(context.Background(), "Hello")
	})
	assert.ErrorIs(t, err, ErrEmptyReply)
	assert.Equal(t, ErrEmptyReply.Error(), store.Error())
	assert.Len(t, store.Turns(), 1)
	assert.False(t, store.Loading())
}

func TestSend_ErrorClearedByNextSend(t *testing.T) {
	gw := &fakeGateway{err: errors.New("boom")}
	store := NewStore(gw)
	require.Error(t, store.Send(context.Background(), "one"))
	assert.Equal(t, "boom", store.Error())

	gw.err = nil
	gw.resp = &api.ChatResponse{Message: "fine"}
	require.NoError(t, store.Send(context.Background(), "two"))
	assert.Empty(t, store.Error())
	assert.Len(t, store.Turns(), 3)
}

func TestSend_RejectsWhileInFlight(t *testing.T) {
	gw := &fakeGateway{
		resp:    &api.ChatResponse{Message: "done"},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	store := NewStore(gw)

	done := make(chan error, 1)
	go func() {
		done <- store.Send(context.Background(), "first")
	}()
	<-gw.entered

	assert.True(t, store.Loading())
	assert.ErrorIs(t, store.Send(context.Background(), "second"), ErrSendInFlight)
	assert.Len(t, store.Turns(), 1)

	close(gw.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.calls())
	assert.Len(t, store.Turns(), 2)
	assert.False(t, store.Loading())
}

func TestSend_HistoryIsSnapshot(t *testing.T) {
	gw := &fakeGateway{resp: &api.ChatResponse{Message: "reply", Sources: []string{"a.pdf"}}}
	store := NewStore(gw)

	require.NoError(t, store.Send(context.Background(), "one"))
	require.NoError(t, store.Send(context.Background(), "two"))

	require.Len(t, gw.requests, 2)
	first := gw.requests[0].ConversationHistory
	second := gw.requests[1].ConversationHistory
	assert.Empty(t, first)
	require.Len(t, second, 2)
	assert.Equal(t, "one", second[0].Content)
	assert.Equal(t, []string{"a.pdf"}, second[1].Sources)

	// Mutating what the gateway received never reaches the store.
	second[1].Sources[0] = "changed.pdf"
	assert.Equal(t, []string{"a.pdf"}, store.Turns()[1].Sources)
}

func TestSetUseRAG(t *testing.T) {
	gw := &fakeGateway{resp: &api.ChatResponse{Message: "reply"}}
	store := NewStore(gw)

	require.NoError(t, store.Send(context.Background(), "without"))
	before := store.Turns()

	store.SetUseRAG(true)
	require.NoError(t, store.Send(context.Background(), "with"))

	require.Len(t, gw.requests, 2)
	assert.False(t, gw.requests[0].UseRAG)
	assert.True(t, gw.requests[1].UseRAG)
	assert.Equal(t, "without", gw.requests[0].Message)
	assert.Equal(t, before, store.Turns()[:2])
}

func TestClear(t *testing.T) {
	store := NewStore(&fakeGateway{err: errors.New("boom")})
	require.Error(t, store.Send(context.Background(), "hello"))
	store.AddSystemNotice("notice")

	store.Clear()
	assert.Empty(t, store.Turns())
	assert.Empty(t, store.Error())

	store.Clear()
	assert.Empty(t, store.Turns())
}

func TestClear_DoesNotTouchLoading(t *testing.T) {
	gw := &fakeGateway{
		resp:    &api.ChatResponse{Message: "late"},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	store := NewStore(gw)

	done := make(chan error, 1)
	go func() {
		done <- store.Send(context.Background(), "first")
	}()
	<-gw.entered

	store.Clear()
	assert.True(t, store.Loading())
	assert.Empty(t, store.Turns())

	close(gw.block)
	require.NoError(t, <-done)
	turns := store.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "late", turns[0].Content)
}

func TestAddSystemNotice(t *testing.T) {
	store := NewStore(&fakeGateway{})
	store.now = fixedClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	store.AddSystemNotice("Uploaded report.pdf")

	turns := store.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, api.RoleAssistant, turns[0].Role)
	assert.Equal(t, "Uploaded report.pdf", turns[0].Content)
	assert.Equal(t, "2024-05-01T10:00:01.000Z", turns[0].Timestamp)
	assert.Empty(t, turns[0].Sources)
}

func TestOnChange(t *testing.T) {
	store := NewStore(&fakeGateway{resp: &api.ChatResponse{Message: "reply"}})

	var states []State
	store.OnChange = func(s State) {
		states = append(states, s)
	}

	require.NoError(t, store.Send(context.Background(), "hello"))
	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.Len(t, states[0].Turns, 1)
	assert.False(t, states[1].Loading)
	assert.Len(t, states[1].Turns, 2)

	store.SetUseRAG(false)
	assert.Len(t, states, 2, "unchanged flag does not notify")
	store.SetUseRAG(true)
	assert.Len(t, states, 3)
	assert.True(t, states[2].UseRAG)
}

// The example exchange against a real HTTP gateway.
func TestSend_ThroughClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Hi there","timestamp":"2024-01-01T00:00:00Z"}`))
	}))
	defer server.Close()

	store := NewStore(api.New(server.URL))
	require.NoError(t, store.Send(context.Background(), "Hello"))

	turns := store.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, api.Turn{Role: api.RoleUser, Content: "Hello", Timestamp: turns[0].Timestamp}, turns[0])
	assert.Equal(t, api.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hi there", turns[1].Content)
}
