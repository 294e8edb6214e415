package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/providers/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr error
	}{
		{"ok", "Who are you?", nil},
		{"empty", "", ErrEmptyMessage},
		{"whitespace", " \n\t", ErrEmptyMessage},
		{"at limit", strings.Repeat("é", MaxMessageLength), nil},
		{"over limit", strings.Repeat("a", MaxMessageLength+1), ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.message)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProcessChat_ValidationError(t *testing.T) {
	store := newMemStore()
	inf := &fakeInferer{result: okResult("hi")}
	svc := NewService(store, inf, "sys", 4)

	_, err := svc.ProcessChat(context.Background(), Request{Message: "   "})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, inf.prompts)
	assert.Empty(t, store.created)
}

func TestProcessChat_NewSession(t *testing.T) {
	store := newMemStore()
	inf := &fakeInferer{result: okResult("Assistant: I'm DATACOM-7, a mainframe from 1978! *BEEP*\nUser: cool")}
	svc := NewService(store, inf, DefaultSystemPrompt, 4)

	resp, err := svc.ProcessChat(context.Background(), Request{Message: "Who are you?"})
	require.NoError(t, err)

	assert.Equal(t, "I'm DATACOM-7, a mainframe from 1978! *BEEP*", resp.Message)
	require.Len(t, store.created, 1)
	assert.Equal(t, store.created[0], resp.ConversationID)
	assert.False(t, resp.Timestamp.IsZero())

	msgs := store.messages(resp.ConversationID)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "Who are you?", msgs[0].Content)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, resp.Message, msgs[1].Content)
	assert.Equal(t, "ok", msgs[1].Metadata["outcome"])

	require.Len(t, inf.prompts, 1)
	assert.True(t, strings.HasPrefix(inf.prompts[0], "System: You are DATACOM-7"))
	assert.True(t, strings.HasSuffix(inf.prompts[0], "\nUser: Who are you?\nAssistant:"))
}

func TestProcessChat_ContinuesConversation(t *testing.T) {
	store := newMemStore()
	store.seed("c1", history(6)...)
	inf := &fakeInferer{result: okResult("Tape rewound. *WHIRRRR*")}
	svc := NewService(store, inf, "sys", 4)

	resp, err := svc.ProcessChat(context.Background(), Request{Message: "again", ConversationID: strPtr("c1")})
	require.NoError(t, err)

	assert.Equal(t, "c1", resp.ConversationID)
	assert.Empty(t, store.created)
	assert.Len(t, store.messages("c1"), 8)
	assert.Equal(t, "System: sys\nUser: m3\nAssistant: m4\nUser: m5\nAssistant: m6\nUser: again\nAssistant:", inf.prompts[0])
}

func TestProcessChat_MissingConversationStartsFresh(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeInferer{result: okResult("Hello.")}, "sys", 4)

	resp, err := svc.ProcessChat(context.Background(), Request{Message: "hi", ConversationID: strPtr("ghost")})
	require.NoError(t, err)

	assert.NotEqual(t, "ghost", resp.ConversationID)
	require.Len(t, store.created, 1)
	assert.Equal(t, store.created[0], resp.ConversationID)
	assert.Len(t, store.messages(resp.ConversationID), 2)
}

func TestProcessChat_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		result  llm.Result
		want    string
		outcome string
	}{
		{
			name:    "timeout",
			result:  llm.Result{Outcome: llm.OutcomeTimedOut, Err: context.DeadlineExceeded},
			want:    MsgTimeout,
			outcome: "timeout",
		},
		{
			name:    "failure",
			result:  llm.Result{Outcome: llm.OutcomeFailed, Err: errors.New("load failed")},
			want:    MsgMalfunction,
			outcome: "failed",
		},
		{
			name:    "empty generation",
			result:  okResult("   "),
			want:    MsgProcessingError,
			outcome: "empty",
		},
		{
			name:    "shouting toned down",
			result:  okResult("THIS IS ALL CAPS WITHOUT SOUND"),
			want:    "This IS All Caps Without Sound",
			outcome: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewService(store, &fakeInferer{result: tt.result}, "sys", 4)

			resp, err := svc.ProcessChat(context.Background(), Request{Message: "hi"})
			require.NoError(t, err)

			assert.Equal(t, tt.want, resp.Message)
			msgs := store.messages(resp.ConversationID)
			require.Len(t, msgs, 2)
			assert.Equal(t, tt.outcome, msgs[1].Metadata["outcome"])
		})
	}
}

func TestProcessChat_PersistenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *memStore)
	}{
		{"create fails", func(s *memStore) { s.createErr = errors.New("disk full") }},
		{"append fails", func(s *memStore) { s.appendErr = errors.New("locked") }},
		{"append finds nothing", func(s *memStore) { s.appendMissing = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			tt.setup(store)
			svc := NewService(store, &fakeInferer{result: okResult("Still here. *BEEP*")}, "sys", 4)

			resp, err := svc.ProcessChat(context.Background(), Request{Message: "hi"})
			require.NoError(t, err)

			assert.Equal(t, "Still here. *BEEP*", resp.Message)
			assert.Equal(t, ErrorConversationID, resp.ConversationID)
		})
	}
}

func TestProcessChat_PanicIsInBand(t *testing.T) {
	tests := []struct {
		name      string
		requested *string
		wantID    string
	}{
		{"new session", nil, ErrorConversationID},
		{"known id", strPtr("c1"), "c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.seed("c1")
			svc := NewService(store, &fakeInferer{panic: true}, "sys", 4)

			resp, err := svc.ProcessChat(context.Background(), Request{Message: "hi", ConversationID: tt.requested})
			require.NoError(t, err)

			assert.Equal(t, MsgSystemError, resp.Message)
			assert.Equal(t, tt.wantID, resp.ConversationID)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string, _ llm.GenerationConfig) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestProcessChat_TimeoutWithinMargin(t *testing.T) {
	const timeout = 50 * time.Millisecond

	handle := llm.NewModelHandle(func(context.Context) (llm.Generator, error) {
		return blockingGenerator{}, nil
	})
	executor := llm.NewExecutor(handle, llm.ExecutorConfig{Timeout: timeout, Workers: 1}, nil)

	store := newMemStore()
	svc := NewService(store, executor, "sys", 4)

	start := time.Now()
	resp, err := svc.ProcessChat(context.Background(), Request{Message: "Who are you?"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, MsgTimeout, resp.Message)
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestProcessChat_IgnoresCallerCancellation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeInferer{result: okResult("Done.")}, "sys", 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.ProcessChat(ctx, Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Done.", resp.Message)
	assert.NotEqual(t, ErrorConversationID, resp.ConversationID)
}
