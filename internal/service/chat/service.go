package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/metrics"
	"github.com/sandevgo/datacom/internal/providers/llm"
	"github.com/sandevgo/datacom/pkg/log"
)

const (
	MaxMessageLength = 2000

	// ErrorConversationID is returned when the turn could not be tied to a
	// stored conversation.
	ErrorConversationID = "error"
)

var (
	ErrEmptyMessage   = errors.New("message must not be empty")
	ErrMessageTooLong = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
)

// ValidationError rejects input before a turn starts.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type (
	Request  = core.ChatRequest
	Response = core.ChatResponse
)

// Inferer runs one prompt through the model.
type Inferer interface {
	Run(ctx context.Context, prompt string) llm.Result
}

type Service struct {
	store    core.ConversationStore
	builder  *ContextBuilder
	executor Inferer
	guard    *PersonaGuard
	now      func() time.Time
}

var _ core.ChatTurn = (*Service)(nil)

func NewService(store core.ConversationStore, executor Inferer, systemPrompt string, maxContextMessages int) *Service {
	return &Service{
		store:    store,
		builder:  NewContextBuilder(store, systemPrompt, maxContextMessages),
		executor: executor,
		guard:    NewPersonaGuard(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Validate checks a user message against the accepted bounds.
func Validate(message string) error {
	if strings.TrimSpace(message) == "" {
		return &ValidationError{Err: ErrEmptyMessage}
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return &ValidationError{Err: ErrMessageTooLong}
	}
	return nil
}

// ProcessChat runs one turn. The only error it returns is a *ValidationError;
// every failure after validation is reported in-band as an assistant message.
func (s *Service) ProcessChat(ctx context.Context, req Request) (resp Response, err error) {
	if err := Validate(req.Message); err != nil {
		return Response{}, err
	}

	requestedID := ""
	if req.ConversationID != nil {
		requestedID = strings.TrimSpace(*req.ConversationID)
	}

	// Inference timeout is the only cancellation a turn honours
	ctx = context.WithoutCancel(ctx)
	logger := log.FromCtx(ctx)

	start := time.Now()
	outcome := "panic"
	defer func() {
		metrics.TurnsTotal.WithLabelValues(outcome).Inc()
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("chat turn crashed")
			id := requestedID
			if id == "" {
				id = ErrorConversationID
			}
			resp = Response{Message: MsgSystemError, ConversationID: id, Timestamp: s.now()}
			err = nil
		}
	}()

	logger.Info().
		Int("chars", utf8.RuneCountInString(req.Message)).
		Str("conversation_id", requestedID).
		Msg("processing chat turn")

	cc := s.builder.Build(ctx, req.Message, requestedID)
	res := s.executor.Run(ctx, cc.Prompt())

	var reply string
	reply, outcome = s.reply(res)

	conversationID := s.persist(ctx, cc, reply, outcome)

	logger.Info().
		Str("outcome", outcome).
		Str("conversation_id", conversationID).
		Int("reply_chars", len(reply)).
		Dur("elapsed", time.Since(start)).
		Msg("chat turn finished")

	return Response{
		Message:        reply,
		ConversationID: conversationID,
		Timestamp:      s.now(),
	}, nil
}

// reply maps an inference result to the text the user sees.
func (s *Service) reply(res llm.Result) (string, string) {
	switch res.Outcome {
	case llm.OutcomeOK:
		text := s.guard.Apply(Sanitize(res.Text))
		if text == "" {
			return MsgProcessingError, "empty"
		}
		return text, "ok"
	case llm.OutcomeTimedOut:
		return MsgTimeout, "timeout"
	default:
		return MsgMalfunction, "failed"
	}
}

// persist stores the user turn then the reply. It returns the conversation id
// or ErrorConversationID when the exchange could not be saved.
func (s *Service) persist(ctx context.Context, cc ChatContext, reply, outcome string) string {
	logger := log.FromCtx(ctx)

	id := cc.ConversationID
	if id == "" {
		conv, err := s.store.Create(ctx, nil)
		if err != nil {
			metrics.PersistFailures.Inc()
			logger.Error().Err(err).Msg("failed to create conversation")
			return ErrorConversationID
		}
		id = conv.ID
	}

	msgs := []core.Message{
		{Role: core.RoleUser, Content: cc.UserMessage, Timestamp: s.now()},
		{Role: core.RoleAssistant, Content: reply, Timestamp: s.now(), Metadata: map[string]string{"outcome": outcome}},
	}

	for _, msg := range msgs {
		ok, err := s.store.Append(ctx, id, msg)
		if err != nil || !ok {
			metrics.PersistFailures.Inc()
			logger.Error().Err(err).
				Str("conversation_id", id).
				Str("role", string(msg.Role)).
				Bool("found", ok).
				Msg("failed to save chat exchange")
			return ErrorConversationID
		}
	}

	return id
}
