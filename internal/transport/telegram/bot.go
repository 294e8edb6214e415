package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/service/chat"
	"github.com/sandevgo/datacom/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

const greeting = "DATACOM-7 ONLINE. Send me a message and I will consult my magnetic tapes. Use /new to start a fresh conversation and /help for commands. *BEEP*"

type Bot struct {
	bot      *tele.Bot
	chat     core.ChatTurn
	commands core.CmdRouter
	ownerID  int64
	sender   *sender
	sessions *sessions
}

// NewBot builds the bot. commands may be nil to disable slash commands.
func NewBot(ctx context.Context, cfg core.TelegramConfig, turn core.ChatTurn, commands core.CmdRouter) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.GetTelegramToken(),
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		chat:     turn,
		commands: commands,
		ownerID:  cfg.GetTelegramOwnerID(),
		sender:   newSender(b),
		sessions: newSessions(),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: only the owner, when one is configured
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !bot.allowed(c.Sender()) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle("/start", bot.handleStart)
	b.Handle("/new", bot.handleNew)
	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) allowed(u *tele.User) bool {
	if b.ownerID == 0 {
		return true
	}
	return u != nil && u.ID == b.ownerID
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(greeting)
}

func (b *Bot) handleNew(c tele.Context) error {
	b.sessions.reset(c.Chat().ID)
	return c.Send("NEW CONVERSATION STARTED. *WHIRRRR*")
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	chatID := c.Chat().ID
	logger := log.FromCtx(ctx).With().Int64("chat_id", chatID).Logger()
	ctx = logger.WithContext(ctx)

	sessionID, hasSession := b.sessions.get(chatID)

	if b.commands != nil {
		if out, ok := b.commands.Execute(ctx, sessionID, c.Text()); ok {
			return b.sender.sendText(ctx, c.Recipient(), out)
		}
	}

	// Notify user we are working
	_ = c.Notify(tele.Typing)

	req := core.ChatRequest{Message: c.Text()}
	if hasSession {
		req.ConversationID = &sessionID
	}

	resp, err := b.chat.ProcessChat(ctx, req)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			return c.Send(verr.Error())
		}
		logger.Error().Err(err).Msg("chat turn failed")
		return c.Send(chat.MsgMalfunction)
	}

	if resp.ConversationID != chat.ErrorConversationID {
		b.sessions.set(chatID, resp.ConversationID)
	}

	return b.sender.sendText(ctx, c.Recipient(), resp.Message)
}

// sessions maps a Telegram chat to its current conversation.
type sessions struct {
	mu    sync.RWMutex
	convs map[int64]string
}

func newSessions() *sessions {
	return &sessions{convs: make(map[int64]string)}
}

func (s *sessions) get(chatID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.convs[chatID]
	return id, ok
}

func (s *sessions) set(chatID int64, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[chatID] = conversationID
}

func (s *sessions) reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, chatID)
}
