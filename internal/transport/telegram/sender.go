package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/datacom/pkg/log"
	"github.com/sandevgo/datacom/pkg/retry"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type sender struct {
	bot     messageSender
	retrier *retry.Retrier
}

func newSender(bot messageSender) *sender {
	return &sender{bot: bot, retrier: retry.NewDefaultRetrier()}
}

// sendText sends plain text in chunks. No parse mode: *BEEP* must stay literal.
func (s *sender) sendText(ctx context.Context, to tele.Recipient, text string) error {
	logger := log.FromCtx(ctx)

	for i, chunk := range splitText(strings.TrimSpace(text), maxTelegramMsgLen) {
		err := s.retrier.Do(ctx, func(ctx context.Context) error {
			_, err := s.bot.Send(to, chunk)
			if isPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			logger.Error().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("failed to send telegram chunk")
			return err
		}
	}
	return nil
}

// isPermanent reports API rejections that a retry cannot fix.
func isPermanent(err error) bool {
	var apiErr *tele.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden
}

// splitText splits text into chunks respecting Telegram's limit.
// It prefers newlines and never cuts inside a UTF-8 sequence.
func splitText(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		// Try to find a good break point (newline) in the later part of the chunk
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
