package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/Spok95/crod-stock-bot/internal/dialog"
	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

/*** HELPERS ***/

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

// clearPrevStep drops the inline keyboard of the previous bot view, if any.
func (b *Bot) clearPrevStep(ctx context.Context, chatID int64) {
	st, err := b.states.Get(ctx, chatID)
	if err != nil || st == nil {
		return
	}
	if mid, ok := dialog.GetInt(st.Payload, dialog.KeyLastMID); ok {
		rm := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		b.send(tgbotapi.NewEditMessageReplyMarkup(chatID, mid, rm))
	}
}

// saveLastStep remembers the current bot message as the one to clear next time.
func (b *Bot) saveLastStep(ctx context.Context, chatID int64, nextState dialog.State, payload dialog.Payload, newMID int) {
	if payload == nil {
		payload = dialog.Payload{}
	}
	payload[dialog.KeyLastMID] = newMID
	if err := b.states.Set(ctx, chatID, nextState, payload); err != nil {
		b.log.Error("save dialog state failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

// sendMsg is send that also returns the message id, 0 on failure.
func (b *Bot) sendMsg(msg tgbotapi.Chattable) int {
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("send failed", "err", err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// downloadTelegramFile fetches a document by FileID, reading at most limit bytes.
func (b *Bot) downloadTelegramFile(ctx context.Context, fileID string, limit int64) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram returned status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

func (b *Bot) editTextAndMarkup(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb))
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	b.editTextAndMarkup(chatID, messageID, text,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
}

// parseView splits "<prefix>:<warehouse>:<bucket>" callback data.
func parseView(data string) (string, stock.Bucket, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("malformed callback %q", data)
	}
	wh := parts[1]
	if !isTracked(wh) {
		return "", "", fmt.Errorf("unknown warehouse %q", wh)
	}
	bucket, err := stock.ParseBucket(parts[2])
	if err != nil {
		return "", "", err
	}
	return wh, bucket, nil
}

func isTracked(wh string) bool {
	return slices.Contains(stock.TrackedWarehouses, wh)
}

// telegram caps message text at 4096 characters.
const maxMessageLen = 4096

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxMessageLen {
		return text
	}
	return string(r[:maxMessageLen-1]) + "…"
}
