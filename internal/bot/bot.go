package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/dialog"
	"github.com/Spok95/crod-stock-bot/internal/domain/extracts"
	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/Spok95/crod-stock-bot/internal/domain/users"
	"github.com/Spok95/crod-stock-bot/internal/infra/cache"
	"github.com/Spok95/crod-stock-bot/internal/infra/extract"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	errTooLarge    = errors.New("file exceeds the upload limit")
	errNoExtract   = errors.New("no stock extract loaded")
	errExtractGone = errors.New("stock extract expired")
)

type Options struct {
	AdminChatID    int64
	MaxUploadBytes int64
	PreviewRows    int
	Clock          func() time.Time // reference time for bucketing
	PinnedClock    bool
}

// userStore is the part of users.Repo the bot needs.
type userStore interface {
	GetByTelegramID(ctx context.Context, tgID int64) (*users.User, error)
	UpsertFromTelegram(ctx context.Context, tg users.Telegram, role users.Role) (*users.User, error)
}

// stateStore is the part of dialog.Repo the bot needs.
type stateStore interface {
	Get(ctx context.Context, chatID int64) (*dialog.Item, error)
	Set(ctx context.Context, chatID int64, state dialog.State, payload dialog.Payload) error
	Reset(ctx context.Context, chatID int64) error
}

type Bot struct {
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	users    userStore
	states   stateStore
	extracts *extracts.Repo
	store    cache.TableStore
	memo     *stock.Memo
	loader   *extract.Loader
	opts     Options
}

func New(api *tgbotapi.BotAPI, log *slog.Logger,
	usersRepo userStore, statesRepo stateStore, extractsRepo *extracts.Repo,
	store cache.TableStore, memo *stock.Memo, loader *extract.Loader, opts Options) *Bot {

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Bot{
		api: api, log: log.With("component", "bot"),
		users: usersRepo, states: statesRepo, extracts: extractsRepo,
		store: store, memo: memo, loader: loader, opts: opts,
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd)
			} else if upd.CallbackQuery != nil {
				b.onCallback(ctx, upd)
			}
		}
	}
}

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg.From == nil {
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleStateMessage(ctx, msg)
}

func (b *Bot) onCallback(ctx context.Context, upd tgbotapi.Update) {
	b.handleCallback(ctx, upd.CallbackQuery)
}

// reference returns the reference time for this request and logs it.
func (b *Bot) reference(op, digest string) time.Time {
	ref := b.opts.Clock()
	b.log.Info("computing", "op", op, "digest", shortDigest(digest),
		"reference_date", stock.Day(ref).Format("2006-01-02"), "pinned", b.opts.PinnedClock)
	return ref
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// activeTable resolves the chat's current extract from the table store.
// A digest the store no longer holds is dropped from the dialog.
func (b *Bot) activeTable(ctx context.Context, chatID int64) (string, *stock.Table, error) {
	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		return "", nil, err
	}
	digest, ok := st.Digest()
	if !ok {
		return "", nil, errNoExtract
	}
	t, err := b.store.Get(ctx, digest)
	if errors.Is(err, cache.ErrNotFound) {
		if rerr := b.states.Reset(ctx, chatID); rerr != nil {
			b.log.Warn("reset stale dialog failed", "chat_id", chatID, "err", rerr)
		}
		return digest, nil, errExtractGone
	}
	if err != nil {
		return "", nil, err
	}
	return digest, t, nil
}

// explainMissing tells the user why no extract is available.
func (b *Bot) explainMissing(ctx context.Context, chatID, tgID int64, err error) {
	switch {
	case errors.Is(err, errNoExtract):
		b.reply(chatID, "Upload the Stock Data file (.xlsx, .xls, .csv or .parquet) to proceed.")
	case errors.Is(err, errExtractGone):
		text := "Your stock extract is no longer cached. Please upload it again."
		if last, lerr := b.extracts.LatestByUser(ctx, tgID); lerr == nil && last != nil {
			text = fmt.Sprintf("Your last extract %q (%d rows, uploaded %s) is no longer cached. Please upload it again.",
				last.FileName, last.Rows, last.CreatedAt.Format("02.01.2006 15:04"))
		}
		b.reply(chatID, text)
	default:
		b.log.Error("resolve active extract failed", "chat_id", chatID, "err", err)
		b.reply(chatID, "Error: could not read the active extract.")
	}
}
