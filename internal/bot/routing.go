package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/dialog"
	"github.com/Spok95/crod-stock-bot/internal/domain/extracts"
	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/Spok95/crod-stock-bot/internal/domain/users"
	"github.com/Spok95/crod-stock-bot/internal/infra/extract"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Send the Stock Data export (.xlsx, .xls, .csv or .parquet) as a document.\n\n" +
	"/start — register and show the menu\n" +
	"/today — reference date used for Current/Yesterday's/Previous Stock\n" +
	"/summary — stock summary for the loaded extract\n" +
	"/help — this help"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		u, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			b.log.Error("register user failed", "tg_id", msg.From.ID, "err", err)
			b.reply(chatID, "Error: could not save your profile.")
			return
		}
		if _, _, err := b.activeTable(ctx, chatID); errors.Is(err, errNoExtract) || errors.Is(err, errExtractGone) {
			_ = b.states.Set(ctx, chatID, dialog.StateAwaitFile, dialog.Payload{})
		}
		m := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Hello, %s! This bot summarizes CROD stock for CHKO and CHKI.\nUpload the Stock Data file to proceed.",
			u.DisplayName()))
		m.ReplyMarkup = mainReplyKeyboard()
		b.send(m)

	case "help":
		b.reply(chatID, helpText)

	case "today":
		b.reply(chatID, todayText(b.opts.Clock(), b.opts.PinnedClock))

	case "summary":
		b.showSummary(ctx, chatID, msg.From.ID)

	default:
		b.reply(chatID, "Unknown command. Type /help")
	}
}

func (b *Bot) handleStateMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case btnSummary:
		b.showSummary(ctx, chatID, msg.From.ID)
		return
	case btnWarehouses:
		b.showWarehouses(ctx, chatID, msg.From.ID)
		return
	case btnFullReport:
		b.exportFull(ctx, chatID, msg.From.ID)
		return
	case btnUpload:
		st, _ := b.states.Get(ctx, chatID)
		payload := dialog.Payload{}
		if st != nil && st.Payload != nil {
			payload = st.Payload
		}
		next := dialog.StateAwaitFile
		if _, ok := st.Digest(); ok {
			// keep the active extract until a new one loads
			next = dialog.StateViewing
		}
		_ = b.states.Set(ctx, chatID, next, payload)
		b.reply(chatID, "Send the Stock Data file (.xlsx, .xls, .csv or .parquet) as a document.")
		return
	}

	st, _ := b.states.Get(ctx, chatID)
	if st != nil && st.State == dialog.StateAwaitFile {
		b.reply(chatID, "Please send the stock extract as a document, not as text.")
		return
	}
	b.reply(chatID, "Use the menu buttons or type /help")
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*users.User, error) {
	role := users.RoleViewer
	if b.opts.AdminChatID != 0 && from.ID == b.opts.AdminChatID {
		role = users.RoleAdmin
	}
	return b.users.UpsertFromTelegram(ctx, users.Telegram{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}, role)
}

// uploader resolves the sender of a document, registering them on the
// first upload without /start.
func (b *Bot) uploader(ctx context.Context, from *tgbotapi.User) (*users.User, error) {
	u, err := b.users.GetByTelegramID(ctx, from.ID)
	if err != nil || u != nil {
		return u, err
	}
	return b.ensureUser(ctx, from)
}

// handleDocument loads an uploaded extract. On failure the previous
// extract of the chat stays active.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	log := b.log.With("chat_id", chatID, "file", doc.FileName)

	if b.opts.MaxUploadBytes > 0 && int64(doc.FileSize) > b.opts.MaxUploadBytes {
		b.reply(chatID, fmt.Sprintf("❌ The file is too large (limit %d MB).", b.opts.MaxUploadBytes>>20))
		return
	}
	if _, err := extract.DetectFormat(doc.FileName); err != nil {
		b.reply(chatID, "❌ Data error: "+err.Error())
		return
	}

	u, err := b.uploader(ctx, msg.From)
	if err != nil {
		log.Error("resolve uploader failed", "err", err)
		b.reply(chatID, "Error: could not save your profile.")
		return
	}

	data, err := b.downloadTelegramFile(ctx, doc.FileID, b.opts.MaxUploadBytes)
	if err != nil {
		log.Error("download failed", "err", err)
		if errors.Is(err, errTooLarge) {
			b.reply(chatID, fmt.Sprintf("❌ The file is too large (limit %d MB).", b.opts.MaxUploadBytes>>20))
			return
		}
		b.reply(chatID, "Could not download the file from Telegram: "+err.Error())
		return
	}

	table, err := b.loader.Load(ctx, doc.FileName, data)
	if err != nil {
		var schemaErr *stock.SchemaError
		var formatErr *stock.SourceFormatError
		if errors.As(err, &schemaErr) || errors.As(err, &formatErr) {
			b.reply(chatID, "❌ Data error: "+err.Error())
			return
		}
		b.reply(chatID, "Error: "+err.Error())
		return
	}

	digest := stock.Digest(data)
	if err := b.store.Put(ctx, digest, table); err != nil {
		log.Error("store table failed", "err", err)
		b.reply(chatID, "Error: could not keep the extract, please try again.")
		return
	}

	format, _ := extract.DetectFormat(doc.FileName)
	audit := extracts.New(digest, doc.FileName, string(format), table.Len(), table.InvalidDates().Count, u.TelegramID)
	if err := b.extracts.Save(ctx, &audit); err != nil {
		log.Error("save extract audit failed", "err", err)
	}

	ref := b.reference(stock.OpSummarize, digest)
	sum := b.memo.Summarize(digest, table, ref)

	b.clearPrevStep(ctx, chatID)
	m := tgbotapi.NewMessage(chatID, truncate(loadedText(doc.FileName, table, sum, ref)))
	m.ReplyMarkup = warehouseKeyboard()
	mid := b.sendMsg(m)
	b.saveLastStep(ctx, chatID, dialog.StateViewing, dialog.Payload{
		dialog.KeyDigest:   digest,
		dialog.KeyFileName: doc.FileName,
	}, mid)
	log.Info("extract activated", "digest", shortDigest(digest), "rows", table.Len(), "user", u.TelegramID)
}

// showSummary re-renders the KPI block with the current reference date.
func (b *Bot) showSummary(ctx context.Context, chatID, tgID int64) {
	digest, table, err := b.activeTable(ctx, chatID)
	if err != nil {
		b.explainMissing(ctx, chatID, tgID, err)
		return
	}
	ref := b.reference(stock.OpSummarize, digest)
	sum := b.memo.Summarize(digest, table, ref)

	b.clearPrevStep(ctx, chatID)
	m := tgbotapi.NewMessage(chatID, kpiText(sum, ref))
	m.ReplyMarkup = warehouseKeyboard()
	b.rememberView(ctx, chatID, b.sendMsg(m))
}

func (b *Bot) showWarehouses(ctx context.Context, chatID, tgID int64) {
	if _, _, err := b.activeTable(ctx, chatID); err != nil {
		b.explainMissing(ctx, chatID, tgID, err)
		return
	}
	b.clearPrevStep(ctx, chatID)
	m := tgbotapi.NewMessage(chatID, "📊 Stock details by warehouse. Choose a warehouse:")
	m.ReplyMarkup = warehouseKeyboard()
	b.rememberView(ctx, chatID, b.sendMsg(m))
}

// rememberView stores the id of the latest view, keeping the active extract.
func (b *Bot) rememberView(ctx context.Context, chatID int64, mid int) {
	if mid == 0 {
		return
	}
	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		return
	}
	b.saveLastStep(ctx, chatID, dialog.StateViewing, st.Payload, mid)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	switch {
	case data == "nav:cancel":
		b.editTextAndClear(chatID, msgID, "Closed.")
		_ = b.answerCallback(cb, "", false)

	case data == "nav:back":
		b.editTextAndMarkup(chatID, msgID, "📊 Stock details by warehouse. Choose a warehouse:", warehouseKeyboard())
		_ = b.answerCallback(cb, "", false)

	case strings.HasPrefix(data, "wh:"):
		wh := strings.TrimPrefix(data, "wh:")
		if !isTracked(wh) {
			_ = b.answerCallback(cb, "Unknown warehouse", true)
			return
		}
		b.editTextAndMarkup(chatID, msgID, fmt.Sprintf("Stock Status for %s. Choose stock:", wh), bucketKeyboard(wh))
		_ = b.answerCallback(cb, "", false)

	case strings.HasPrefix(data, "cat:"):
		wh, bucket, err := parseView(data)
		if err != nil {
			_ = b.answerCallback(cb, err.Error(), true)
			return
		}
		b.showCategory(ctx, cb, wh, bucket)

	case strings.HasPrefix(data, "xls:"):
		wh, bucket, err := parseView(data)
		if err != nil {
			_ = b.answerCallback(cb, err.Error(), true)
			return
		}
		_ = b.answerCallback(cb, "Preparing the file…", false)
		b.exportCategory(ctx, chatID, cb.From.ID, wh, bucket)

	case data == "rep:all":
		_ = b.answerCallback(cb, "Preparing the full report…", false)
		b.exportFull(ctx, chatID, cb.From.ID)

	default:
		_ = b.answerCallback(cb, "Unknown action", false)
	}
}

func (b *Bot) showCategory(ctx context.Context, cb *tgbotapi.CallbackQuery, wh string, bucket stock.Bucket) {
	chatID := cb.Message.Chat.ID
	digest, table, err := b.activeTable(ctx, chatID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.explainMissing(ctx, chatID, cb.From.ID, err)
		return
	}
	ref := b.reference(stock.OpCategorize, digest)
	cs := b.memo.Categorize(digest, table, wh, bucket, ref)

	text := truncate(categoryText(cs, ref, b.opts.PreviewRows))
	b.editTextAndMarkup(chatID, cb.Message.MessageID, text, categoryKeyboard(wh, bucket))
	_ = b.answerCallback(cb, "", false)
}

func (b *Bot) exportCategory(ctx context.Context, chatID, tgID int64, wh string, bucket stock.Bucket) {
	digest, table, err := b.activeTable(ctx, chatID)
	if err != nil {
		b.explainMissing(ctx, chatID, tgID, err)
		return
	}
	ref := b.reference(stock.OpCategorize, digest)
	cs := b.memo.Categorize(digest, table, wh, bucket, ref)

	data, err := categoryWorkbook(cs)
	if err != nil {
		b.log.Error("build category workbook failed", "warehouse", wh, "bucket", bucket, "err", err)
		b.reply(chatID, "Error: could not build the Excel file.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("stock_%s_%s_%s.xlsx", wh, bucket, stock.Day(ref).Format("20060102")),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("%s · %s", wh, bucketTitle(bucket, ref))
	b.send(doc)
}

func (b *Bot) exportFull(ctx context.Context, chatID, tgID int64) {
	digest, table, err := b.activeTable(ctx, chatID)
	if err != nil {
		b.explainMissing(ctx, chatID, tgID, err)
		return
	}
	ref := b.reference("report", digest)

	reportCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	data, err := fullReport(reportCtx, b.memo, digest, table, ref)
	if err != nil {
		b.log.Error("build full report failed", "err", err)
		b.reply(chatID, "Error: could not build the report.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("crod_stock_%s.xlsx", stock.Day(ref).Format("20060102")),
		Bytes: data,
	})
	doc.Caption = "CROD stock report for CHKO and CHKI"
	b.send(doc)
}
