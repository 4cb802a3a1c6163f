package bot

import (
	"fmt"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnSummary    = "📊 Summary"
	btnWarehouses = "🏬 Warehouses"
	btnUpload     = "📁 Upload extract"
	btnFullReport = "📥 Full report"
)

func navKeyboard(back bool, cancel bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	if back {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "nav:back"))
	}
	if cancel {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "nav:cancel"))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func warehouseKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	for _, wh := range stock.TrackedWarehouses {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(wh, "wh:"+wh))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnFullReport, "rep:all"),
		),
	)
}

func bucketKeyboard(warehouse string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, b := range stock.Buckets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(bucketLabel(b), fmt.Sprintf("cat:%s:%s", warehouse, b)),
		))
	}
	rows = append(rows, navKeyboard(true, false).InlineKeyboard[0])
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoryKeyboard(warehouse string, b stock.Bucket) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 Export to Excel", fmt.Sprintf("xls:%s:%s", warehouse, b)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "wh:"+warehouse),
		),
	)
}

func mainReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton(btnSummary), tgbotapi.NewKeyboardButton(btnWarehouses)},
			{tgbotapi.NewKeyboardButton(btnUpload), tgbotapi.NewKeyboardButton(btnFullReport)},
		},
	}
}
