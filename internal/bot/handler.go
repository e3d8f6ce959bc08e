// Package bot turns Telegram updates into item lookups and label writes.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"warehouse_bot/internal/items"
	"warehouse_bot/internal/notifications"
	"warehouse_bot/internal/telegram"

	"github.com/rs/zerolog/log"
)

const checkPrefix = "check:"

// Sender is the part of the Bot API the handler replies through.
type Sender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
	EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *telegram.InlineKeyboardMarkup) error
}

// Notifier is told about every label the bot marks.
type Notifier interface {
	NotifyLabel(ctx context.Context, item notifications.ItemInfo)
}

type Handler struct {
	store     items.Store
	sender    Sender
	notifier  Notifier
	webAppURL string
}

func NewHandler(store items.Store, sender Sender, notifier Notifier, webAppURL string) *Handler {
	return &Handler{
		store:     store,
		sender:    sender,
		notifier:  notifier,
		webAppURL: webAppURL,
	}
}

// HandleUpdate dispatches one update. Failures are reported to the user
// and logged; nothing is returned to the poller.
func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	default:
		log.Debug().Int("update_id", update.UpdateID).Msg("Ignoring update without message")
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	if msg.WebAppData != nil {
		h.lookup(ctx, chatID, msg.WebAppData.Data)
		return
	}
	if msg.Text == "" {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if isStartCommand(text) {
		h.sendStart(ctx, chatID)
		return
	}
	h.lookup(ctx, chatID, text)
}

func isStartCommand(text string) bool {
	command := strings.Fields(text)
	if len(command) == 0 {
		return false
	}
	name, _, _ := strings.Cut(command[0], "@")
	return name == "/start"
}

func (h *Handler) sendStart(ctx context.Context, chatID int64) {
	params := telegram.SendMessageParams{
		ChatID: chatID,
		Text: "🏭 <b>Warehouse Bot</b>\n\n" +
			"Send inventory_id from QR code as text message,\n" +
			"or use the scanner below:",
		ParseMode: "HTML",
	}
	if h.webAppURL != "" {
		params.ReplyMarkup = &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "📷 Open QR Scanner", WebApp: &telegram.WebAppInfo{URL: h.webAppURL}},
			}},
		}
	}
	h.send(ctx, params)
}

// lookup finds the item and offers a button to mark its label.
func (h *Handler) lookup(ctx context.Context, chatID int64, raw string) {
	inventoryID := strings.TrimSpace(raw)
	if inventoryID == "" {
		h.reply(ctx, chatID, "❌ Empty message")
		return
	}

	h.reply(ctx, chatID, fmt.Sprintf("🔍 Searching for: %s...", inventoryID))

	// Callback data is capped; ids that do not fit are marked right away.
	if len(checkPrefix)+len(inventoryID) > telegram.MaxCallbackData {
		h.mark(ctx, chatID, inventoryID)
		return
	}

	row, found, err := h.store.FindByInventoryID(ctx, inventoryID)
	if err != nil {
		log.Error().Err(err).Str("inventory_id", inventoryID).Int64("chat_id", chatID).Msg("Item lookup failed")
		h.reply(ctx, chatID, fmt.Sprintf("❌ Error processing: %v", err))
		return
	}
	if !found {
		h.reply(ctx, chatID, fmt.Sprintf("❌ Item not found: %s", inventoryID))
		return
	}

	params := telegram.SendMessageParams{
		ChatID:    chatID,
		Text:      formatItemCard(row),
		ParseMode: "HTML",
	}
	if !row.Checkbox.Checked() {
		params.ReplyMarkup = &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "🏷 Mark label", CallbackData: checkPrefix + inventoryID},
			}},
		}
	}
	h.send(ctx, params)
}

func (h *Handler) handleCallback(ctx context.Context, query *telegram.CallbackQuery) {
	inventoryID, ok := strings.CutPrefix(query.Data, checkPrefix)
	if !ok {
		h.answer(ctx, query.ID, "")
		log.Debug().Str("data", query.Data).Msg("Ignoring unknown callback")
		return
	}
	if query.Message == nil {
		h.answer(ctx, query.ID, "Message is too old, send the id again")
		return
	}

	chatID := query.Message.Chat.ID
	answer := h.mark(ctx, chatID, inventoryID)
	h.answer(ctx, query.ID, answer)

	if err := h.sender.EditMessageReplyMarkup(ctx, chatID, query.Message.MessageID, nil); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to remove keyboard")
	}
}

// mark re-resolves the id and sets its checkbox. It returns a short status
// for callback answers.
func (h *Handler) mark(ctx context.Context, chatID int64, inventoryID string) string {
	row, found, err := h.store.CheckByInventoryID(ctx, inventoryID, true)
	if err != nil {
		log.Error().Err(err).Str("inventory_id", inventoryID).Int64("chat_id", chatID).Msg("Failed to mark label")
		h.reply(ctx, chatID, fmt.Sprintf("❌ Error processing: %v", err))
		return "Error"
	}
	if !found {
		h.reply(ctx, chatID, fmt.Sprintf("❌ Item not found: %s", inventoryID))
		return "Not found"
	}

	log.Info().
		Str("inventory_id", inventoryID).
		Int("row", row.RowIndex).
		Int64("chat_id", chatID).
		Msg("Label marked")

	if h.notifier != nil {
		h.notifier.NotifyLabel(ctx, notifications.ItemInfo{
			InventoryID: inventoryID,
			Name:        row.Name(),
			Location:    row.Location(),
			Row:         row.RowIndex,
			Checked:     true,
			Source:      "bot",
		})
	}

	h.reply(ctx, chatID, fmt.Sprintf("✅ Label marked for inventory_id: %s (row %d)", inventoryID, row.RowIndex))
	return "Label marked"
}

func formatItemCard(row items.Row) string {
	var sb strings.Builder

	name := row.Name()
	if name == "" {
		name = "(no name)"
	}
	sb.WriteString(fmt.Sprintf("📦 <b>%s</b>\n", html.EscapeString(name)))
	sb.WriteString(fmt.Sprintf("ID: <code>%s</code>\n", html.EscapeString(strings.TrimSpace(row.InventoryID))))
	if location := row.Location(); location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", html.EscapeString(location)))
	}
	if number := row.InventoryNumber(); number != "" {
		sb.WriteString(fmt.Sprintf("Inventory number: %s\n", html.EscapeString(number)))
	}
	sb.WriteString(fmt.Sprintf("Row: %d\n", row.RowIndex))

	switch row.Checkbox {
	case items.CheckboxTrue:
		sb.WriteString("Label: ✅ marked")
	case items.CheckboxFalse:
		sb.WriteString("Label: ⬜ not marked")
	default:
		sb.WriteString("Label: not set")
	}

	return sb.String()
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.send(ctx, telegram.SendMessageParams{ChatID: chatID, Text: text})
}

func (h *Handler) send(ctx context.Context, params telegram.SendMessageParams) {
	if _, err := h.sender.SendMessage(ctx, params); err != nil {
		log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
	}
}

func (h *Handler) answer(ctx context.Context, callbackQueryID, text string) {
	if err := h.sender.AnswerCallbackQuery(ctx, callbackQueryID, text); err != nil {
		log.Debug().Err(err).Str("callback_query_id", callbackQueryID).Msg("Failed to answer callback")
	}
}
