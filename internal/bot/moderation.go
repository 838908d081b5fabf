package bot

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

const pendingListLimit = 20

// ModerationHandler lets the admin review products that were not
// auto-approved, and tells producers about the decision.
type ModerationHandler struct {
	tg      BotAPI
	store   storage.Store
	adminID int64
}

// NewModerationHandler creates a new moderation handler.
func NewModerationHandler(tg BotAPI, store storage.Store, adminID int64) *ModerationHandler {
	return &ModerationHandler{
		tg:      tg,
		store:   store,
		adminID: adminID,
	}
}

// HandlePendingCommand handles /bekleyenler - shows the oldest pending
// products, each with approve and reject buttons.
func (h *ModerationHandler) HandlePendingCommand(session *UserSession) {
	count, err := h.store.CountProductsByStatus(storage.StatusPending)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if count == 0 {
		session.reply(MsgNoPendingProducts)
		return
	}

	products, err := h.store.ListProductsByStatus(storage.StatusPending, pendingListLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}

	session.reply(MsgPendingHeader, count)
	for i := range products {
		msg := tgbotapi.NewMessage(session.userId, formatPendingProduct(&products[i]))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = makeModerationKeyboard(products[i].ID)
		session.replyWithMessage(msg)
	}
}

// HandleDecisionCommand handles /onayla <id> and /reddet <id>.
func (h *ModerationHandler) HandleDecisionCommand(session *UserSession, command string, args []string, status storage.ProductStatus) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		session.reply(MsgModerationUsage, command)
		return
	}
	h.decide(session, strings.TrimSpace(args[0]), status)
}

// HandleCallback handles the approve and reject buttons.
func (h *ModerationHandler) HandleCallback(session *UserSession, query *tgbotapi.CallbackQuery) {
	var status storage.ProductStatus
	var id string
	switch {
	case strings.HasPrefix(query.Data, callbackApprovePrefix):
		status = storage.StatusApproved
		id = strings.TrimPrefix(query.Data, callbackApprovePrefix)
	case strings.HasPrefix(query.Data, callbackRejectPrefix):
		status = storage.StatusRejected
		id = strings.TrimPrefix(query.Data, callbackRejectPrefix)
	default:
		return
	}

	// Remove the buttons so the same product is not decided twice by accident
	if query.Message != nil {
		edit := tgbotapi.NewEditMessageReplyMarkup(
			query.Message.Chat.ID,
			query.Message.MessageID,
			tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
		)
		h.tg.Request(edit)
	}

	h.decide(session, id, status)
}

func (h *ModerationHandler) decide(session *UserSession, id string, status storage.ProductStatus) {
	product, err := h.store.SetProductStatus(id, status, session.userId)
	if errors.Is(err, storage.ErrProductNotFound) {
		session.reply(MsgProductNotFound)
		return
	}
	if err != nil {
		session.replyWithError(err)
		return
	}

	log.Info().Str("productId", id).Str("status", string(status)).Int64("reviewedBy", session.userId).Msg("product reviewed")

	if status == storage.StatusApproved {
		session.reply(MsgProductApproved, escapeMarkdown(product.Name))
	} else {
		session.reply(MsgProductRejected, escapeMarkdown(product.Name))
	}
	h.notifyProducer(product)
}

// NotifyNewPending sends a freshly submitted pending product to the admin.
func (h *ModerationHandler) NotifyNewPending(product *storage.Product) {
	if h.adminID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(h.adminID, MsgAdminProductNeedsReview+formatPendingProduct(product))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = makeModerationKeyboard(product.ID)
	if _, err := h.tg.Send(msg); err != nil {
		log.Error().Err(err).Str("productId", product.ID).Msg("failed to notify admin")
	}
}

// NotifyPendingCount reminds the admin how many products wait for review.
func (h *ModerationHandler) NotifyPendingCount(count int) error {
	if h.adminID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(h.adminID, fmt.Sprintf(MsgPendingReminder, count))
	_, err := h.tg.Send(msg)
	return err
}

func (h *ModerationHandler) notifyProducer(product *storage.Product) {
	// Products created through the HTTP API have no Telegram producer
	if product.ProducerID == 0 || product.ProducerID == h.adminID {
		return
	}

	text := MsgProductRejectedNotice
	if product.Status == storage.StatusApproved {
		text = MsgProductApprovedNotice
	}
	msg := tgbotapi.NewMessage(product.ProducerID, fmt.Sprintf(text, escapeMarkdown(product.Name)))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.tg.Send(msg); err != nil {
		log.Error().Err(err).Int64("producerId", product.ProducerID).Msg("failed to notify producer")
	}
}

func formatPendingProduct(p *storage.Product) string {
	verdict := MsgVerdictInvalid
	if p.IsValid {
		verdict = MsgVerdictValid
	}
	return fmt.Sprintf(MsgPendingProduct,
		escapeMarkdown(p.Name),
		escapeMarkdown(p.Category),
		escapeMarkdown(p.Description),
		p.ProducerID,
		verdict,
		confidencePercent(p.Confidence),
		escapeMarkdown(p.Reason),
		p.ID,
	)
}

func makeModerationKeyboard(productID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnApprove, callbackApprovePrefix+productID),
			tgbotapi.NewInlineKeyboardButtonData(BtnReject, callbackRejectPrefix+productID),
		),
	)
}
