package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/rs/zerolog/log"
)

const myProductsLimit = 20

// SubmissionHandler walks a producer through adding a product:
// photo, name, description and category, then verification.
type SubmissionHandler struct {
	tg         BotAPI
	store      storage.Store
	verifier   Verifier
	moderation *ModerationHandler
	downloader *ImageDownloader
	categories []string
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(tg BotAPI, store storage.Store, verifier Verifier, moderation *ModerationHandler, categories []string) *SubmissionHandler {
	return &SubmissionHandler{
		tg:         tg,
		store:      store,
		verifier:   verifier,
		moderation: moderation,
		downloader: NewImageDownloader(),
		categories: categories,
	}
}

// HandlePhoto starts a new submission, or swaps the photo of the one in progress.
// A caption on the first photo is taken as the product name.
func (h *SubmissionHandler) HandlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	// Telegram sends several sizes; the last one is the largest
	photo := message.Photo[len(message.Photo)-1]
	img, err := h.downloader.DownloadFromTelegramFileID(ctx, h.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("failed to download photo")
		session.reply(MsgImageDownloadFailed)
		return
	}

	if session.submission != nil {
		session.submission.ImageRef = img.DataURI()
		session.reply(MsgPhotoReplaced)
		return
	}

	sub := &Submission{
		Step:      StepAwaitingName,
		ImageRef:  img.DataURI(),
		StartedAt: time.Now(),
	}
	session.setSubmission(sub)

	if name := strings.TrimSpace(message.Caption); name != "" {
		sub.Name = name
		session.setSubmissionStep(StepAwaitingDescription)
		session.reply(MsgAskDescription)
		return
	}
	session.reply(MsgAskProductName)
}

// HandleInput consumes a text answer for the current submission step.
// Returns true if the message was handled.
func (h *SubmissionHandler) HandleInput(ctx context.Context, session *UserSession, message *tgbotapi.Message) bool {
	sub := session.submission
	if sub == nil || sub.Step == StepNone {
		return false
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		session.reply(MsgEmptyInput)
		return true
	}

	switch sub.Step {
	case StepAwaitingName:
		sub.Name = text
		session.setSubmissionStep(StepAwaitingDescription)
		session.reply(MsgAskDescription)
	case StepAwaitingDescription:
		sub.Description = text
		session.setSubmissionStep(StepAwaitingCategory)
		h.askCategory(session, MsgAskCategory)
	case StepAwaitingCategory:
		category, ok := h.matchCategory(text)
		if !ok {
			h.askCategory(session, MsgInvalidCategory)
			return true
		}
		sub.Category = category
		h.submit(ctx, session)
	}
	return true
}

func (h *SubmissionHandler) askCategory(session *UserSession, text string) {
	if len(h.categories) == 0 {
		session.reply(text)
		return
	}
	msg := tgbotapi.NewMessage(session.userId, text)
	msg.ReplyMarkup = makeCategoryKeyboard(h.categories)
	session.replyWithMessage(msg)
}

// matchCategory maps the user's answer to a configured category. Any
// non-empty answer is accepted when no categories are configured.
func (h *SubmissionHandler) matchCategory(text string) (string, bool) {
	if len(h.categories) == 0 {
		return text, true
	}
	for _, c := range h.categories {
		if strings.EqualFold(c, text) {
			return c, true
		}
	}
	return "", false
}

func makeCategoryKeyboard(categories []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(categories); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(categories[i]))
		if i+1 < len(categories) {
			row = append(row, tgbotapi.NewKeyboardButton(categories[i+1]))
		}
		rows = append(rows, row)
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	return keyboard
}

// submit verifies the completed submission and stores it as approved or
// pending depending on the verdict.
func (h *SubmissionHandler) submit(ctx context.Context, session *UserSession) {
	sub := session.submission
	session.replyAndRemoveCustomKeyboard(MsgVerifying)

	typingCtx, cancelTyping := context.WithCancel(ctx)
	go session.startTypingLoop(typingCtx)
	result := h.verifier.Verify(ctx, verify.Request{
		ProductName:  sub.Name,
		Description:  sub.Description,
		CategoryName: sub.Category,
		ImageRef:     sub.ImageRef,
	})
	cancelTyping()

	status := storage.StatusPending
	if result.AutoApproved {
		status = storage.StatusApproved
	}

	product, err := h.store.CreateProduct(&storage.Product{
		ProducerID:   session.userId,
		Name:         sub.Name,
		Description:  sub.Description,
		Category:     sub.Category,
		ImageRef:     sub.ImageRef,
		Status:       status,
		IsValid:      result.IsValid,
		Confidence:   result.Confidence,
		Reason:       result.Reason,
		AutoApproved: result.AutoApproved,
	})
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("failed to save product")
		session.reply(MsgProductSaveFailed)
		return
	}
	session.reset()

	log.Info().
		Str("productId", product.ID).
		Int64("userId", session.userId).
		Str("status", string(product.Status)).
		Float64("confidence", result.Confidence).
		Dur("elapsed", time.Since(sub.StartedAt)).
		Msg("product submitted")

	name := escapeMarkdown(product.Name)
	percent := confidencePercent(result.Confidence)
	reason := escapeMarkdown(result.Reason)
	if product.Status == storage.StatusApproved {
		session.reply(MsgProductAutoApproved, name, percent, reason)
		return
	}
	session.reply(MsgProductPendingReview, name, percent, reason)
	h.moderation.NotifyNewPending(product)
}

// HandleMyProducts handles /urunlerim - lists the producer's latest products.
func (h *SubmissionHandler) HandleMyProducts(session *UserSession) {
	products, err := h.store.ListProductsByProducer(session.userId, myProductsLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(products) == 0 {
		session.reply(MsgNoProducts)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgMyProductsHeader)
	for _, p := range products {
		sb.WriteString(fmt.Sprintf(MsgMyProductLine, statusIcon(p.Status), escapeMarkdown(p.Name), escapeMarkdown(p.Category)))
	}
	session.reply("%s", sb.String())
}

func statusIcon(status storage.ProductStatus) string {
	switch status {
	case storage.StatusApproved:
		return MsgStatusApproved
	case storage.StatusRejected:
		return MsgStatusRejected
	default:
		return MsgStatusPending
	}
}
