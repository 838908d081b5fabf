package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Verifier checks a product submission. It never fails; problems come back
// as a rejected result with the cause in Reason.
type Verifier interface {
	Verify(ctx context.Context, req verify.Request) verify.Result
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg      BotAPI
	state   BotState
	store   storage.Store
	adminID int64

	// Handlers
	submissionHandler *SubmissionHandler
	moderationHandler *ModerationHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store storage.Store, verifier Verifier, adminID int64, categories []string) *Bot {
	bot := &Bot{
		tg:      tg,
		store:   store,
		adminID: adminID,
	}

	bot.state = bot.NewBotState()
	bot.moderationHandler = NewModerationHandler(tg, store, adminID)
	bot.submissionHandler = NewSubmissionHandler(tg, store, verifier, bot.moderationHandler, categories)

	return bot
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// NotifyPendingCount sends the admin a reminder about products awaiting review.
func (b *Bot) NotifyPendingCount(count int) error {
	return b.moderationHandler.NotifyPendingCount(count)
}

// NotifyProductReviewed tells the producer about a decision made outside
// the bot, such as through the HTTP API.
func (b *Bot) NotifyProductReviewed(product *storage.Product) {
	b.moderationHandler.notifyProducer(product)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	// Determine user ID from the update
	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// Check if user is a registered producer (admin always allowed)
	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if userId != b.adminID {
		allowed, err := b.store.IsProducerAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userId).Msg("producer check failed")
			return // Fail closed
		}
		if !allowed {
			log.Debug().Int64("user_id", userId).Msg("dropping update from unknown user")
			return
		}
	}

	session := b.state.getUserSession(userId)

	// Helper to send sync or async based on flag
	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Str("text", update.Message.Text).Str("caption", update.Message.Caption).Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{
			Type:    "photo",
			Ctx:     ctx,
			Message: update.Message,
		})
	} else {
		send(SessionMessage{
			Type:    "text",
			Ctx:     ctx,
			Message: update.Message,
		})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
// No mutex locking is needed here since only one goroutine accesses session state.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "photo":
		b.submissionHandler.HandlePhoto(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	}
}

// handleTextMessage processes text messages.
// Called from session worker - no locking needed.
func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if !strings.HasPrefix(message.Text, "/") {
		if b.submissionHandler.HandleInput(ctx, session, message) {
			return
		}
	}

	b.handleCommand(ctx, session, message)
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start":
		session.reply(MsgStartPrompt)
	case "/iptal":
		if session.HasSubmission() {
			session.reset()
			session.replyAndRemoveCustomKeyboard(MsgCancelled)
			return
		}
		session.replyAndRemoveCustomKeyboard(MsgOk)
	case "/urunlerim":
		b.submissionHandler.HandleMyProducts(session)
	case "/bekleyenler":
		if b.isAdmin(session) {
			b.moderationHandler.HandlePendingCommand(session)
		}
	case "/onayla":
		if b.isAdmin(session) {
			b.moderationHandler.HandleDecisionCommand(session, command, args, storage.StatusApproved)
		}
	case "/reddet":
		if b.isAdmin(session) {
			b.moderationHandler.HandleDecisionCommand(session, command, args, storage.StatusRejected)
		}
	case "/admin":
		b.handleAdminCommand(session, args)
	default:
		if session.HasSubmission() {
			session.reply(MsgSubmissionInProgress)
			return
		}
		session.reply(MsgUnknownInput)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	b.tg.Request(callback)

	if strings.HasPrefix(query.Data, callbackApprovePrefix) || strings.HasPrefix(query.Data, callbackRejectPrefix) {
		if b.isAdmin(session) {
			b.moderationHandler.HandleCallback(session, query)
		}
	}
}

// isAdmin reports whether the session belongs to the moderator. Producers
// calling moderation commands are dropped silently.
func (b *Bot) isAdmin(session *UserSession) bool {
	return session.userId == b.adminID
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command (defense in depth check).
func (b *Bot) handleAdminCommand(session *UserSession, args []string) {
	if !b.isAdmin(session) {
		return
	}

	if len(args) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch args[0] {
	case "ciftci":
		if len(args) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		b.handleAdminProducerCommand(session, args[1], args[2:])
	default:
		session.reply(MsgAdminUsage)
	}
}

// handleAdminProducerCommand handles /admin ciftci subcommands.
func (b *Bot) handleAdminProducerCommand(session *UserSession, action string, args []string) {
	switch action {
	case "ekle":
		if len(args) < 1 {
			session.reply(MsgAdminProducerAddUsage)
			return
		}
		producerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminInvalidID)
			return
		}
		if err := b.store.AddProducer(producerID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminProducerAdded, producerID)

	case "sil":
		if len(args) < 1 {
			session.reply(MsgAdminProducerRmUsage)
			return
		}
		producerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminInvalidID)
			return
		}
		if err := b.store.RemoveProducer(producerID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminProducerRemoved, producerID)

	case "liste":
		producers, err := b.store.GetProducers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(producers) == 0 {
			session.reply(MsgAdminNoProducers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminProducersHeader)
		for _, p := range producers {
			sb.WriteString(fmt.Sprintf("• `%d` (eklendi %s)\n", p.TelegramID, p.AddedAt.Format("2006-01-02")))
		}
		session.reply("%s", sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
