// Package bot реализует диалоговый интерфейс Telegram-бота: главное меню,
// покупку подписки, проверку статуса и сценарий отмены. Обновления
// забираются long poll-ом, вебхук Telegram не используется.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/models"
	"github.com/ar2em/subscription-bot/internal/services/subscription"
	"github.com/ar2em/subscription-bot/internal/telegram"
)

const (
	pollTimeoutSec = 30
	pollRetryDelay = 5 * time.Second
)

// Subscriptions — операции жизненного цикла подписки, нужные диалогам бота.
type Subscriptions interface {
	RegisterUser(ctx context.Context, userID int64, username, firstName string) error
	Status(ctx context.Context, userID int64) (*models.Subscription, error)
	HasPaymentAttempt(ctx context.Context, userID int64) (bool, error)
	Cancel(ctx context.Context, userID int64, username, reason string) error
	Stats(ctx context.Context) (*models.Stats, error)
}

// Payments выдаёт ссылку на оплату у платёжного провайдера.
type Payments interface {
	CreatePaymentLink(ctx context.Context, userID int64, username string) (string, error)
}

// TelegramAPI — методы Bot API, которыми пользуется диспетчер.
type TelegramAPI interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	AnswerCallbackQueryAlert(ctx context.Context, callbackID, text string) error
}

// Bot — диспетчер обновлений Telegram.
type Bot struct {
	tg       TelegramAPI
	subs     Subscriptions
	payments Payments
	log      *slog.Logger

	supportName   string
	supportUserID int64
	adminIDs      []int64
	price         float64
	currency      string
	durationDays  int

	// pendingCancel хранит пользователей, от которых бот ждёт причину
	// отмены следующим текстовым сообщением.
	mu            sync.Mutex
	pendingCancel map[int64]struct{}
}

// New собирает диспетчер поверх клиента Bot API и сервисов подписок и оплат.
func New(tg TelegramAPI, subs Subscriptions, payments Payments, log *slog.Logger, cfg *config.Config) *Bot {
	return &Bot{
		tg:            tg,
		subs:          subs,
		payments:      payments,
		log:           log,
		supportName:   cfg.SupportName,
		supportUserID: cfg.SupportUserID,
		adminIDs:      cfg.AdminIDs,
		price:         cfg.Price,
		currency:      cfg.Currency,
		durationDays:  cfg.DurationDays,
		pendingCancel: make(map[int64]struct{}),
	}
}

// Run крутит цикл getUpdates до отмены контекста. Ошибки опроса не фатальны:
// после паузы цикл продолжает с того же offset.
func (b *Bot) Run(ctx context.Context) error {
	const op = "bot.Run"

	b.log.Info("bot dispatcher started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot dispatcher stopped")
			return nil
		default:
		}

		updates, err := b.tg.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				b.log.Info("bot dispatcher stopped")
				return nil
			}
			b.log.Error("failed to get updates", slog.String("op", op), sl.Err(err))
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	userID := msg.From.ID

	if b.takePendingCancel(userID) {
		b.handleCancelReason(ctx, msg)
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case "/start":
		b.cmdStart(ctx, msg)
	case "/stats":
		b.cmdStats(ctx, msg)
	}
}

func (b *Bot) cmdStart(ctx context.Context, msg *telegram.Message) {
	const op = "bot.cmdStart"
	userID := msg.From.ID

	if err := b.subs.RegisterUser(ctx, userID, msg.From.Username, msg.From.FirstName); err != nil {
		b.log.Error("failed to register user", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
	}

	b.sendMainMenu(ctx, msg.Chat.ID, userID, msg.From.FirstName)
}

// sendMainMenu подбирает главное меню по состоянию пользователя: у активного
// подписчика нет кнопки покупки, у пробовавшего оплатить есть кнопка статуса.
func (b *Bot) sendMainMenu(ctx context.Context, chatID, userID int64, firstName string) {
	const op = "bot.sendMainMenu"

	markup := mainKeyboardNewUser()
	active, err := b.hasActiveSubscription(ctx, userID)
	if err != nil {
		b.log.Error("failed to check subscription", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
	}
	if active {
		markup = mainKeyboardSubscribed()
	} else {
		attempted, err := b.subs.HasPaymentAttempt(ctx, userID)
		if err != nil {
			b.log.Error("failed to check payment attempt", slog.String("op", op),
				slog.Int64("user_id", userID), sl.Err(err))
		}
		if attempted {
			markup = mainKeyboardAfterPaymentAttempt()
		}
	}

	if err := b.tg.SendMessage(ctx, chatID, welcomeMessage(firstName), markup); err != nil {
		b.log.Error("failed to send main menu", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
	}
}

func (b *Bot) cmdStats(ctx context.Context, msg *telegram.Message) {
	const op = "bot.cmdStats"
	if !slices.Contains(b.adminIDs, msg.From.ID) {
		return
	}

	stats, err := b.subs.Stats(ctx)
	if err != nil {
		b.log.Error("failed to collect stats", slog.String("op", op), sl.Err(err))
		return
	}
	b.send(ctx, msg.Chat.ID, statsMessage(stats), nil)
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	const op = "bot.handleCallback"

	userID := cb.From.ID
	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}

	switch cb.Data {
	case "subscribe":
		b.onSubscribe(ctx, cb, chatID, userID)
	case "pay_now":
		b.onPayNow(ctx, cb, chatID, userID)
	case "status":
		b.ack(ctx, cb.ID)
		b.onStatus(ctx, chatID, userID)
	case "cancel_subscription":
		b.ack(ctx, cb.ID)
		b.send(ctx, chatID, cancelConfirmMessage(), cancelConfirmKeyboard())
	case "cancel_confirm_yes":
		b.ack(ctx, cb.ID)
		b.setPendingCancel(userID)
		b.send(ctx, chatID, cancelReasonPromptMessage(), nil)
	case "cancel_confirm_no":
		b.ack(ctx, cb.ID)
		b.clearPendingCancel(userID)
		b.send(ctx, chatID, cancelKeptMessage(), mainKeyboardSubscribed())
	case "support":
		b.ack(ctx, cb.ID)
		b.send(ctx, chatID, supportMessage(b.supportName), supportKeyboard(strings.TrimPrefix(b.supportName, "@")))
	case "back_to_main":
		b.ack(ctx, cb.ID)
		b.sendMainMenu(ctx, chatID, userID, cb.From.FirstName)
	default:
		b.log.Warn("unknown callback", slog.String("op", op), slog.String("data", cb.Data))
		b.ack(ctx, cb.ID)
	}
}

func (b *Bot) onSubscribe(ctx context.Context, cb *telegram.CallbackQuery, chatID, userID int64) {
	if b.answerIfActive(ctx, cb, userID) {
		return
	}
	b.ack(ctx, cb.ID)
	b.send(ctx, chatID, subscriptionOfferMessage(b.price, b.currency, b.durationDays), subscriptionOfferKeyboard())
}

func (b *Bot) onPayNow(ctx context.Context, cb *telegram.CallbackQuery, chatID, userID int64) {
	const op = "bot.onPayNow"

	if b.answerIfActive(ctx, cb, userID) {
		return
	}
	b.ack(ctx, cb.ID)

	url, err := b.payments.CreatePaymentLink(ctx, userID, cb.From.Username)
	if err != nil {
		b.log.Error("failed to create payment link", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
		b.send(ctx, chatID, paymentErrorMessage(), nil)
		return
	}
	b.send(ctx, chatID, paymentMessage(), paymentKeyboard(url))
}

func (b *Bot) onStatus(ctx context.Context, chatID, userID int64) {
	const op = "bot.onStatus"

	sub, err := b.subs.Status(ctx, userID)
	if err != nil {
		b.log.Error("failed to get subscription status", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
		return
	}
	now := time.Now()
	if sub == nil || !sub.IsAccessValid(now) {
		b.send(ctx, chatID, noSubscriptionMessage(), subscriptionOfferKeyboard())
		return
	}

	daysLeft := int(time.Until(sub.ExpiresAt).Hours() / 24)
	if daysLeft < 0 {
		daysLeft = 0
	}

	markup := backKeyboard()
	if sub.Status == models.StatusActive {
		markup = statusKeyboardActive()
	}
	b.send(ctx, chatID, statusActiveMessage(sub, daysLeft), markup)
}

func (b *Bot) handleCancelReason(ctx context.Context, msg *telegram.Message) {
	const op = "bot.handleCancelReason"
	userID := msg.From.ID

	err := b.subs.Cancel(ctx, userID, msg.From.Username, msg.Text)
	if errors.Is(err, subscription.ErrNoSubscription) {
		b.send(ctx, msg.Chat.ID, noSubscriptionMessage(), subscriptionOfferKeyboard())
		return
	}
	if err != nil {
		b.log.Error("failed to cancel subscription", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
		b.send(ctx, msg.Chat.ID, cancelErrorMessage(), nil)
		return
	}

	b.log.Info("subscription cancelled by user", slog.Int64("user_id", userID))
	b.send(ctx, msg.Chat.ID, cancelDoneMessage(), mainKeyboardNewUser())

	if b.supportUserID != 0 {
		notice := cancelSupportNotification(userID, msg.From.Username, msg.Text)
		if err := b.tg.SendMessage(ctx, b.supportUserID, notice, nil); err != nil {
			b.log.Warn("failed to notify support about cancellation",
				slog.String("op", op), sl.Err(err))
		}
	}
}

// hasActiveSubscription сообщает, есть ли у пользователя действующая
// неотменённая подписка. Отменённая с остатком срока сюда не попадает:
// доступ она ещё даёт, но передумавший пользователь должен иметь
// возможность купить заново сразу, не дожидаясь истечения.
func (b *Bot) hasActiveSubscription(ctx context.Context, userID int64) (bool, error) {
	sub, err := b.subs.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.Status == models.StatusActive && sub.IsAccessValid(time.Now()), nil
}

// answerIfActive отвечает всплывающим окном и возвращает true, если подписка
// пользователя уже действует и покупать новую не нужно.
func (b *Bot) answerIfActive(ctx context.Context, cb *telegram.CallbackQuery, userID int64) bool {
	const op = "bot.answerIfActive"

	active, err := b.hasActiveSubscription(ctx, userID)
	if err != nil {
		b.log.Error("failed to check subscription", slog.String("op", op),
			slog.Int64("user_id", userID), sl.Err(err))
		return false
	}
	if !active {
		return false
	}
	if err := b.tg.AnswerCallbackQueryAlert(ctx, cb.ID, alreadyActiveAlert()); err != nil {
		b.log.Warn("failed to answer callback", slog.String("op", op), sl.Err(err))
	}
	return true
}

func (b *Bot) ack(ctx context.Context, callbackID string) {
	if err := b.tg.AnswerCallbackQuery(ctx, callbackID); err != nil {
		b.log.Warn("failed to answer callback", sl.Err(err))
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	if err := b.tg.SendMessage(ctx, chatID, text, markup); err != nil {
		b.log.Error("failed to send message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

func (b *Bot) setPendingCancel(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingCancel[userID] = struct{}{}
}

func (b *Bot) clearPendingCancel(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pendingCancel, userID)
}

// takePendingCancel атомарно снимает отметку ожидания причины отмены.
func (b *Bot) takePendingCancel(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pendingCancel[userID]; !ok {
		return false
	}
	delete(b.pendingCancel, userID)
	return true
}
