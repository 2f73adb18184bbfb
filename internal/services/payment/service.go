// Package payment связывает платёжный шлюз с выдачей подписок.
// Создание ссылки на оплату идёт синхронно из бота, а обработка
// платёжного события — фоновой задачей, чтобы webhook отвечал сразу.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/lib/tasks"
	"github.com/ar2em/subscription-bot/internal/models"
	"github.com/ar2em/subscription-bot/internal/paymentgateway"
	"github.com/ar2em/subscription-bot/internal/telegram"
)

// refPrefix отличает внешние идентификаторы платежей в subscription_ref.
const refPrefix = "tr_"

type Subscriptions interface {
	RegisterUser(ctx context.Context, userID int64, username, firstName string) error
	Grant(ctx context.Context, userID int64, days int, inviteLink, provider, transactionID string) (*models.Subscription, error)
	StatusByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error)
	MarkPaymentAttempt(ctx context.Context, userID int64) error
	IsActive(ctx context.Context, userID int64) (bool, error)
}

type TelegramAPI interface {
	CreateChatInviteLink(ctx context.Context, chatID int64) (string, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
}

type Service struct {
	subs    Subscriptions
	gateway paymentgateway.Gateway
	tg      TelegramAPI
	tasks   *tasks.Supervisor
	log     *slog.Logger

	channelID    int64
	durationDays int
}

func New(subs Subscriptions, gateway paymentgateway.Gateway, tg TelegramAPI,
	supervisor *tasks.Supervisor, log *slog.Logger, channelID int64, cfg config.Subscription) *Service {
	return &Service{
		subs:         subs,
		gateway:      gateway,
		tg:           tg,
		tasks:        supervisor,
		log:          log,
		channelID:    channelID,
		durationDays: cfg.DurationDays,
	}
}

// CreatePaymentLink возвращает ссылку на оплату и помечает попытку.
// Ошибка пометки не срывает оплату: флаг нужен только для статистики
// и выбора клавиатуры.
func (s *Service) CreatePaymentLink(ctx context.Context, userID int64, username string) (string, error) {
	if err := s.subs.MarkPaymentAttempt(ctx, userID); err != nil {
		s.log.Warn("failed to mark payment attempt", slog.Int64("user_id", userID), sl.Err(err))
	}
	return s.gateway.CreatePaymentLink(ctx, userID, username)
}

// HandleEvent принимает успешное платёжное событие и запускает фоновую
// выдачу подписки. Возвращает ошибку только если задачу не удалось
// запустить: сам результат выдачи webhook-у не важен.
func (s *Service) HandleEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.Status != models.PaymentStatusSucceeded {
		s.log.Info("ignoring payment event",
			slog.Int64("user_id", event.UserID),
			slog.String("status", event.Status))
		return nil
	}

	// Контекст запроса умирает сразу после ответа webhook-у,
	// поэтому задача получает контекст без его отмены.
	e := *event
	return s.tasks.Go(context.WithoutCancel(ctx), "process-payment", func(jobCtx context.Context) error {
		return s.processPayment(jobCtx, e)
	})
}

// processPayment выдаёт подписку после оплаты. Шаги независимы:
// неудача со ссылкой-приглашением не блокирует выдачу, а неудача
// уведомления никогда не откатывает уже выданную подписку.
func (s *Service) processPayment(ctx context.Context, event models.PaymentEvent) error {
	const op = "payment.processPayment"

	log := s.log.With(
		slog.Int64("user_id", event.UserID),
		slog.String("transaction_id", event.TransactionID))
	log.Info("processing payment", slog.String("amount", event.ChargeAmount()))

	// Провайдер может доставить один и тот же webhook повторно.
	ref := refPrefix + event.TransactionID
	if existing, err := s.subs.StatusByRef(ctx, ref); err != nil {
		log.Warn("failed to check for duplicate payment", sl.Err(err))
	} else if existing != nil {
		log.Info("payment already processed, skipping")
		return nil
	}

	if err := s.subs.RegisterUser(ctx, event.UserID, "", ""); err != nil {
		log.Warn("failed to upsert user", sl.Err(err))
	}

	inviteLink, err := s.tg.CreateChatInviteLink(ctx, s.channelID)
	if err != nil {
		log.Error("failed to create invite link", sl.Err(err))
		inviteLink = ""
	}

	sub, err := s.subs.Grant(ctx, event.UserID, 0, inviteLink, s.gateway.Name(), ref)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := successMessage(s.durationDays, sub.InviteLink)
	if err := s.tg.SendMessage(ctx, event.UserID, text, nil); err != nil {
		log.Warn("failed to notify user about granted access", sl.Err(err))
	}
	return nil
}

// GrantManual выдаёт подписку решением администратора, минуя оплату.
// Проходит те же шаги, что и выдача после платежа, но с провайдером
// admin_manual и подарочным текстом уведомления.
func (s *Service) GrantManual(ctx context.Context, userID int64, days int) (*models.Subscription, error) {
	const op = "payment.GrantManual"

	if err := s.subs.RegisterUser(ctx, userID, "", ""); err != nil {
		s.log.Warn("failed to upsert user", slog.Int64("user_id", userID), sl.Err(err))
	}

	inviteLink, err := s.tg.CreateChatInviteLink(ctx, s.channelID)
	if err != nil {
		s.log.Error("failed to create invite link",
			slog.Int64("user_id", userID), sl.Err(err))
		inviteLink = ""
	}

	sub, err := s.subs.Grant(ctx, userID, days, inviteLink, "admin_manual", "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if days <= 0 {
		days = s.durationDays
	}
	if err := s.tg.SendMessage(ctx, userID, giftMessage(days, sub.InviteLink), nil); err != nil {
		s.log.Warn("failed to notify user about granted access",
			slog.Int64("user_id", userID), sl.Err(err))
	}
	return sub, nil
}

func giftMessage(days int, inviteLink string) string {
	text := fmt.Sprintf(
		"🎁 <b>Вам выдана подписка!</b>\n\n"+
			"⏰ Срок: <b>%d дней</b>", days)
	if inviteLink != "" {
		text += fmt.Sprintf("\n🔗 Ссылка на канал:\n%s\n\n"+
			"⚠️ <i>Ссылка одноразовая и действует 24 часа.</i>", inviteLink)
	}
	return text
}

func successMessage(days int, inviteLink string) string {
	if inviteLink == "" {
		return fmt.Sprintf(
			"✅ <b>Оплата прошла успешно!</b>\n\n"+
				"Доступ открыт на <b>%d дней</b>, но создать ссылку-приглашение "+
				"не получилось. Напишите в поддержку, и вам пришлют её вручную.", days)
	}
	return fmt.Sprintf(
		"✅ <b>Оплата прошла успешно!</b>\n\n"+
			"Доступ открыт на <b>%d дней</b>.\n"+
			"Вот ваша ссылка:\n%s\n\n"+
			"⚠️ <i>Ссылка одноразовая и действует 24 часа.</i>", days, inviteLink)
}
