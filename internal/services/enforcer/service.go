// Package enforcer реализует ежесуточный контроль подписок: предупреждения
// об истечении и отзыв доступа у просроченных. Запускается раз в сутки
// в настроенный час, в настроенном часовом поясе.
package enforcer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/models"
	"github.com/ar2em/subscription-bot/internal/telegram"
)

type Repository interface {
	ListExpiring(ctx context.Context, withinDays int) ([]*models.ExpiringEntry, error)
	ListExpired(ctx context.Context) ([]*models.ExpiringEntry, error)
	MarkNotification(ctx context.Context, userID int64, notificationType string) error
	ExpireEntry(ctx context.Context, userID int64) error
}

type TelegramAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	BanChatMember(ctx context.Context, chatID, userID int64) error
	UnbanChatMember(ctx context.Context, chatID, userID int64) error
}

// Invalidator сбрасывает кеш статуса после смены статуса подписки.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

type Service struct {
	repo  Repository
	tg    TelegramAPI
	cache Invalidator
	log   *slog.Logger

	channelID     int64
	checkHour     int
	location      *time.Location
	warningDays   int
	markOnFailure bool
}

func New(repo Repository, tg TelegramAPI, cache Invalidator, log *slog.Logger,
	channelID int64, cfg config.Subscription) *Service {
	return &Service{
		repo:          repo,
		tg:            tg,
		cache:         cache,
		log:           log,
		channelID:     channelID,
		checkHour:     cfg.CheckHour,
		location:      time.FixedZone(fmt.Sprintf("UTC%+d", cfg.CheckTZOffset), cfg.CheckTZOffset*3600),
		warningDays:   cfg.WarningDays,
		markOnFailure: cfg.MarkWarningOnFailure,
	}
}

// NextRunIn возвращает время до ближайшего запуска проверки: сегодня в
// checkHour:00, а если этот момент уже прошёл — завтра.
func (s *Service) NextRunIn(now time.Time) time.Duration {
	now = now.In(s.location)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.checkHour, 0, 0, 0, s.location)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// Run крутит цикл ежесуточных проверок до отмены контекста.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("subscription enforcer started",
		slog.Int("check_hour", s.checkHour),
		slog.String("tz", s.location.String()))

	for {
		delay := s.NextRunIn(time.Now())
		s.log.Info("next subscription check scheduled", slog.Duration("in", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("subscription enforcer stopped")
			return nil
		case <-timer.C:
		}

		s.RunOnce(ctx)
	}
}

// RunOnce выполняет один проход проверки. Ошибки каждого этапа логируются
// и не прерывают второй этап: предупреждения не должны блокировать отзыв
// доступа и наоборот.
func (s *Service) RunOnce(ctx context.Context) {
	if err := s.sendExpiryWarnings(ctx); err != nil {
		s.log.Error("expiry warnings pass failed", sl.Err(err))
	}
	if err := s.revokeExpired(ctx); err != nil {
		s.log.Error("revocation pass failed", sl.Err(err))
	}
}

func (s *Service) sendExpiryWarnings(ctx context.Context) error {
	const op = "enforcer.sendExpiryWarnings"

	expiring, err := s.repo.ListExpiring(ctx, s.warningDays)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, item := range expiring {
		daysLeft := int(time.Until(item.ExpiresAt).Hours() / 24)
		if daysLeft < 0 {
			daysLeft = 0
		}

		err := s.tg.SendMessage(ctx, item.UserID, warningMessage(daysLeft), nil)
		if err != nil {
			s.log.Warn("failed to send expiry warning",
				slog.Int64("user_id", item.UserID), sl.Err(err))
			if !s.markOnFailure {
				continue
			}
		}

		if err := s.repo.MarkNotification(ctx, item.UserID,
			fmt.Sprintf("expiry_%dd", s.warningDays)); err != nil {
			s.log.Warn("failed to mark warning as sent",
				slog.Int64("user_id", item.UserID), sl.Err(err))
			continue
		}
		s.log.Info("expiry warning sent",
			slog.Int64("user_id", item.UserID), slog.Int("days_left", daysLeft))
	}
	return nil
}

func (s *Service) revokeExpired(ctx context.Context) error {
	const op = "enforcer.revokeExpired"

	expired, err := s.repo.ListExpired(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, item := range expired {
		if err := s.RevokeAccess(ctx, item.UserID); err != nil {
			s.log.Warn("failed to revoke access",
				slog.Int64("user_id", item.UserID), sl.Err(err))
		}
	}
	return nil
}

// RevokeAccess исключает пользователя из канала и переводит подписку в
// expired. Бан тут же снимается, чтобы после новой оплаты пользователь
// мог войти по свежей ссылке. Неудачи Telegram-шагов не мешают смене
// статуса, а неудача уведомления ни на что не влияет.
func (s *Service) RevokeAccess(ctx context.Context, userID int64) error {
	const op = "enforcer.RevokeAccess"

	if err := s.tg.BanChatMember(ctx, s.channelID, userID); err != nil {
		s.log.Warn("failed to kick user from channel",
			slog.Int64("user_id", userID), sl.Err(err))
	} else if err := s.tg.UnbanChatMember(ctx, s.channelID, userID); err != nil {
		s.log.Warn("failed to lift ban",
			slog.Int64("user_id", userID), sl.Err(err))
	}

	if err := s.repo.ExpireEntry(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.cache.Invalidate(ctx, userID)

	if err := s.tg.SendMessage(ctx, userID, expiredMessage(), nil); err != nil {
		s.log.Warn("failed to notify user about expiration",
			slog.Int64("user_id", userID), sl.Err(err))
	}

	s.log.Info("access revoked", slog.Int64("user_id", userID))
	return nil
}

func warningMessage(daysLeft int) string {
	return fmt.Sprintf(
		"⏳ <b>Подписка скоро закончится</b>\n\n"+
			"Осталось дней: <b>%d</b>. Продлите подписку, чтобы не потерять "+
			"доступ к каналу.", daysLeft)
}

func expiredMessage() string {
	return "❌ <b>Срок подписки истёк</b>\n\n" +
		"Доступ к каналу закрыт. Оформите подписку заново, чтобы вернуться."
}
