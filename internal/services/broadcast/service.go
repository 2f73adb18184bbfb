// Package broadcast рассылает сообщение всем пользователям бота.
// Темп ограничен, чтобы не упереться в лимиты Telegram на отправку.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/telegram"
)

type Repository interface {
	ListAllUserIDs(ctx context.Context) ([]int64, error)
}

type TelegramAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
}

// Report — итог рассылки. Ошибка отправки одному пользователю не
// останавливает рассылку остальным.
type Report struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Service struct {
	repo    Repository
	tg      TelegramAPI
	log     *slog.Logger
	limiter *rate.Limiter
}

func New(repo Repository, tg TelegramAPI, log *slog.Logger, cfg config.Subscription) *Service {
	return &Service{
		repo:    repo,
		tg:      tg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(cfg.BroadcastInterval), 1),
	}
}

// Send доставляет text всем пользователям и возвращает итог.
// Отмена контекста прерывает рассылку с частичным отчётом.
func (s *Service) Send(ctx context.Context, text string) (*Report, error) {
	const op = "broadcast.Send"

	ids, err := s.repo.ListAllUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &Report{Total: len(ids)}
	s.log.Info("broadcast started", slog.Int("recipients", report.Total))

	for _, userID := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.tg.SendMessage(ctx, userID, text, nil); err != nil {
			report.Failed++
			s.log.Warn("broadcast delivery failed",
				slog.Int64("user_id", userID), sl.Err(err))
			continue
		}
		report.Sent++
	}

	s.log.Info("broadcast finished",
		slog.Int("sent", report.Sent), slog.Int("failed", report.Failed))
	return report, nil
}

// SendTo доставляет text одному пользователю. Отправка проходит через
// общий лимитер, чтобы адресные сообщения не обгоняли рассылку.
func (s *Service) SendTo(ctx context.Context, userID int64, text string) error {
	const op = "broadcast.SendTo"

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.tg.SendMessage(ctx, userID, text, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("direct message sent", slog.Int64("user_id", userID))
	return nil
}
