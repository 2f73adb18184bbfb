// Package subscription содержит бизнес-логику жизненного цикла подписки:
// регистрацию пользователей, выдачу и отмену доступа, статусы и сводку.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/models"
)

// ErrNoSubscription возвращается операциями над несуществующей подпиской.
var ErrNoSubscription = errors.New("subscription not found")

const cacheTTL = 5 * time.Minute

type Repository interface {
	UpsertUser(ctx context.Context, userID int64, username, firstName string) error
	MarkPaymentAttempt(ctx context.Context, userID int64) error
	HasPaymentAttempt(ctx context.Context, userID int64) (bool, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	GetStats(ctx context.Context) (*models.Stats, error)
	CreateEntry(ctx context.Context, entry models.Subscription) error
	GetEntry(ctx context.Context, userID int64) (*models.Subscription, error)
	GetEntryByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error)
	CancelEntry(ctx context.Context, userID int64) error
	CreateCancellation(ctx context.Context, userID int64, username, reason string, subscriptionRef *string) error
	ListCancellations(ctx context.Context, limit, offset int) ([]*models.Cancellation, error)
	ExportData(ctx context.Context) (*models.Export, error)
}

type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger

	durationDays int
	maxReasonLen int
}

func New(repo Repository, cache Cache, log *slog.Logger, cfg config.Subscription) *Service {
	return &Service{
		repo:         repo,
		cache:        cache,
		log:          log,
		durationDays: cfg.DurationDays,
		maxReasonLen: cfg.MaxCancelReasonLength,
	}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("subscription:%d", userID)
}

// RegisterUser сохраняет либо обновляет пользователя.
func (s *Service) RegisterUser(ctx context.Context, userID int64, username, firstName string) error {
	return s.repo.UpsertUser(ctx, userID, username, firstName)
}

// Grant выдаёт либо продлевает подписку. Срок всегда считается от
// текущего момента: это единственное место, где вычисляется expires_at.
// days <= 0 означает срок по умолчанию из конфигурации.
func (s *Service) Grant(ctx context.Context, userID int64, days int, inviteLink, provider, transactionID string) (*models.Subscription, error) {
	if days <= 0 {
		days = s.durationDays
	}

	entry := models.Subscription{
		UserID:          userID,
		ExpiresAt:       time.Now().Add(time.Duration(days) * 24 * time.Hour),
		InviteLink:      inviteLink,
		PaymentProvider: provider,
		Status:          models.StatusActive,
	}
	if transactionID != "" {
		ref := transactionID
		entry.SubscriptionRef = &ref
	}

	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	s.log.Info("subscription granted",
		slog.Int64("user_id", userID),
		slog.Int("days", days),
		slog.String("provider", provider))
	return &entry, nil
}

// Status возвращает подписку пользователя, (nil, nil) если её нет.
// Ответ кешируется: статус спрашивают при каждом нажатии кнопки.
func (s *Service) Status(ctx context.Context, userID int64) (*models.Subscription, error) {
	key := cacheKey(userID)

	var cached models.Subscription
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("cache read failed", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	sub, err := s.repo.GetEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, key, sub, cacheTTL); err != nil {
		s.log.Warn("cache write failed", slog.String("key", key), sl.Err(err))
	}
	return sub, nil
}

// StatusByRef ищет подписку по внешнему идентификатору платежа,
// (nil, nil) если такого платежа не было. Кеш не используется: запрос
// приходит только из обработки платёжных событий.
func (s *Service) StatusByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error) {
	return s.repo.GetEntryByRef(ctx, subscriptionRef)
}

// IsActive сообщает, действует ли сейчас доступ пользователя к каналу.
func (s *Service) IsActive(ctx context.Context, userID int64) (bool, error) {
	sub, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.IsAccessValid(time.Now()), nil
}

// Cancel отказывается от продления и пишет причину в журнал отмен.
// Доступ при этом сохраняется до конца оплаченного срока.
func (s *Service) Cancel(ctx context.Context, userID int64, username, reason string) error {
	if len([]rune(reason)) > s.maxReasonLen {
		reason = string([]rune(reason)[:s.maxReasonLen])
	}

	sub, err := s.repo.GetEntry(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoSubscription
	}

	if err := s.repo.CancelEntry(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.CreateCancellation(ctx, userID, username, reason, sub.SubscriptionRef); err != nil {
		return err
	}
	s.invalidate(ctx, userID)

	s.log.Info("subscription cancelled", slog.Int64("user_id", userID))
	return nil
}

// MarkPaymentAttempt запоминает, что пользователь доходил до оплаты.
func (s *Service) MarkPaymentAttempt(ctx context.Context, userID int64) error {
	return s.repo.MarkPaymentAttempt(ctx, userID)
}

// HasPaymentAttempt сообщает, была ли у пользователя попытка оплаты.
func (s *Service) HasPaymentAttempt(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasPaymentAttempt(ctx, userID)
}

// Stats возвращает сводную статистику для администраторов.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.GetStats(ctx)
}

// ListUsers возвращает страницу пользователей.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.repo.ListUsers(ctx, limit, offset)
}

// ListCancellations возвращает страницу журнала отмен.
func (s *Service) ListCancellations(ctx context.Context, limit, offset int) ([]*models.Cancellation, error) {
	return s.repo.ListCancellations(ctx, limit, offset)
}

// Export возвращает полную выгрузку данных бота одним снимком.
func (s *Service) Export(ctx context.Context) (*models.Export, error) {
	return s.repo.ExportData(ctx)
}

// Invalidate сбрасывает кеш статуса пользователя. Нужен другим сервисам,
// которые меняют подписку в обход Grant и Cancel.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	s.invalidate(ctx, userID)
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	key := cacheKey(userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("cache invalidation failed", slog.String("key", key), sl.Err(err))
	}
}
