package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ar2em/subscription-bot/internal/models"
)

// CreateEntry вставляет либо перезаписывает подписку пользователя.
// На одного пользователя хранится не более одной строки: повторная покупка
// обновляет прежнюю запись и всегда возвращает её в статус active.
// В той же транзакции удаляются все маркеры уведомлений пользователя,
// чтобы после продления предупреждения об истечении отправлялись заново.
func (s *Storage) CreateEntry(ctx context.Context, entry models.Subscription) error {
	const op = "storage.CreateEntry"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO subscriptions (user_id, expires_at, invite_link,
			      payment_provider, customer_ref, subscription_ref, status)
			  VALUES ($1, $2, $3, $4, $5, $6, 'active')
			  ON CONFLICT (user_id) DO UPDATE SET
			      expires_at = EXCLUDED.expires_at,
			      invite_link = EXCLUDED.invite_link,
			      payment_provider = EXCLUDED.payment_provider,
			      customer_ref = EXCLUDED.customer_ref,
			      subscription_ref = EXCLUDED.subscription_ref,
			      status = 'active'`
	if _, err = tx.ExecContext(ctx, query,
		entry.UserID, entry.ExpiresAt, entry.InviteLink, entry.PaymentProvider,
		entry.CustomerRef, entry.SubscriptionRef); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM subscription_notifications WHERE user_id = $1`, entry.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetEntry возвращает подписку пользователя.
// Отсутствие подписки — не ошибка: возвращается (nil, nil).
func (s *Storage) GetEntry(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "storage.GetEntry"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, expires_at, invite_link, payment_provider,
			      customer_ref, subscription_ref, status, created_at
			  FROM subscriptions
			  WHERE user_id = $1`
	row := s.DB.QueryRowContext(ctx, query, userID)

	var result models.Subscription
	var customerRef, subscriptionRef sql.NullString
	if err := row.Scan(&result.UserID, &result.ExpiresAt, &result.InviteLink,
		&result.PaymentProvider, &customerRef, &subscriptionRef,
		&result.Status, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if customerRef.Valid {
		result.CustomerRef = &customerRef.String
	}
	if subscriptionRef.Valid {
		result.SubscriptionRef = &subscriptionRef.String
	}
	return &result, nil
}

// GetEntryByRef возвращает подписку по внешнему идентификатору провайдера.
func (s *Storage) GetEntryByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error) {
	const op = "storage.GetEntryByRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var userID int64
	query := `SELECT user_id FROM subscriptions WHERE subscription_ref = $1`
	if err := s.DB.QueryRowContext(ctx, query, subscriptionRef).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetEntry(ctx, userID)
}

// CancelEntry переводит подписку в статус cancelled. Срок действия не
// меняется: отмена — это отказ от продления, доступ сохраняется до
// естественного истечения.
func (s *Storage) CancelEntry(ctx context.Context, userID int64) error {
	const op = "storage.CancelEntry"
	return s.setStatus(ctx, op, userID, models.StatusCancelled)
}

// ExpireEntry переводит подписку в статус expired. Вызывается только
// планировщиком после фактического истечения срока.
func (s *Storage) ExpireEntry(ctx context.Context, userID int64) error {
	const op = "storage.ExpireEntry"
	return s.setStatus(ctx, op, userID, models.StatusExpired)
}

func (s *Storage) setStatus(ctx context.Context, op string, userID int64, status string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE user_id = $2`
	if _, err := s.DB.ExecContext(ctx, query, status, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListExpiring возвращает активные подписки, истекающие в ближайшие
// withinDays дней, по которым ещё не отправлялось предупреждение типа
// expiry_{withinDays}d. Условие NOT EXISTS — это и есть защита от
// повторных предупреждений.
func (s *Storage) ListExpiring(ctx context.Context, withinDays int) ([]*models.ExpiringEntry, error) {
	const op = "storage.ListExpiring"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	notificationType := fmt.Sprintf("expiry_%dd", withinDays)
	query := `SELECT s.user_id, s.expires_at
			  FROM subscriptions s
			  WHERE s.status = 'active'
			    AND s.expires_at > now()
			    AND s.expires_at <= now() + make_interval(days => $1)
			    AND NOT EXISTS (
			        SELECT 1 FROM subscription_notifications n
			        WHERE n.user_id = s.user_id
			          AND n.notification_type = $2
			    )`
	rows, err := s.DB.QueryContext(ctx, query, withinDays, notificationType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiringEntry
	for rows.Next() {
		var item models.ExpiringEntry
		if err := rows.Scan(&item.UserID, &item.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListExpired возвращает подписки, срок которых уже прошёл, но статус всё
// ещё active — планировщик ещё не перевёл их в expired.
func (s *Storage) ListExpired(ctx context.Context) ([]*models.ExpiringEntry, error) {
	const op = "storage.ListExpired"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, expires_at
			  FROM subscriptions
			  WHERE status = 'active' AND expires_at <= now()`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiringEntry
	for rows.Next() {
		var item models.ExpiringEntry
		if err := rows.Scan(&item.UserID, &item.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
