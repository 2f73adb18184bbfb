package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ar2em/subscription-bot/internal/models"
)

// UpsertUser сохраняет пользователя при первом обращении либо обновляет
// username и имя. Пустые входящие значения не затирают уже известные:
// слияние идёт через COALESCE(NULLIF(...)).
func (s *Storage) UpsertUser(ctx context.Context, userID int64, username, firstName string) error {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, username, first_name)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO UPDATE SET
			      username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
			      first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name)`
	if _, err := s.DB.ExecContext(ctx, query, userID, username, firstName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkPaymentAttempt выставляет флаг попытки оплаты. Флаг монотонный:
// однажды установленный, он больше никогда не сбрасывается.
func (s *Storage) MarkPaymentAttempt(ctx context.Context, userID int64) error {
	const op = "storage.MarkPaymentAttempt"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET has_payment_attempt = TRUE WHERE user_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HasPaymentAttempt возвращает true, если пользователь когда-либо начинал оплату.
func (s *Storage) HasPaymentAttempt(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.HasPaymentAttempt"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var has bool
	query := `SELECT has_payment_attempt FROM users WHERE user_id = $1`
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&has); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return has, nil
}

// GetUser возвращает пользователя по его Telegram ID.
// Если пользователь не найден, возвращает (nil, nil).
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, username, first_name, join_date, has_payment_attempt
			  FROM users
			  WHERE user_id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&u.UserID, &u.Username, &u.FirstName, &u.JoinDate,
		&u.HasPaymentAttempt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает список пользователей с пагинацией.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, username, first_name, join_date, has_payment_attempt
			  FROM users
			  ORDER BY join_date DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var item models.User
		if err := rows.Scan(&item.UserID, &item.Username, &item.FirstName,
			&item.JoinDate, &item.HasPaymentAttempt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListAllUserIDs возвращает идентификаторы всех пользователей.
// Используется рассылкой; порядок — по дате регистрации.
func (s *Storage) ListAllUserIDs(ctx context.Context) ([]int64, error) {
	const op = "storage.ListAllUserIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT user_id FROM users ORDER BY join_date`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetStats возвращает сводную статистику: всего пользователей, активных
// подписок с непросроченным сроком и отмен за последние семь дней.
func (s *Storage) GetStats(ctx context.Context) (*models.Stats, error) {
	const op = "storage.GetStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	stats := &models.Stats{}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE status = 'active' AND expires_at > now()`).
		Scan(&stats.ActiveSubscriptions); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cancellations WHERE cancelled_at > now() - INTERVAL '7 days'`).
		Scan(&stats.CancellationsWeek); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
