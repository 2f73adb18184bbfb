package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ar2em/subscription-bot/internal/models"
)

// CreateCancellation добавляет запись в журнал отмен. Журнал только
// пополняется: записи никогда не изменяются и не удаляются.
func (s *Storage) CreateCancellation(ctx context.Context, userID int64, username, reason string, subscriptionRef *string) error {
	const op = "storage.CreateCancellation"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO cancellations (user_id, username, reason, subscription_ref)
			  VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, userID, username, reason, subscriptionRef); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListCancellations возвращает записи журнала отмен, новые первыми.
func (s *Storage) ListCancellations(ctx context.Context, limit, offset int) ([]*models.Cancellation, error) {
	const op = "storage.ListCancellations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, username, reason, subscription_ref, cancelled_at
			  FROM cancellations
			  ORDER BY cancelled_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Cancellation
	for rows.Next() {
		var item models.Cancellation
		var ref sql.NullString
		if err := rows.Scan(&item.ID, &item.UserID, &item.Username, &item.Reason,
			&ref, &item.CancelledAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ref.Valid {
			item.SubscriptionRef = &ref.String
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
