package repository

import (
	"context"
	"fmt"
)

// MarkNotification сохраняет отметку об отправленном уведомлении.
// Вставка идемпотентна: повторная отметка той же пары
// (пользователь, тип) молча игнорируется.
func (s *Storage) MarkNotification(ctx context.Context, userID int64, notificationType string) error {
	const op = "storage.MarkNotification"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_notifications (user_id, notification_type)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id, notification_type) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userID, notificationType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
