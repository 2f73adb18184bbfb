package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ar2em/subscription-bot/internal/models"
)

// ExportData выгружает пользователей, подписки и журнал отмен одним
// согласованным снимком. Все три выборки идут в одной read-only
// транзакции, чтобы выгрузка не расходилась сама с собой.
func (s *Storage) ExportData(ctx context.Context) (*models.Export, error) {
	const op = "storage.ExportData"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result := &models.Export{GeneratedAt: time.Now()}

	if result.Users, err = exportUsers(ctx, tx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if result.Subscriptions, err = exportSubscriptions(ctx, tx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if result.Cancellations, err = exportCancellations(ctx, tx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func exportUsers(ctx context.Context, tx *sql.Tx) ([]*models.User, error) {
	query := `SELECT user_id, username, first_name, join_date, has_payment_attempt
			  FROM users
			  ORDER BY join_date`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var item models.User
		if err := rows.Scan(&item.UserID, &item.Username, &item.FirstName,
			&item.JoinDate, &item.HasPaymentAttempt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	return result, rows.Err()
}

func exportSubscriptions(ctx context.Context, tx *sql.Tx) ([]*models.Subscription, error) {
	query := `SELECT user_id, expires_at, invite_link, payment_provider,
			      customer_ref, subscription_ref, status, created_at
			  FROM subscriptions
			  ORDER BY created_at`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		var customerRef, subscriptionRef sql.NullString
		if err := rows.Scan(&item.UserID, &item.ExpiresAt, &item.InviteLink,
			&item.PaymentProvider, &customerRef, &subscriptionRef,
			&item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		if customerRef.Valid {
			item.CustomerRef = &customerRef.String
		}
		if subscriptionRef.Valid {
			item.SubscriptionRef = &subscriptionRef.String
		}
		result = append(result, &item)
	}
	return result, rows.Err()
}

func exportCancellations(ctx context.Context, tx *sql.Tx) ([]*models.Cancellation, error) {
	query := `SELECT id, user_id, username, reason, subscription_ref, cancelled_at
			  FROM cancellations
			  ORDER BY cancelled_at`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
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
			return nil, err
		}
		if ref.Valid {
			item.SubscriptionRef = &ref.String
		}
		result = append(result, &item)
	}
	return result, rows.Err()
}
