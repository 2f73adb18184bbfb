// Package paymentgateway определяет контракт платёжного провайдера.
// Бот работает с провайдером только через этот интерфейс, поэтому
// подключение нового способа оплаты не трогает остальной код.
package paymentgateway

import (
	"context"

	"github.com/ar2em/subscription-bot/internal/models"
)

type Gateway interface {
	// Name возвращает имя провайдера для записи в подписку.
	Name() string

	// CreatePaymentLink возвращает ссылку на страницу оплаты.
	CreatePaymentLink(ctx context.Context, userID int64, username string) (string, error)

	// VerifySignature проверяет подпись сырого тела webhook-а.
	VerifySignature(payload []byte, signature string) bool

	// ParseWebhook разбирает тело webhook-а в платёжное событие.
	// Незнакомый тип события — не ошибка: возвращается (nil, nil),
	// и такой webhook молча игнорируется.
	ParseWebhook(payload []byte) (*models.PaymentEvent, error)
}
