// Package tribute реализует платёжный шлюз поверх сервиса Tribute.
// Tribute не имеет API создания платежей: ссылка на страницу доната
// статична, а факт оплаты приходит webhook-ом.
package tribute

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/models"
)

const (
	eventNewDonation       = "new_donation"
	eventNewDigitalProduct = "new_digital_product"
)

type Handler struct {
	productURL    string
	webhookSecret string
}

func New(cfg config.Tribute) *Handler {
	return &Handler{
		productURL:    cfg.ProductURL,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (h *Handler) Name() string { return "tribute" }

// CreatePaymentLink возвращает статичную ссылку на страницу продукта.
func (h *Handler) CreatePaymentLink(_ context.Context, _ int64, _ string) (string, error) {
	const op = "tribute.CreatePaymentLink"
	if h.productURL == "" {
		return "", fmt.Errorf("%s: product url is not configured", op)
	}
	return h.productURL, nil
}

// VerifySignature сверяет HMAC-SHA256 от сырого тела с заголовком
// trbt-signature. Пустой секрет отключает проверку: исторически Tribute
// слал webhook-и без подписи.
func (h *Handler) VerifySignature(payload []byte, signature string) bool {
	if h.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// webhookEnvelope — внешний конверт webhook-а. Tribute в разных версиях
// кладёт данные то в payload, то в data.
type webhookEnvelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Data    json.RawMessage `json:"data"`
}

// webhookBody покрывает оба поколения имён полей Tribute.
type webhookBody struct {
	TelegramUserID    int64   `json:"telegram_user_id"`
	TgUserID          int64   `json:"tg_user_id"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	DonationRequestID looseID `json:"donation_request_id"`
	OrderID           looseID `json:"order_id"`
	ID                looseID `json:"id"`
	ProductID         looseID `json:"product_id"`
	Message           string  `json:"message"`
}

// looseID принимает идентификатор и строкой, и числом.
type looseID string

func (l *looseID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = looseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = looseID(n.String())
	return nil
}

// ParseWebhook разбирает события new_donation и new_digital_product.
// Любой другой тип события возвращает (nil, nil).
func (h *Handler) ParseWebhook(payload []byte) (*models.PaymentEvent, error) {
	const op = "tribute.ParseWebhook"

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if envelope.Name != eventNewDonation && envelope.Name != eventNewDigitalProduct {
		return nil, nil
	}

	raw := envelope.Payload
	if len(raw) == 0 {
		raw = envelope.Data
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: event %q has no payload", op, envelope.Name)
	}

	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userID := body.TelegramUserID
	if userID == 0 {
		userID = body.TgUserID
	}
	if userID == 0 {
		return nil, fmt.Errorf("%s: event %q has no telegram user id", op, envelope.Name)
	}

	currency := body.Currency
	if currency == "" {
		currency = "USD"
	}

	event := &models.PaymentEvent{
		UserID:   userID,
		Amount:   body.Amount,
		Currency: currency,
		Status:   models.PaymentStatusSucceeded,
	}

	switch envelope.Name {
	case eventNewDonation:
		event.TransactionID = string(body.DonationRequestID)
		if event.TransactionID == "" {
			event.TransactionID = string(body.ID)
		}
		event.Message = body.Message
	case eventNewDigitalProduct:
		orderID := string(body.OrderID)
		if orderID == "" {
			orderID = string(body.ID)
		}
		event.TransactionID = "prod_" + orderID
		event.Message = "Product: " + string(body.ProductID)
	}
	return event, nil
}
