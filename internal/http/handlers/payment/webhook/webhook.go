// Package webhook принимает уведомления платёжного провайдера об оплатах.
// Контракт ответа: 200 и для обработанных, и для незнакомых событий
// (иначе провайдер будет ретраить), 403 на неверную подпись, 500 на
// нечитаемое тело.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/models"
)

// signatureHeader — заголовок с HMAC-подписью тела от Tribute.
const signatureHeader = "trbt-signature"

type Gateway interface {
	VerifySignature(payload []byte, signature string) bool
	ParseWebhook(payload []byte) (*models.PaymentEvent, error)
}

type Payments interface {
	HandleEvent(ctx context.Context, event *models.PaymentEvent) error
}

type Handler struct {
	log      *slog.Logger
	gateway  Gateway
	payments Payments
}

func New(log *slog.Logger, gateway Gateway, payments Payments) *Handler {
	return &Handler{
		log:      log,
		gateway:  gateway,
		payments: payments,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Error"))
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	if !h.gateway.VerifySignature(body, r.Header.Get(signatureHeader)) {
		log.Warn("invalid webhook signature")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
		return
	}

	event, err := h.gateway.ParseWebhook(body)
	if err != nil {
		log.Error("failed to parse webhook", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Error"))
		return
	}
	if event == nil {
		log.Info("ignored webhook event")
		_, _ = w.Write([]byte("Ignored"))
		return
	}

	if err := h.payments.HandleEvent(r.Context(), event); err != nil {
		log.Error("failed to schedule payment processing", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Error"))
		return
	}

	log.Info("webhook accepted",
		slog.Int64("user_id", event.UserID),
		slog.String("transaction_id", event.TransactionID))
	_, _ = w.Write([]byte("OK"))
}
