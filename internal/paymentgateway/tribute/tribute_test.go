package tribute

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/models"
)

func newHandler(secret string) *Handler {
	return New(config.Tribute{
		Enabled:       true,
		ProductURL:    "https://t.me/tribute/app?startapp=p123",
		WebhookSecret: secret,
	})
}

func TestParseWebhook_NewDonation(t *testing.T) {
	h := newHandler("")

	payload := []byte(`{
		"name": "new_donation",
		"payload": {
			"telegram_user_id": 101,
			"amount": 19,
			"currency": "USD",
			"donation_request_id": "don_1",
			"message": "thanks"
		}
	}`)

	event, err := h.ParseWebhook(payload)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(101), event.UserID)
	assert.Equal(t, 19.0, event.Amount)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, "don_1", event.TransactionID)
	assert.Equal(t, "thanks", event.Message)
	assert.Equal(t, models.PaymentStatusSucceeded, event.Status)
}

func TestParseWebhook_LegacyFieldNames(t *testing.T) {
	h := newHandler("")

	// Старый формат: данные в data, пользователь в tg_user_id,
	// идентификатор в числовом id, валюта не указана.
	payload := []byte(`{
		"name": "new_donation",
		"data": {
			"tg_user_id": 202,
			"amount": 5.5,
			"id": 9001
		}
	}`)

	event, err := h.ParseWebhook(payload)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(202), event.UserID)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, "9001", event.TransactionID)
}

func TestParseWebhook_NewDigitalProduct(t *testing.T) {
	h := newHandler("")

	payload := []byte(`{
		"name": "new_digital_product",
		"payload": {
			"telegram_user_id": 303,
			"amount": 19,
			"currency": "EUR",
			"product_id": "p123",
			"order_id": "ord_77"
		}
	}`)

	event, err := h.ParseWebhook(payload)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(303), event.UserID)
	assert.Equal(t, "prod_ord_77", event.TransactionID)
	assert.Equal(t, "Product: p123", event.Message)
}

func TestParseWebhook_UnknownEvent(t *testing.T) {
	h := newHandler("")

	event, err := h.ParseWebhook([]byte(`{"name": "unknown_event", "payload": {}}`))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestParseWebhook_Errors(t *testing.T) {
	h := newHandler("")

	cases := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"missing payload", `{"name": "new_donation"}`},
		{"missing user id", `{"name": "new_donation", "payload": {"amount": 19}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := h.ParseWebhook([]byte(tc.payload))
			assert.Error(t, err)
			assert.Nil(t, event)
		})
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"name":"new_donation"}`)

	t.Run("no secret accepts anything", func(t *testing.T) {
		h := newHandler("")
		assert.True(t, h.VerifySignature(payload, ""))
		assert.True(t, h.VerifySignature(payload, "garbage"))
	})

	t.Run("valid signature", func(t *testing.T) {
		h := newHandler("topsecret")
		mac := hmac.New(sha256.New, []byte("topsecret"))
		mac.Write(payload)
		signature := hex.EncodeToString(mac.Sum(nil))
		assert.True(t, h.VerifySignature(payload, signature))
	})

	t.Run("invalid signature", func(t *testing.T) {
		h := newHandler("topsecret")
		assert.False(t, h.VerifySignature(payload, "deadbeef"))
	})
}

func TestCreatePaymentLink(t *testing.T) {
	h := newHandler("")
	link, err := h.CreatePaymentLink(context.Background(), 42, "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/tribute/app?startapp=p123", link)

	empty := New(config.Tribute{})
	_, err = empty.CreatePaymentLink(context.Background(), 42, "alice")
	assert.Error(t, err)
}

func TestChargeAmount(t *testing.T) {
	event := &models.PaymentEvent{Amount: 19, Currency: "USD"}
	assert.Equal(t, "19 USD", event.ChargeAmount())
}
