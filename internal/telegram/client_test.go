package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		token:      "test-token",
		apiURL:     srv.URL,
		httpClient: &http.Client{Timeout: time.Second},
	}
}

func TestClient_SendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := client.SendMessage(context.Background(), 42, "привет", nil)
	require.NoError(t, err)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotPayload["chat_id"])
	assert.Equal(t, "привет", gotPayload["text"])
	assert.NotContains(t, gotPayload, "reply_markup")
}

func TestClient_SendMessage_WithKeyboard(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	markup := &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Оплатить", CallbackData: "pay_now"}},
		},
	}
	err := client.SendMessage(context.Background(), 42, "оплата", markup)
	require.NoError(t, err)
	assert.Contains(t, gotPayload, "reply_markup")
}

func TestClient_SendMessage_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})

	err := client.SendMessage(context.Background(), 42, "привет", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked by the user")
}

func TestClient_CreateChatInviteLink(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"invite_link":"https://t.me/+secret"}}`))
	})

	link, err := client.CreateChatInviteLink(context.Background(), -100123)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+secret", link)
	assert.Equal(t, float64(1), gotPayload["member_limit"])

	expire := int64(gotPayload["expire_date"].(float64))
	assert.InDelta(t, time.Now().Add(inviteLinkTTL).Unix(), expire, 5)
}

func TestClient_UnbanChatMember_OnlyIfBanned(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	err := client.UnbanChatMember(context.Background(), -100123, 42)
	require.NoError(t, err)
	assert.Equal(t, true, gotPayload["only_if_banned"])
}

func TestClient_GetUpdates(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"/start"}},
			{"update_id":11,"callback_query":{"id":"cb1","from":{"id":42,"first_name":"A"},"data":"pay_now"}}
		]}`))
	})

	updates, err := client.GetUpdates(context.Background(), 10, 30)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, float64(10), gotPayload["offset"])
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/start", updates[0].Message.Text)
	require.NotNil(t, updates[1].CallbackQuery)
	assert.Equal(t, "pay_now", updates[1].CallbackQuery.Data)
}

func TestClient_GetMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"SubBot","username":"sub_bot"}}`))
	})

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), me.ID)
	assert.True(t, me.IsBot)
	assert.Equal(t, "sub_bot", me.Username)
}
