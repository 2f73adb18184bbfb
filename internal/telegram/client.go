// Package telegram содержит минимальный клиент Telegram Bot API:
// только те методы, которые нужны боту подписок.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const inviteLinkTTL = 24 * time.Hour

type Client struct {
	token      string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент Bot API. Таймаут httpClient должен
// перекрывать длину long poll в GetUpdates.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		apiURL:     "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 40 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call выполняет метод Bot API и раскладывает result в out (если out != nil).
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	const op = "telegram.call"

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return fmt.Errorf("%s: %s: %w", op, method, err)
		}
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("%s: %s: %w", op, method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%s: %s: api error %d: %s", op, method, apiResp.ErrorCode, apiResp.Description)
	}
	if out != nil {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("%s: %s: %w", op, method, err)
		}
	}
	return nil
}

// GetMe проверяет токен и возвращает учётную запись бота.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates забирает очередную порцию обновлений long poll-ом.
// offset — update_id последнего обработанного обновления плюс один.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage отправляет текст в чат. markup может быть nil.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// AnswerCallbackQuery подтверждает нажатие inline-кнопки, убирая
// «часики» на стороне клиента.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

// AnswerCallbackQueryAlert подтверждает нажатие и показывает пользователю
// всплывающее окно с текстом.
func (c *Client) AnswerCallbackQueryAlert(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        true,
	}, nil)
}

// CreateChatInviteLink выпускает одноразовую ссылку-приглашение в канал:
// лимит в одного участника и срок жизни в сутки.
func (c *Client) CreateChatInviteLink(ctx context.Context, chatID int64) (string, error) {
	payload := map[string]any{
		"chat_id":      chatID,
		"member_limit": 1,
		"expire_date":  time.Now().Add(inviteLinkTTL).Unix(),
	}
	var link ChatInviteLink
	if err := c.call(ctx, "createChatInviteLink", payload, &link); err != nil {
		return "", err
	}
	return link.InviteLink, nil
}

// BanChatMember исключает пользователя из канала.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	return c.call(ctx, "banChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}, nil)
}

// UnbanChatMember снимает бан, чтобы пользователь мог вернуться по новой
// ссылке после повторной оплаты. only_if_banned защищает от случайного
// исключения участника, которого в бане нет.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	return c.call(ctx, "unbanChatMember", map[string]any{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": true,
	}, nil)
}
