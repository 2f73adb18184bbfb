package bot

import "github.com/ar2em/subscription-bot/internal/telegram"

func row(buttons ...telegram.InlineKeyboardButton) []telegram.InlineKeyboardButton {
	return buttons
}

func mainKeyboardNewUser() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "💎 Оформить подписку", CallbackData: "subscribe"}),
		row(telegram.InlineKeyboardButton{Text: "🆘 Поддержка", CallbackData: "support"}),
	}}
}

func mainKeyboardAfterPaymentAttempt() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "💎 Оформить подписку", CallbackData: "subscribe"}),
		row(telegram.InlineKeyboardButton{Text: "📊 Мой статус", CallbackData: "status"}),
		row(telegram.InlineKeyboardButton{Text: "🆘 Поддержка", CallbackData: "support"}),
	}}
}

func mainKeyboardSubscribed() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "📊 Мой статус", CallbackData: "status"}),
		row(telegram.InlineKeyboardButton{Text: "🆘 Поддержка", CallbackData: "support"}),
	}}
}

func subscriptionOfferKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "💳 Оплатить", CallbackData: "pay_now"}),
		row(telegram.InlineKeyboardButton{Text: "🔙 Назад", CallbackData: "back_to_main"}),
	}}
}

func paymentKeyboard(paymentURL string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "💳 Перейти к оплате", URL: paymentURL}),
		row(telegram.InlineKeyboardButton{Text: "🔙 Назад", CallbackData: "back_to_main"}),
	}}
}

func statusKeyboardActive() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "❌ Отменить подписку", CallbackData: "cancel_subscription"}),
		row(telegram.InlineKeyboardButton{Text: "🔙 Назад", CallbackData: "back_to_main"}),
	}}
}

func cancelConfirmKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(
			telegram.InlineKeyboardButton{Text: "Да, отменить", CallbackData: "cancel_confirm_yes"},
			telegram.InlineKeyboardButton{Text: "Нет, остаюсь", CallbackData: "cancel_confirm_no"},
		),
	}}
}

func backKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "🔙 Назад", CallbackData: "back_to_main"}),
	}}
}

func supportKeyboard(supportName string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(telegram.InlineKeyboardButton{Text: "✍️ Написать в поддержку", URL: "https://t.me/" + supportName}),
		row(telegram.InlineKeyboardButton{Text: "🔙 Назад", CallbackData: "back_to_main"}),
	}}
}
