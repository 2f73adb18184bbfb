// Package models содержит доменные структуры бота: пользователи, подписки,
// отмены и маркеры уведомлений. Структуры используются в бизнес-логике
// и при работе с хранилищем.
package models

import "time"

// User представляет пользователя Telegram, когда-либо писавшего боту.
// Запись создаётся при первом обращении и никогда не удаляется.
type User struct {
	UserID            int64     // Telegram ID пользователя
	Username          string    // Username в Telegram (может быть пустым)
	FirstName         string    // Отображаемое имя
	JoinDate          time.Time // Дата первого обращения к боту
	HasPaymentAttempt bool      // Была ли попытка оплаты; однажды true — навсегда true
}
