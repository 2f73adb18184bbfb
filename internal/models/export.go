package models

import "time"

// Export — полная выгрузка данных бота для административного API.
// Снимок согласован: все три списка читаются в одной транзакции.
type Export struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	Users         []*User         `json:"users"`
	Subscriptions []*Subscription `json:"subscriptions"`
	Cancellations []*Cancellation `json:"cancellations"`
}
