package models

import "strconv"

// PaymentStatusSucceeded — единственный статус события, по которому выдаётся
// подписка. Набор статусов закрыт: неизвестные значения события игнорируются
// ещё на этапе разбора webhook.
const PaymentStatusSucceeded = "succeeded"

// PaymentEvent — нормализованное событие успешной оплаты, не зависящее от
// формата конкретного платёжного провайдера.
type PaymentEvent struct {
	UserID        int64   // Telegram ID плательщика
	Amount        float64 // Сумма платежа
	Currency      string  // Валюта платежа
	TransactionID string  // Идентификатор транзакции у провайдера
	Message       string  // Сопроводительное сообщение плательщика
	Status        string  // Всегда из закрытого набора, минимум succeeded
}

// ChargeAmount форматирует сумму события для уведомлений и логов.
func (e *PaymentEvent) ChargeAmount() string {
	return strconv.FormatFloat(e.Amount, 'f', -1, 64) + " " + e.Currency
}
