package models

import "time"

// Статусы подписки. Хранятся в колонке status как текст.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Subscription представляет подписку пользователя на закрытый канал.
// На одного пользователя существует не более одной строки: повторная покупка
// перезаписывает прежнюю запись (upsert по user_id).
//
// Статус active сам по себе не означает действующий доступ: строка со
// статусом active может быть уже просрочена, пока планировщик не перевёл её
// в expired. Действительность доступа всегда проверяется производным
// предикатом status != expired && now < expires_at (см. IsAccessValid).
type Subscription struct {
	UserID          int64     // Telegram ID владельца
	ExpiresAt       time.Time // Момент окончания доступа
	InviteLink      string    // Одноразовая ссылка-приглашение в канал
	PaymentProvider string    // Провайдер, через которого прошла оплата
	CustomerRef     *string   // Внешний идентификатор клиента у провайдера
	SubscriptionRef *string   // Внешний идентификатор платежа/подписки
	Status          string    // active, cancelled или expired
	CreatedAt       time.Time // Момент создания записи
}

// IsAccessValid возвращает true, если подписка даёт доступ в данный момент.
// Отмена — это «не продлевать», а не «отозвать сейчас»: отменённая подписка
// остаётся действительной до естественного истечения срока, поэтому доступ
// закрывает только статус expired или прошедший expires_at.
func (s *Subscription) IsAccessValid(now time.Time) bool {
	return s.Status != StatusExpired && now.Before(s.ExpiresAt)
}

// Cancellation — запись журнала отмен. Журнал только пополняется,
// записи никогда не изменяются и не удаляются.
type Cancellation struct {
	ID              int       // Порядковый номер записи
	UserID          int64     // Telegram ID пользователя
	Username        string    // Username на момент отмены
	Reason          string    // Причина отмены (ограничена по длине)
	SubscriptionRef *string   // Внешний идентификатор отменённой подписки
	CancelledAt     time.Time // Момент отмены
}

// NotificationMarker — отметка об отправленном уведомлении.
// Не более одной отметки на пару (пользователь, тип); защищает от
// повторной отправки одного и того же предупреждения.
type NotificationMarker struct {
	UserID           int64
	NotificationType string
	SentAt           time.Time
}

// ExpiringEntry — элемент выборки планировщика: кому и когда истекает доступ.
type ExpiringEntry struct {
	UserID    int64
	ExpiresAt time.Time
}

// Stats — сводная статистика для административной панели.
type Stats struct {
	TotalUsers          int `json:"total_users"`
	ActiveSubscriptions int `json:"active_subscriptions"`
	CancellationsWeek   int `json:"cancellations_week"`
}
