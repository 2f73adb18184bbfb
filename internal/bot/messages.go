package bot

import (
	"fmt"
	"strings"

	"github.com/ar2em/subscription-bot/internal/models"
)

func welcomeMessage(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "друг"
	}
	return fmt.Sprintf(
		"👋 Привет, <b>%s</b>!\n\n"+
			"Это бот закрытого канала. Здесь можно оформить подписку, "+
			"проверить её статус и связаться с поддержкой.", name)
}

func subscriptionOfferMessage(price float64, currency string, days int) string {
	return fmt.Sprintf(
		"💎 <b>Подписка на закрытый канал</b>\n\n"+
			"Стоимость: <b>%.0f %s</b>\n"+
			"Срок: <b>%d дней</b>\n\n"+
			"После оплаты бот пришлёт персональную ссылку-приглашение.",
		price, currency, days)
}

func paymentMessage() string {
	return "💳 Нажмите кнопку ниже, чтобы перейти к оплате.\n\n" +
		"После успешного платежа доступ откроется автоматически, " +
		"обычно это занимает меньше минуты."
}

func paymentErrorMessage() string {
	return "😔 Не удалось сформировать ссылку на оплату. " +
		"Попробуйте ещё раз чуть позже или напишите в поддержку."
}

func alreadyActiveAlert() string {
	return "У вас уже есть активная подписка 👍"
}

func statusActiveMessage(sub *models.Subscription, daysLeft int) string {
	var b strings.Builder
	b.WriteString("📊 <b>Ваша подписка</b>\n\n")
	switch sub.Status {
	case models.StatusCancelled:
		b.WriteString("Статус: отменена, доступ сохраняется до конца оплаченного срока\n")
	default:
		b.WriteString("Статус: активна ✅\n")
	}
	fmt.Fprintf(&b, "Действует до: <b>%s</b>\n", sub.ExpiresAt.Format("02.01.2006"))
	fmt.Fprintf(&b, "Осталось дней: <b>%d</b>", daysLeft)
	return b.String()
}

func noSubscriptionMessage() string {
	return "У вас пока нет подписки. Оформить её можно прямо сейчас 👇"
}

func cancelConfirmMessage() string {
	return "❓ Вы уверены, что хотите отменить подписку?\n\n" +
		"Доступ к каналу сохранится до конца оплаченного срока, " +
		"но продление остановится."
}

func cancelReasonPromptMessage() string {
	return "✍️ Напишите, пожалуйста, почему вы решили отменить подписку. " +
		"Ваш ответ поможет нам стать лучше.\n\n" +
		"Отправьте причину одним сообщением."
}

func cancelDoneMessage() string {
	return "✅ Подписка отменена. Доступ к каналу сохранится до конца " +
		"оплаченного срока.\n\nСпасибо, что были с нами!"
}

func cancelKeptMessage() string {
	return "🎉 Отлично, подписка остаётся активной!"
}

func cancelErrorMessage() string {
	return "😔 Не удалось отменить подписку. Попробуйте позже или напишите в поддержку."
}

func supportMessage(supportName string) string {
	return fmt.Sprintf(
		"🆘 <b>Поддержка</b>\n\n"+
			"По любым вопросам пишите %s, обычно отвечаем в течение дня.",
		supportName)
}

func cancelSupportNotification(userID int64, username, reason string) string {
	who := fmt.Sprintf("id %d", userID)
	if username != "" {
		who = fmt.Sprintf("@%s (id %d)", username, userID)
	}
	return fmt.Sprintf("❌ Отмена подписки: %s\nПричина: %s", who, reason)
}

func statsMessage(stats *models.Stats) string {
	return fmt.Sprintf(
		"📈 <b>Статистика</b>\n\n"+
			"Пользователей: <b>%d</b>\n"+
			"Активных подписок: <b>%d</b>\n"+
			"Отмен за неделю: <b>%d</b>",
		stats.TotalUsers, stats.ActiveSubscriptions, stats.CancellationsWeek)
}
