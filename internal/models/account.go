// Package models содержит доменные структуры аккаунта криэйтора:
// уровень подписки, поля грейс-периода и запись аудита смены тарифа.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Tier уровень подписки аккаунта.
type Tier string

// Уровни подписки.
const (
	TierFree      Tier = "free"
	TierPremium   Tier = "premium"
	TierUnlimited Tier = "unlimited"
)

// NormalizeTier приводит внешние названия тарифов биллинга к внутренним.
// Биллинг присылает pro/enterprise для старых планов.
func NormalizeTier(raw string) Tier {
	switch raw {
	case "pro":
		return TierPremium
	case "enterprise":
		return TierUnlimited
	default:
		return Tier(raw)
	}
}

// Account представляет аккаунт криэйтора.
// Инвариант: GracePeriodEnds не nil тогда и только тогда,
// когда DowngradedAt не nil и окно ещё не очищено свипером.
type Account struct {
	UserUID             string     // Уникальный идентификатор аккаунта
	Username            string     // Имя пользователя (уникальное)
	Email               string     // Электронная почта для уведомлений
	SubscriptionTier    Tier       // Текущий тариф
	DowngradedAt        *time.Time // Момент даунгрейда на free
	GracePeriodEnds     *time.Time // Конец грейс-периода
	StorageAtDowngrade  *int64     // Снимок занятых байт на момент даунгрейда (только для аудита)
	GracePeriodsUsed    int        // Сколько грейс-периодов выдано за всё время
	LastGracePeriodUsed *time.Time // Когда был выдан последний грейс-период
}

// SubscriptionChange запись аудита смены тарифа. Только добавляется, никогда не изменяется.
type SubscriptionChange struct {
	UserUID         string
	FromTier        Tier
	ToTier          Tier
	StorageAtChange int64
	Reason          string
	CreatedAt       time.Time
}

// GraceGrant результат успешной выдачи грейс-периода.
type GraceGrant struct {
	UserUID            string    `json:"user_uid"`
	GracePeriodEnds    time.Time `json:"grace_period_ends"`
	StorageAtDowngrade int64     `json:"storage_at_downgrade"`
}

// ExpiredGrace строка выборки свипера: аккаунт с истекшим окном и
// прочитанным значением grace_period_ends для условного обновления.
type ExpiredGrace struct {
	UserUID         string
	Username        string
	Email           string
	GracePeriodEnds time.Time
}
