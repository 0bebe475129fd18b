package models

import "time"

// StorageState статус хранилища аккаунта.
type StorageState string

// Возможные статусы хранилища.
const (
	StateActiveSubscription StorageState = "active_subscription"
	StateGracePeriod        StorageState = "grace_period"
	StateGraceExpired       StorageState = "grace_expired"
)

// StorageStatus производное представление состояния хранилища аккаунта.
// Не хранится в базе, вычисляется на каждое чтение.
type StorageStatus struct {
	Status        StorageState `json:"status"`
	DaysRemaining int          `json:"days_remaining"`
	CanUpload     bool         `json:"can_upload"`
}

// SweepReport итог одного прогона свипера грейс-периодов.
type SweepReport struct {
	ExpiredCount int      `json:"expired_count"`
	Errors       []string `json:"errors"`
}

// GraceNotice сообщение для сервиса уведомлений о событии грейс-периода.
type GraceNotice struct {
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	GracePeriodEnds time.Time `json:"grace_period_ends"`
	PrivateTracks   int       `json:"private_tracks"`
	PublicTracks    int       `json:"public_tracks"`
}
