// Package services содержит бизнес-логику выдачи грейс-периода
// при даунгрейде аккаунта с платного тарифа на бесплатный.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	"github.com/magabrotheeeer/storage-quota-engine/internal/metrics"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
	quotaservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/quota"
	"github.com/magabrotheeeer/storage-quota-engine/internal/storage/repository"
)

// Ошибки выдачи грейс-периода.
var (
	// ErrInvalidTransition переход тарифов не является даунгрейдом на free.
	ErrInvalidTransition = errors.New("grace period only applies to downgrades from paid to free")
	// ErrNotEligible аккаунт не имеет права на новый грейс-период.
	ErrNotEligible = errors.New("not eligible for grace period")
	// ErrAlreadyProcessed условное обновление не затронуло строк:
	// окно уже выдано конкурентным вызовом.
	ErrAlreadyProcessed = errors.New("grace period already granted by a concurrent call")
)

// reasonSubscriptionCancelled причина в журнале смен тарифа.
const reasonSubscriptionCancelled = "subscription_cancelled"

// GrantRepository определяет методы хранилища для выдачи грейс-периода.
type GrantRepository interface {
	GrantGracePeriod(ctx context.Context, p repository.GrantParams) (int, error)
}

// EligibilityChecker проверяет право аккаунта на новый грейс-период.
type EligibilityChecker interface {
	IsEligibleForGracePeriod(ctx context.Context, userUID string) bool
}

// StorageAccountant возвращает текущее использование хранилища аккаунтом.
type StorageAccountant interface {
	CurrentStorageUsage(ctx context.Context, userUID string) (int64, error)
}

// Cache описывает инвалидацию кешированных статусов.
type Cache interface {
	Invalidate(key string) error
}

// Publisher публикует события жизненного цикла грейс-периода.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// GrantService реализует выдачу грейс-периода.
type GrantService struct {
	repo        GrantRepository
	eligibility EligibilityChecker
	accountant  StorageAccountant
	cache       Cache
	publisher   Publisher
	log         *slog.Logger
	graceDays   int
}

// NewGrantService создает новый экземпляр GrantService.
func NewGrantService(repo GrantRepository, eligibility EligibilityChecker,
	accountant StorageAccountant, cache Cache, publisher Publisher,
	log *slog.Logger, graceDays int) *GrantService {
	return &GrantService{
		repo:        repo,
		eligibility: eligibility,
		accountant:  accountant,
		cache:       cache,
		publisher:   publisher,
		log:         log,
		graceDays:   graceDays,
	}
}

// GrantGracePeriod выдает аккаунту грейс-период при даунгрейде
// fromTier -> toTier. Даунгрейд тарифа вступает в силу сразу, но
// видимость контента не меняется до прохода свипера.
//
// Снимок занятых байт сохраняется только для аудита: свипер заново
// измеряет использование на момент прогона.
func (s *GrantService) GrantGracePeriod(ctx context.Context, userUID, fromTierRaw, toTierRaw string) (*models.GraceGrant, error) {
	fromTier := models.NormalizeTier(fromTierRaw)
	toTier := models.NormalizeTier(toTierRaw)

	if toTier != models.TierFree || fromTier == models.TierFree {
		return nil, ErrInvalidTransition
	}

	if !s.eligibility.IsEligibleForGracePeriod(ctx, userUID) {
		return nil, ErrNotEligible
	}

	storageAtDowngrade, err := s.accountant.CurrentStorageUsage(ctx, userUID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	gracePeriodEnds := now.AddDate(0, 0, s.graceDays)

	rows, err := s.repo.GrantGracePeriod(ctx, repository.GrantParams{
		UserUID:            userUID,
		FromTier:           fromTier,
		ToTier:             toTier,
		DowngradedAt:       now,
		GracePeriodEnds:    gracePeriodEnds,
		StorageAtDowngrade: storageAtDowngrade,
		Reason:             reasonSubscriptionCancelled,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrAlreadyProcessed
	}

	grant := &models.GraceGrant{
		UserUID:            userUID,
		GracePeriodEnds:    gracePeriodEnds,
		StorageAtDowngrade: storageAtDowngrade,
	}

	metrics.GraceGrantsTotal.Inc()
	s.log.Info("granted grace period",
		slog.String("user_uid", userUID),
		slog.Time("grace_period_ends", gracePeriodEnds),
		slog.Int64("storage_at_downgrade", storageAtDowngrade))

	if err := s.cache.Invalidate(quotaservice.StatusCacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate status cache", slog.String("user_uid", userUID), sl.Err(err))
	}

	if err := s.publisher.Publish("notifications", "grace_granted", grant); err != nil {
		s.log.Warn("failed to publish grace granted event", slog.String("user_uid", userUID), sl.Err(err))
	}

	return grant, nil
}
