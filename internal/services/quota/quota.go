// Package services содержит бизнес-логику учёта хранилища:
// подсчёт занятых байт, проверку права на грейс-период и
// производный статус хранилища аккаунта.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// AccountRepository определяет методы чтения аккаунтов и контента.
type AccountRepository interface {
	// GetAccount возвращает аккаунт по идентификатору.
	GetAccount(ctx context.Context, userUID string) (*models.Account, error)
	// SumContentSize подсчитывает суммарный размер живых треков аккаунта.
	SumContentSize(ctx context.Context, ownerUID string) (int64, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// QuotaService реализует чтения движка квот: учёт байт, право на
// грейс-период и статус хранилища.
type QuotaService struct {
	repo           AccountRepository
	cache          Cache
	log            *slog.Logger
	budgetBytes    int64
	cooldown       time.Duration
	statusCacheTTL time.Duration
}

// NewQuotaService создает новый экземпляр QuotaService.
func NewQuotaService(repo AccountRepository, cache Cache, log *slog.Logger,
	budgetBytes int64, cooldown, statusCacheTTL time.Duration) *QuotaService {
	return &QuotaService{
		repo:           repo,
		cache:          cache,
		log:            log,
		budgetBytes:    budgetBytes,
		cooldown:       cooldown,
		statusCacheTTL: statusCacheTTL,
	}
}

// StatusCacheKey ключ кеша статуса хранилища аккаунта.
func StatusCacheKey(userUID string) string {
	return fmt.Sprintf("storage-status:%s", userUID)
}

// CurrentStorageUsage возвращает суммарный размер живых треков аккаунта
// в байтах. Ошибка хранилища всегда поднимается наверх: ноль при
// недоступной базе вернуть нельзя.
func (s *QuotaService) CurrentStorageUsage(ctx context.Context, userUID string) (int64, error) {
	return s.repo.SumContentSize(ctx, userUID)
}

// IsEligibleForGracePeriod проверяет, можно ли выдать аккаунту новый
// грейс-период. Отказывает при активном окне и в течение кулдауна после
// предыдущей выдачи. При ошибке хранилища отвечает отказом: лучше не
// выдать окно, чем выдать его злоупотребляющему аккаунту.
func (s *QuotaService) IsEligibleForGracePeriod(ctx context.Context, userUID string) bool {
	account, err := s.repo.GetAccount(ctx, userUID)
	if err != nil {
		s.log.Error("failed to read account for eligibility check",
			slog.String("user_uid", userUID), sl.Err(err))
		return false
	}

	now := time.Now()
	if account.GracePeriodEnds != nil && account.GracePeriodEnds.After(now) {
		return false
	}
	if account.LastGracePeriodUsed != nil &&
		now.Sub(*account.LastGracePeriodUsed) < s.cooldown {
		return false
	}
	return true
}

// GetStorageStatus вычисляет производный статус хранилища аккаунта.
// Ошибка хранилища поднимается наверх: угадывать статус нельзя.
func (s *QuotaService) GetStorageStatus(ctx context.Context, userUID string) (*models.StorageStatus, error) {
	cacheKey := StatusCacheKey(userUID)
	var cached models.StorageStatus
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read status from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	account, err := s.repo.GetAccount(ctx, userUID)
	if err != nil {
		return nil, err
	}

	status, err := s.deriveStatus(ctx, account)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, status, s.statusCacheTTL); err != nil {
		s.log.Warn("failed to cache storage status", slog.String("key", cacheKey), sl.Err(err))
	}
	return status, nil
}

func (s *QuotaService) deriveStatus(ctx context.Context, account *models.Account) (*models.StorageStatus, error) {
	if account.DowngradedAt == nil {
		return &models.StorageStatus{
			Status:        models.StateActiveSubscription,
			DaysRemaining: 0,
			CanUpload:     true,
		}, nil
	}

	now := time.Now()
	if account.GracePeriodEnds != nil && now.Before(*account.GracePeriodEnds) {
		usage, err := s.repo.SumContentSize(ctx, account.UserUID)
		if err != nil {
			return nil, err
		}
		days := int(math.Ceil(account.GracePeriodEnds.Sub(now).Hours() / 24))
		return &models.StorageStatus{
			Status:        models.StateGracePeriod,
			DaysRemaining: days,
			CanUpload:     usage <= s.budgetBytes,
		}, nil
	}

	// Окно истекло, но свипер ещё не прошёл, либо аккаунт уже на free
	// с превышением бюджета: загрузка закрыта безусловно.
	return &models.StorageStatus{
		Status:        models.StateGraceExpired,
		DaysRemaining: 0,
		CanUpload:     false,
	}, nil
}
