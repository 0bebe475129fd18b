// Package services содержит бизнес-логику свипера грейс-периодов:
// пакетную финализацию аккаунтов, у которых истекло окно после даунгрейда.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/selector"
	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	"github.com/magabrotheeeer/storage-quota-engine/internal/metrics"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
	quotaservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/quota"
	"github.com/magabrotheeeer/storage-quota-engine/internal/storage/repository"
)

// SweeperRepository определяет методы хранилища для свипера.
type SweeperRepository interface {
	// ListExpiredGraceAccounts находит аккаунты с истекшим грейс-периодом.
	ListExpiredGraceAccounts(ctx context.Context, now time.Time) ([]*models.ExpiredGrace, error)
	// SumContentSize подсчитывает суммарный размер живых треков аккаунта.
	SumContentSize(ctx context.Context, ownerUID string) (int64, error)
	// ListActiveContent возвращает живые треки аккаунта.
	ListActiveContent(ctx context.Context, ownerUID string) ([]models.ContentItem, error)
	// FinalizeExpiry атомарно применяет решение свипера к одному аккаунту.
	FinalizeExpiry(ctx context.Context, p repository.ExpiryParams) (int, error)
}

// Cache описывает инвалидацию кешированных статусов.
type Cache interface {
	Invalidate(key string) error
}

// Publisher публикует события жизненного цикла грейс-периода.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// SweeperService реализует пакетную финализацию истекших грейс-периодов.
type SweeperService struct {
	repo        SweeperRepository
	cache       Cache
	publisher   Publisher
	log         *slog.Logger
	budgetBytes int64
	workers     int
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(repo SweeperRepository, cache Cache, publisher Publisher,
	log *slog.Logger, budgetBytes int64, workers int) *SweeperService {
	if workers < 1 {
		workers = 1
	}
	return &SweeperService{
		repo:        repo,
		cache:       cache,
		publisher:   publisher,
		log:         log,
		budgetBytes: budgetBytes,
		workers:     workers,
	}
}

// ExpireGracePeriods один прогон свипера. Аккаунты обрабатываются
// независимо пулом воркеров: ошибка одного аккаунта записывается в отчёт
// и не прерывает остальных. Прогон идемпотентен — финализированный
// аккаунт пропадает из выборки, а конкурентная финализация одного
// аккаунта разрешается условным обновлением в FinalizeExpiry.
func (s *SweeperService) ExpireGracePeriods(ctx context.Context) (*models.SweepReport, error) {
	s.log.Info("starting grace period sweep")
	metrics.SweepsTotal.Inc()

	expired, err := s.repo.ListExpiredGraceAccounts(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		s.log.Info("no expired grace periods found")
		return &models.SweepReport{}, nil
	}
	s.log.Info("found expired grace periods", "count", len(expired))

	var mu sync.Mutex
	report := &models.SweepReport{}

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, account := range expired {
		g.Go(func() error {
			finalized, perr := s.processAccount(ctx, account)

			mu.Lock()
			defer mu.Unlock()
			if perr != nil {
				metrics.SweepErrorsTotal.Inc()
				report.Errors = append(report.Errors,
					fmt.Sprintf("account %s: %v", account.UserUID, perr))
				return nil
			}
			if finalized {
				metrics.AccountsExpiredTotal.Inc()
				report.ExpiredCount++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("grace period sweep finished",
		"expired", report.ExpiredCount, "errors", len(report.Errors))
	return report, nil
}

// processAccount финализирует один аккаунт. Возвращает false без ошибки,
// если лиза потеряна: аккаунт уже финализирован конкурентным прогоном.
func (s *SweeperService) processAccount(ctx context.Context, account *models.ExpiredGrace) (bool, error) {
	// Бюджетом служит константа бесплатного тарифа, а не снимок
	// storage_at_downgrade: за время окна контент мог измениться.
	usage, err := s.repo.SumContentSize(ctx, account.UserUID)
	if err != nil {
		return false, err
	}

	items, err := s.repo.ListActiveContent(ctx, account.UserUID)
	if err != nil {
		return false, err
	}

	selection := selector.SelectPublicSet(items, s.budgetBytes)

	rows, err := s.repo.FinalizeExpiry(ctx, repository.ExpiryParams{
		UserUID:                 account.UserUID,
		ExpectedGracePeriodEnds: account.GracePeriodEnds,
		PrivateContentIDs:       selection.PrivateIDs,
		// Прямой связи постов с треками нет, поэтому решение по постам
		// грубое: превышение бюджета скрывает все посты аккаунта.
		MarkPostsPrivate: usage > s.budgetBytes,
	})
	if err != nil {
		return false, err
	}
	if rows == 0 {
		s.log.Info("grace period already finalized by a concurrent run",
			slog.String("user_uid", account.UserUID))
		return false, nil
	}

	s.log.Info("grace period expired",
		slog.String("user_uid", account.UserUID),
		slog.Int("public_tracks", len(selection.PublicIDs)),
		slog.Int("private_tracks", len(selection.PrivateIDs)))

	if err := s.cache.Invalidate(quotaservice.StatusCacheKey(account.UserUID)); err != nil {
		s.log.Warn("failed to invalidate status cache",
			slog.String("user_uid", account.UserUID), sl.Err(err))
	}

	notice := models.GraceNotice{
		Email:           account.Email,
		Username:        account.Username,
		GracePeriodEnds: account.GracePeriodEnds,
		PrivateTracks:   len(selection.PrivateIDs),
		PublicTracks:    len(selection.PublicIDs),
	}
	if err := s.publisher.Publish("notifications", "grace_expired", notice); err != nil {
		s.log.Warn("failed to publish grace expired event",
			slog.String("user_uid", account.UserUID), sl.Err(err))
	}

	return true, nil
}
