package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// GetAccount возвращает аккаунт по его идентификатору.
func (s *Storage) GetAccount(ctx context.Context, userUID string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, username, email, subscription_tier, downgraded_at,
				  grace_period_ends, storage_at_downgrade, grace_periods_used,
				  last_grace_period_used
			  FROM accounts WHERE user_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.Account
	if err := row.Scan(&result.UserUID, &result.Username, &result.Email,
		&result.SubscriptionTier, &result.DowngradedAt, &result.GracePeriodEnds,
		&result.StorageAtDowngrade, &result.GracePeriodsUsed,
		&result.LastGracePeriodUsed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// GrantParams параметры выдачи грейс-периода.
type GrantParams struct {
	UserUID            string
	FromTier           models.Tier
	ToTier             models.Tier
	DowngradedAt       time.Time
	GracePeriodEnds    time.Time
	StorageAtDowngrade int64
	Reason             string
}

// GrantGracePeriod атомарно переводит аккаунт на free с выдачей
// грейс-периода и добавляет запись в журнал смен тарифа.
// Обновление условное: строка меняется только если активного окна нет.
// Возвращает количество затронутых строк; 0 означает, что окно уже
// выдано конкурентным вызовом.
func (s *Storage) GrantGracePeriod(ctx context.Context, p GrantParams) (int, error) {
	const op = "storage.GrantGracePeriod"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE accounts
			  SET subscription_tier = $1,
			      downgraded_at = $2,
			      grace_period_ends = $3,
			      storage_at_downgrade = $4,
			      grace_periods_used = grace_periods_used + 1,
			      last_grace_period_used = $2
			  WHERE user_uid = $5
			    AND (grace_period_ends IS NULL OR grace_period_ends < $2)`
	result, err := tx.ExecContext(ctx, query,
		p.ToTier, p.DowngradedAt, p.GracePeriodEnds, p.StorageAtDowngrade, p.UserUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return 0, nil
	}

	query = `INSERT INTO subscription_changes (user_uid, from_tier, to_tier, storage_at_change, reason)
			 VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, query,
		p.UserUID, p.FromTier, p.ToTier, p.StorageAtDowngrade, p.Reason); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListExpiredGraceAccounts находит аккаунты с истекшим грейс-периодом.
// Прочитанное значение grace_period_ends возвращается вместе с аккаунтом
// и служит ожидаемым значением лизы при финализации.
func (s *Storage) ListExpiredGraceAccounts(ctx context.Context, now time.Time) ([]*models.ExpiredGrace, error) {
	const op = "storage.ListExpiredGraceAccounts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, username, email, grace_period_ends
			  FROM accounts
			  WHERE grace_period_ends IS NOT NULL
			    AND grace_period_ends < $1`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiredGrace
	for rows.Next() {
		var item models.ExpiredGrace
		if err := rows.Scan(&item.UserUID, &item.Username, &item.Email,
			&item.GracePeriodEnds); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExpiryParams параметры финализации истекшего грейс-периода.
type ExpiryParams struct {
	UserUID string
	// ExpectedGracePeriodEnds значение, прочитанное при выборке; лиза.
	ExpectedGracePeriodEnds time.Time
	// PrivateContentIDs треки, не поместившиеся в бюджет.
	PrivateContentIDs []string
	// MarkPostsPrivate грубая политика: скрыть все посты аккаунта.
	MarkPostsPrivate bool
}

// FinalizeExpiry атомарно применяет решение свипера: очищает поля
// грейс-периода условным обновлением, скрывает неуместившиеся треки и,
// при необходимости, все посты аккаунта. Возвращает количество строк,
// затронутых условным обновлением; 0 означает, что аккаунт уже
// финализирован конкурентным прогоном, и никакие изменения не применяются.
func (s *Storage) FinalizeExpiry(ctx context.Context, p ExpiryParams) (int, error) {
	const op = "storage.FinalizeExpiry"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE accounts
			  SET downgraded_at = NULL,
			      grace_period_ends = NULL,
			      storage_at_downgrade = NULL
			  WHERE user_uid = $1
			    AND grace_period_ends = $2`
	result, err := tx.ExecContext(ctx, query, p.UserUID, p.ExpectedGracePeriodEnds)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return 0, nil
	}

	if len(p.PrivateContentIDs) > 0 {
		query = `UPDATE content_items
				 SET is_public = false
				 WHERE owner_uid = $1
				   AND id = ANY($2)`
		if _, err = tx.ExecContext(ctx, query, p.UserUID, p.PrivateContentIDs); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if p.MarkPostsPrivate {
		query = `UPDATE posts
				 SET is_private = true
				 WHERE owner_uid = $1
				   AND deleted_at IS NULL`
		if _, err = tx.ExecContext(ctx, query, p.UserUID); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListSubscriptionChanges возвращает журнал смен тарифа аккаунта,
// последние записи первыми.
func (s *Storage) ListSubscriptionChanges(ctx context.Context, userUID string) ([]*models.SubscriptionChange, error) {
	const op = "storage.ListSubscriptionChanges"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, from_tier, to_tier, storage_at_change, reason, created_at
			  FROM subscription_changes
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionChange
	for rows.Next() {
		var item models.SubscriptionChange
		if err := rows.Scan(&item.UserUID, &item.FromTier, &item.ToTier,
			&item.StorageAtChange, &item.Reason, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
