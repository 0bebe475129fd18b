package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// SumContentSize подсчитывает суммарный размер живых треков аккаунта в байтах.
func (s *Storage) SumContentSize(ctx context.Context, ownerUID string) (int64, error) {
	const op = "storage.SumContentSize"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(SUM(file_size_bytes), 0)
			  FROM content_items
			  WHERE owner_uid = $1
			    AND deleted_at IS NULL`
	var total int64
	if err := s.DB.QueryRowContext(ctx, query, ownerUID).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// ListActiveContent возвращает живые треки аккаунта.
func (s *Storage) ListActiveContent(ctx context.Context, ownerUID string) ([]models.ContentItem, error) {
	const op = "storage.ListActiveContent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_uid, title, file_size_bytes, play_count,
				  created_at, deleted_at, is_public
			  FROM content_items
			  WHERE owner_uid = $1
			    AND deleted_at IS NULL
			  ORDER BY play_count DESC, created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		if err := rows.Scan(&item.ID, &item.OwnerUID, &item.Title,
			&item.FileSizeBytes, &item.PlayCount, &item.CreatedAt,
			&item.DeletedAt, &item.IsPublic); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActivePosts возвращает количество живых постов аккаунта.
func (s *Storage) CountActivePosts(ctx context.Context, ownerUID string) (int, error) {
	const op = "storage.CountActivePosts"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*)
			  FROM posts
			  WHERE owner_uid = $1
			    AND deleted_at IS NULL`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, ownerUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
