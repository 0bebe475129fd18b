// Package selector реализует детерминированный выбор публичного набора
// треков аккаунта в пределах байтового бюджета бесплатного тарифа.
//
// Алгоритм — жадный префикс, а не оптимальный рюкзак: приоритет и
// детерминированность важнее максимальной утилизации бюджета.
package selector

import (
	"sort"

	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// Selection результат разбиения треков аккаунта на публичные и приватные.
type Selection struct {
	PublicIDs   []string
	PrivateIDs  []string
	PublicBytes int64
}

// SelectPublicSet разбивает треки на публичный и приватный наборы.
// Треки сортируются по убыванию прослушиваний, при равенстве — более
// свежие первыми. Публичным становится максимальный префикс, суммарный
// размер которого не превышает budgetBytes: первый неуместившийся трек
// и всё после него уходит в приватные.
func SelectPublicSet(items []models.ContentItem, budgetBytes int64) Selection {
	sorted := make([]models.ContentItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PlayCount != sorted[j].PlayCount {
			return sorted[i].PlayCount > sorted[j].PlayCount
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sel Selection
	prefixOpen := true
	for _, item := range sorted {
		if prefixOpen && sel.PublicBytes+item.FileSizeBytes <= budgetBytes {
			sel.PublicIDs = append(sel.PublicIDs, item.ID)
			sel.PublicBytes += item.FileSizeBytes
			continue
		}
		prefixOpen = false
		sel.PrivateIDs = append(sel.PrivateIDs, item.ID)
	}
	return sel
}
