package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

const mb = int64(1024 * 1024)

func track(id string, sizeMB int64, plays int64, createdAt time.Time) models.ContentItem {
	return models.ContentItem{
		ID:            id,
		OwnerUID:      "owner",
		FileSizeBytes: sizeMB * mb,
		PlayCount:     plays,
		CreatedAt:     createdAt,
		IsPublic:      true,
	}
}

func TestSelectPublicSet(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		items       []models.ContentItem
		budgetMB    int64
		wantPublic  []string
		wantPrivate []string
	}{
		{
			name:        "empty input",
			items:       nil,
			budgetMB:    30,
			wantPublic:  nil,
			wantPrivate: nil,
		},
		{
			name: "everything fits",
			items: []models.ContentItem{
				track("a", 10, 5, base),
				track("b", 15, 3, base.AddDate(0, 0, 1)),
			},
			budgetMB:    30,
			wantPublic:  []string{"a", "b"},
			wantPrivate: nil,
		},
		{
			name: "popular tracks survive, rest goes private",
			items: []models.ContentItem{
				track("b", 15, 10, base.AddDate(0, 0, 2)),
				track("c", 10, 0, base.AddDate(0, 0, 3)),
				track("a", 20, 500, base.AddDate(0, 0, 1)),
			},
			budgetMB:    30,
			wantPublic:  []string{"a"},
			wantPrivate: []string{"b", "c"},
		},
		{
			name: "prefix closes on first misfit even if a later track would fit",
			items: []models.ContentItem{
				track("big", 25, 100, base),
				track("huge", 20, 50, base),
				track("tiny", 1, 1, base),
			},
			budgetMB:   30,
			wantPublic: []string{"big"},
			// tiny поместился бы, но префикс уже закрыт
			wantPrivate: []string{"huge", "tiny"},
		},
		{
			name: "ties broken by more recent upload",
			items: []models.ContentItem{
				track("old", 10, 7, base),
				track("new", 10, 7, base.AddDate(0, 1, 0)),
			},
			budgetMB:    10,
			wantPublic:  []string{"new"},
			wantPrivate: []string{"old"},
		},
		{
			name: "exact budget fit is public",
			items: []models.ContentItem{
				track("a", 30, 1, base),
			},
			budgetMB:    30,
			wantPublic:  []string{"a"},
			wantPrivate: nil,
		},
		{
			name: "zero budget makes everything private",
			items: []models.ContentItem{
				track("a", 1, 10, base),
				track("b", 1, 5, base),
			},
			budgetMB:    0,
			wantPublic:  nil,
			wantPrivate: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectPublicSet(tt.items, tt.budgetMB*mb)

			assert.Equal(t, tt.wantPublic, got.PublicIDs)
			assert.Equal(t, tt.wantPrivate, got.PrivateIDs)
			assert.LessOrEqual(t, got.PublicBytes, tt.budgetMB*mb)
		})
	}
}

// Публичный набор всегда максимальный по приоритетному порядку префикс:
// трек с большим приоритетом не может быть приватным, пока трек
// с меньшим публичен.
func TestSelectPublicSet_PrefixProperty(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []models.ContentItem{
		track("t1", 12, 900, base),
		track("t2", 9, 900, base.AddDate(0, 0, 5)),
		track("t3", 8, 40, base),
		track("t4", 3, 40, base.AddDate(0, 0, -3)),
		track("t5", 2, 1, base),
	}

	got := SelectPublicSet(items, 30*mb)

	// порядок приоритета: t2 (900, свежее), t1 (900), t3, t4, t5
	assert.Equal(t, []string{"t2", "t1", "t3"}, got.PublicIDs)
	assert.Equal(t, []string{"t4", "t5"}, got.PrivateIDs)
	assert.Equal(t, 29*mb, got.PublicBytes)
}

// Сценарий из продакшена: 45MB при бюджете 30MB.
func TestSelectPublicSet_OverBudgetAccount(t *testing.T) {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []models.ContentItem{
		track("A", 20, 500, base),
		track("B", 15, 10, base),
		track("C", 10, 0, base),
	}

	got := SelectPublicSet(items, 30*mb)

	// A помещается, A+B=35MB превышает бюджет, префикс закрыт
	assert.Equal(t, []string{"A"}, got.PublicIDs)
	assert.Equal(t, []string{"B", "C"}, got.PrivateIDs)
	assert.Equal(t, 20*mb, got.PublicBytes)
}

func TestSelectPublicSet_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []models.ContentItem{
		track("low", 5, 1, base),
		track("high", 5, 100, base),
	}

	_ = SelectPublicSet(items, 5*mb)

	assert.Equal(t, "low", items[0].ID)
	assert.Equal(t, "high", items[1].ID)
}
