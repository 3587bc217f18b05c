package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendLog(t *testing.T, repo *GormSaleLogRepository, sale *sales.Sale, action sales.SaleLogAction, message string, metadata map[string]any, createdAt time.Time) *sales.SaleLog {
	t.Helper()
	entry, err := sales.NewSaleLog(sale.ID, action, message, metadata, nil)
	require.NoError(t, err)
	// Pin the timestamp so ordering assertions are deterministic
	entry.CreatedAt = createdAt
	entry.UpdatedAt = createdAt
	require.NoError(t, repo.Append(context.Background(), entry))
	return entry
}

func TestGormSaleLogRepository_AppendAndFind(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormSaleLogRepository(db)
	ctx := context.Background()

	sale := newApprovedSale(t, db, "V-2026-0400", 10_000_000)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	appendLog(t, repo, sale, sales.LogActionSaleSynced, "Sale synced from platform", nil, base)
	appendLog(t, repo, sale, sales.LogActionScheduleGenerated, "FRENCH schedule generated",
		map[string]any{"method": "FRENCH", "installments": float64(24)}, base.Add(time.Hour))
	appendLog(t, repo, sale, sales.LogActionReceiptIngested, "Receipt ingested", nil, base.Add(2*time.Hour))

	t.Run("returns entries newest first", func(t *testing.T) {
		entries, err := repo.FindBySaleID(ctx, sale.ID, sales.SaleLogFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, sales.LogActionReceiptIngested, entries[0].Action)
		assert.Equal(t, sales.LogActionSaleSynced, entries[2].Action)
	})

	t.Run("round-trips metadata", func(t *testing.T) {
		action := sales.LogActionScheduleGenerated
		entries, err := repo.FindBySaleID(ctx, sale.ID, sales.SaleLogFilter{Filter: shared.DefaultFilter(), Action: &action})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "FRENCH", entries[0].Metadata["method"])
		assert.Equal(t, float64(24), entries[0].Metadata["installments"])
	})

	t.Run("counts with a date window", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		count, err := repo.CountBySaleID(ctx, sale.ID, sales.SaleLogFilter{Filter: shared.DefaultFilter(), FromDate: &from})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("scopes entries to the sale", func(t *testing.T) {
		other := newApprovedSale(t, db, "V-2026-0401", 10_000_000)
		entries, err := repo.FindBySaleID(ctx, other.ID, sales.SaleLogFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
