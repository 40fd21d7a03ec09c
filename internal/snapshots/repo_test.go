package snapshots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coursekit-app/coursekit-backend/pkg/db/models"
)

func newSnapshotDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := `
CREATE TABLE daily_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  snapshot_date DATE NOT NULL,
  revenue REAL NOT NULL DEFAULT 0,
  purchases INTEGER NOT NULL DEFAULT 0,
  refund_rate REAL NOT NULL DEFAULT 0,
  visitors INTEGER NOT NULL DEFAULT 0,
  pageviews INTEGER NOT NULL DEFAULT 0,
  bounce_rate REAL NOT NULL DEFAULT 0,
  subscribers INTEGER NOT NULL DEFAULT 0,
  new_subscribers INTEGER NOT NULL DEFAULT 0,
  ad_spend REAL NOT NULL DEFAULT 0,
  ad_clicks INTEGER NOT NULL DEFAULT 0,
  ad_impressions INTEGER NOT NULL DEFAULT 0,
  cpa REAL NOT NULL DEFAULT 0,
  roas REAL NOT NULL DEFAULT 0,
  cpl REAL NOT NULL DEFAULT 0,
  signup_rate REAL NOT NULL DEFAULT 0,
  email_purchase_rate REAL NOT NULL DEFAULT 0,
  total_users INTEGER NOT NULL DEFAULT 0,
  purchased_users INTEGER NOT NULL DEFAULT 0,
  avg_time_to_purchase REAL NOT NULL DEFAULT 0,
  capture_errors TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
`
	require.NoError(t, conn.Exec(ddl).Error)
	require.NoError(t, conn.Exec(`CREATE UNIQUE INDEX idx_daily_snapshots_date ON daily_snapshots (snapshot_date);`).Error)
	return conn
}

func snapDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	repo := NewRepo(newSnapshotDB(t))
	ctx := context.Background()
	date := snapDate(2026, 1, 15)

	first := &models.DailySnapshot{SnapshotDate: date, Revenue: 100, Purchases: 1}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.DailySnapshot{SnapshotDate: date, Revenue: 594, Purchases: 2, RefundRate: 50}
	require.NoError(t, repo.Upsert(ctx, second))

	rows, err := repo.ListRange(ctx, date, date)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 594.0, rows[0].Revenue)
	assert.Equal(t, int64(2), rows[0].Purchases)
	assert.Equal(t, 50.0, rows[0].RefundRate)
}

func TestListRangeAscending(t *testing.T) {
	repo := NewRepo(newSnapshotDB(t))
	ctx := context.Background()

	// insert out of order
	for _, d := range []int{16, 14, 15} {
		snap := &models.DailySnapshot{SnapshotDate: snapDate(2026, 1, d), Purchases: int64(d)}
		require.NoError(t, repo.Upsert(ctx, snap))
	}

	rows, err := repo.ListRange(ctx, snapDate(2026, 1, 14), snapDate(2026, 1, 16))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, want := range []int64{14, 15, 16} {
		assert.Equal(t, want, rows[i].Purchases)
	}
}

func TestListRangeExcludesOutsideDates(t *testing.T) {
	repo := NewRepo(newSnapshotDB(t))
	ctx := context.Background()

	for _, d := range []int{10, 15, 20} {
		require.NoError(t, repo.Upsert(ctx, &models.DailySnapshot{SnapshotDate: snapDate(2026, 1, d)}))
	}

	rows, err := repo.ListRange(ctx, snapDate(2026, 1, 12), snapDate(2026, 1, 18))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].SnapshotDate.Equal(snapDate(2026, 1, 15)))
}

func TestUpsertRejectsNil(t *testing.T) {
	repo := NewRepo(newSnapshotDB(t))
	require.Error(t, repo.Upsert(context.Background(), nil))
}
