package snapshots

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coursekit-app/coursekit-backend/pkg/db/models"
	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
)

// Repo persists daily snapshots. The unique index on snapshot_date is the
// correctness boundary: concurrent captures for one day collapse into a
// single row.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Upsert writes the snapshot for its date, replacing every metric column
// atomically when a row for that date already exists.
func (r *Repo) Upsert(ctx context.Context, snapshot *models.DailySnapshot) error {
	if snapshot == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "snapshot is required")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_date"}},
			UpdateAll: true,
		}).
		Create(snapshot).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upserting daily snapshot")
	}
	return nil
}

// ListRange returns the persisted snapshots with snapshot_date inside
// [from, to], ascending.
func (r *Repo) ListRange(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	var rows []models.DailySnapshot
	err := r.db.WithContext(ctx).
		Where("snapshot_date >= ? AND snapshot_date <= ?", from, to).
		Order("snapshot_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing daily snapshots")
	}
	return rows, nil
}
