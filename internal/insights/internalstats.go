package insights

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/db/models"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
)

const internalProvider = "internal"

// InternalKPIs are the aggregates computed from the platform's own store.
type InternalKPIs struct {
	TotalUsers     int64 `json:"totalUsers"`
	PurchasedUsers int64 `json:"purchasedUsers"`
	// AvgCompletionPercent and CompletionRate average over purchasers only;
	// both are 0 when there are no purchasers or no published lessons.
	AvgCompletionPercent float64 `json:"avgCompletionPercent"`
	CompletionRate       float64 `json:"completionRate"`
	// AvgTimeToPurchaseHours is the mean gap between signup and first
	// completed purchase.
	AvgTimeToPurchaseHours float64 `json:"avgTimeToPurchaseHours"`
	Kpis                   []Kpi   `json:"kpis"`
}

// InternalStatsService reads user and progress aggregates straight from
// Postgres. Unlike the external adapters it has no credential gate; the
// database being down surfaces as Unavailable the same way.
type InternalStatsService struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewInternalStatsService(db *gorm.DB, store *cache.Cache, ttl time.Duration, logg *logger.Logger) *InternalStatsService {
	return &InternalStatsService{db: db, cache: store, ttl: ttl, logg: logg}
}

// KPIs computes the internal aggregates. The date range does not scope the
// totals (they are point-in-time counts) but participates in the cache key so
// the dashboard refresh cadence matches the other providers.
func (s *InternalStatsService) KPIs(ctx context.Context, from, to time.Time) Result[InternalKPIs] {
	if s.db == nil {
		return Unavailable[InternalKPIs]("internal store not configured")
	}

	key := cache.Key(internalProvider, "kpis", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if kpis, ok := cached.(InternalKPIs); ok {
			return OK(kpis)
		}
	}

	ctx = s.logg.WithProvider(ctx, internalProvider)
	db := s.db.WithContext(ctx)

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		s.logg.Error(ctx, "internal user count failed", err)
		return Unavailable[InternalKPIs](err.Error())
	}

	var purchaserIDs []string
	if err := db.Model(&models.Purchase{}).
		Where("status = ?", models.PurchaseStatusCompleted).
		Distinct("user_id").
		Pluck("user_id", &purchaserIDs).Error; err != nil {
		s.logg.Error(ctx, "internal purchaser count failed", err)
		return Unavailable[InternalKPIs](err.Error())
	}
	purchasedUsers := int64(len(purchaserIDs))

	var lessonCount int64
	if err := db.Model(&models.Lesson{}).Where("published = ?", true).Count(&lessonCount).Error; err != nil {
		s.logg.Error(ctx, "internal lesson count failed", err)
		return Unavailable[InternalKPIs](err.Error())
	}

	avgCompletion := 0.0
	completionRate := 0.0
	if purchasedUsers > 0 && lessonCount > 0 {
		type userCompleted struct {
			UserID    string
			Completed int64
		}
		var rows []userCompleted
		if err := db.Model(&models.LessonProgress{}).
			Select("user_id, count(*) as completed").
			Where("user_id IN ?", purchaserIDs).
			Group("user_id").
			Scan(&rows).Error; err != nil {
			s.logg.Error(ctx, "internal progress aggregate failed", err)
			return Unavailable[InternalKPIs](err.Error())
		}

		var completedLessons, finishers int64
		for _, row := range rows {
			completedLessons += row.Completed
			if row.Completed >= lessonCount {
				finishers++
			}
		}
		avgCompletion = float64(completedLessons) / float64(purchasedUsers*lessonCount) * 100
		completionRate = float64(finishers) / float64(purchasedUsers) * 100
	}

	avgTimeToPurchase, err := s.avgTimeToPurchaseHours(ctx, db, purchaserIDs)
	if err != nil {
		return Unavailable[InternalKPIs](err.Error())
	}

	kpis := InternalKPIs{
		TotalUsers:             totalUsers,
		PurchasedUsers:         purchasedUsers,
		AvgCompletionPercent:   avgCompletion,
		CompletionRate:         completionRate,
		AvgTimeToPurchaseHours: avgTimeToPurchase,
		Kpis: []Kpi{
			{Label: "Total users", Value: totalUsers, Format: FormatNumber},
			{Label: "Purchased users", Value: purchasedUsers, Format: FormatNumber},
			{Label: "Avg completion", Value: avgCompletion, Format: FormatPercent},
			{Label: "Completion rate", Value: completionRate, Format: FormatPercent},
		},
	}

	s.cache.Set(key, kpis, s.ttl)
	return OK(kpis)
}

// avgTimeToPurchaseHours averages the signup-to-first-purchase gap across
// purchasers. Date arithmetic happens in Go so the query stays portable
// between postgres and the sqlite used in tests.
func (s *InternalStatsService) avgTimeToPurchaseHours(ctx context.Context, db *gorm.DB, purchaserIDs []string) (float64, error) {
	if len(purchaserIDs) == 0 {
		return 0, nil
	}

	type firstPurchase struct {
		UserID  string
		FirstAt time.Time
	}
	var firsts []firstPurchase
	if err := db.Model(&models.Purchase{}).
		Select("user_id, min(created_at) as first_at").
		Where("status = ? AND user_id IN ?", models.PurchaseStatusCompleted, purchaserIDs).
		Group("user_id").
		Scan(&firsts).Error; err != nil {
		s.logg.Error(ctx, "internal first purchase aggregate failed", err)
		return 0, err
	}

	type signup struct {
		ID        string
		CreatedAt time.Time
	}
	var signups []signup
	if err := db.Model(&models.User{}).
		Select("id, created_at").
		Where("id IN ?", purchaserIDs).
		Scan(&signups).Error; err != nil {
		s.logg.Error(ctx, "internal signup lookup failed", err)
		return 0, err
	}

	signupAt := make(map[string]time.Time, len(signups))
	for _, row := range signups {
		signupAt[row.ID] = row.CreatedAt
	}

	var totalHours float64
	var counted int64
	for _, row := range firsts {
		created, ok := signupAt[row.UserID]
		if !ok {
			continue
		}
		gap := row.FirstAt.Sub(created).Hours()
		if gap < 0 {
			gap = 0
		}
		totalHours += gap
		counted++
	}

	if counted == 0 {
		return 0, nil
	}
	return totalHours / float64(counted), nil
}
