package insights

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coursekit-app/coursekit-backend/pkg/db/models"
)

func newStatsDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE purchases (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE lessons (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  position INTEGER NOT NULL,
  published BOOLEAN NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE lesson_progress (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  lesson_id TEXT NOT NULL,
  completed_at DATETIME
);`,
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func seedUser(t *testing.T, db *gorm.DB, createdAt time.Time) uuid.UUID {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@coursekit.app", CreatedAt: createdAt}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func seedPurchase(t *testing.T, db *gorm.DB, userID uuid.UUID, status string, createdAt time.Time) {
	t.Helper()
	purchase := &models.Purchase{ID: uuid.New(), UserID: userID, AmountCents: 29700, Status: status, CreatedAt: createdAt}
	if err := db.Create(purchase).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
}

func seedLesson(t *testing.T, db *gorm.DB, position int) uuid.UUID {
	t.Helper()
	lesson := &models.Lesson{ID: uuid.New(), Title: "Lesson", Position: position, Published: true}
	if err := db.Create(lesson).Error; err != nil {
		t.Fatalf("seed lesson: %v", err)
	}
	return lesson.ID
}

func seedProgress(t *testing.T, db *gorm.DB, userID, lessonID uuid.UUID) {
	t.Helper()
	progress := &models.LessonProgress{ID: uuid.New(), UserID: userID, LessonID: lessonID, CompletedAt: time.Now().UTC()}
	if err := db.Create(progress).Error; err != nil {
		t.Fatalf("seed progress: %v", err)
	}
}

func TestInternalKPIsAggregates(t *testing.T) {
	db := newStatsDB(t)

	signup := day(2026, 1, 1)
	finisher := seedUser(t, db, signup)
	halfway := seedUser(t, db, signup)
	browser := seedUser(t, db, signup)

	// finisher bought 48h after signup, halfway bought 24h after
	seedPurchase(t, db, finisher, models.PurchaseStatusCompleted, signup.Add(48*time.Hour))
	seedPurchase(t, db, halfway, models.PurchaseStatusCompleted, signup.Add(24*time.Hour))
	// refunded purchase does not make a purchaser
	seedPurchase(t, db, browser, models.PurchaseStatusRefunded, signup.Add(time.Hour))

	lessonA := seedLesson(t, db, 1)
	lessonB := seedLesson(t, db, 2)
	seedProgress(t, db, finisher, lessonA)
	seedProgress(t, db, finisher, lessonB)
	seedProgress(t, db, halfway, lessonA)

	svc := NewInternalStatsService(db, testCache(), time.Minute, testLogger())
	res := svc.KPIs(context.Background(), day(2026, 1, 1), day(2026, 1, 31))
	if !res.IsOK() {
		t.Fatalf("expected ok, got %+v", res)
	}

	kpis := res.Data
	if kpis.TotalUsers != 3 {
		t.Fatalf("expected 3 users, got %d", kpis.TotalUsers)
	}
	if kpis.PurchasedUsers != 2 {
		t.Fatalf("expected 2 purchasers, got %d", kpis.PurchasedUsers)
	}
	// 3 completed of 4 possible lessons across 2 purchasers
	if kpis.AvgCompletionPercent != 75 {
		t.Fatalf("expected avg completion 75, got %v", kpis.AvgCompletionPercent)
	}
	// one of two purchasers finished everything
	if kpis.CompletionRate != 50 {
		t.Fatalf("expected completion rate 50, got %v", kpis.CompletionRate)
	}
	// (48h + 24h) / 2
	if kpis.AvgTimeToPurchaseHours != 36 {
		t.Fatalf("expected avg time to purchase 36h, got %v", kpis.AvgTimeToPurchaseHours)
	}
}

func TestInternalKPIsZeroGuards(t *testing.T) {
	db := newStatsDB(t)
	seedUser(t, db, day(2026, 1, 1))
	seedLesson(t, db, 1)

	svc := NewInternalStatsService(db, testCache(), time.Minute, testLogger())
	res := svc.KPIs(context.Background(), day(2026, 1, 1), day(2026, 1, 31))
	if !res.IsOK() {
		t.Fatalf("expected ok, got %+v", res)
	}

	kpis := res.Data
	if kpis.PurchasedUsers != 0 {
		t.Fatalf("expected 0 purchasers, got %d", kpis.PurchasedUsers)
	}
	if kpis.AvgCompletionPercent != 0 || kpis.CompletionRate != 0 || kpis.AvgTimeToPurchaseHours != 0 {
		t.Fatalf("metrics over zero purchasers must be 0, got %+v", kpis)
	}
}

func TestInternalKPIsCached(t *testing.T) {
	db := newStatsDB(t)
	seedUser(t, db, day(2026, 1, 1))

	store := testCache()
	svc := NewInternalStatsService(db, store, time.Minute, testLogger())

	first := svc.KPIs(context.Background(), day(2026, 1, 1), day(2026, 1, 31))
	if !first.IsOK() {
		t.Fatalf("expected ok, got %+v", first)
	}

	// mutate the store; a cache hit must keep serving the old aggregate
	seedUser(t, db, day(2026, 1, 2))
	second := svc.KPIs(context.Background(), day(2026, 1, 1), day(2026, 1, 31))
	if second.Data.TotalUsers != first.Data.TotalUsers {
		t.Fatalf("expected cached total %d, got %d", first.Data.TotalUsers, second.Data.TotalUsers)
	}
}
