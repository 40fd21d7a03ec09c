package models

import (
	"time"
)

// DailySnapshot is the canonical once-per-day rollup of every tracked business
// metric. Exactly one row exists per UTC calendar date; recapturing a date
// replaces the whole row.
type DailySnapshot struct {
	ID           uint      `gorm:"primaryKey"`
	SnapshotDate time.Time `gorm:"column:snapshot_date;type:date;not null;uniqueIndex:idx_daily_snapshots_date"`

	Revenue    float64 `gorm:"column:revenue;not null;default:0"`
	Purchases  int64   `gorm:"column:purchases;not null;default:0"`
	RefundRate float64 `gorm:"column:refund_rate;not null;default:0"`

	Visitors   int64   `gorm:"column:visitors;not null;default:0"`
	Pageviews  int64   `gorm:"column:pageviews;not null;default:0"`
	BounceRate float64 `gorm:"column:bounce_rate;not null;default:0"`

	Subscribers    int64 `gorm:"column:subscribers;not null;default:0"`
	NewSubscribers int64 `gorm:"column:new_subscribers;not null;default:0"`

	AdSpend       float64 `gorm:"column:ad_spend;not null;default:0"`
	AdClicks      int64   `gorm:"column:ad_clicks;not null;default:0"`
	AdImpressions int64   `gorm:"column:ad_impressions;not null;default:0"`

	CPA               float64 `gorm:"column:cpa;not null;default:0"`
	ROAS              float64 `gorm:"column:roas;not null;default:0"`
	CPL               float64 `gorm:"column:cpl;not null;default:0"`
	SignupRate        float64 `gorm:"column:signup_rate;not null;default:0"`
	EmailPurchaseRate float64 `gorm:"column:email_purchase_rate;not null;default:0"`

	TotalUsers        int64   `gorm:"column:total_users;not null;default:0"`
	PurchasedUsers    int64   `gorm:"column:purchased_users;not null;default:0"`
	AvgTimeToPurchase float64 `gorm:"column:avg_time_to_purchase;not null;default:0"`

	CaptureErrors string `gorm:"column:capture_errors"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
