package models

import (
	"time"

	"github.com/google/uuid"
)

// Lesson is one piece of published course content.
type Lesson struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	Published bool      `gorm:"column:published;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LessonProgress marks a lesson completed by a user.
type LessonProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_lesson_progress_user_lesson,unique"`
	LessonID    uuid.UUID `gorm:"column:lesson_id;type:uuid;not null;index:idx_lesson_progress_user_lesson,unique"`
	CompletedAt time.Time `gorm:"column:completed_at;autoCreateTime"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
