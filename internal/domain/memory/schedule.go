package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserSchedule struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_schedule_key,priority:1" json:"user_id"`
	Date   time.Time `gorm:"column:date;type:date;not null;uniqueIndex:idx_user_schedule_key,priority:2" json:"date"`
	// ScheduleTime is "HH:MM"; empty means no time. Kept non-null so the natural key stays unique.
	ScheduleTime string `gorm:"column:schedule_time;not null;default:'';uniqueIndex:idx_user_schedule_key,priority:3" json:"schedule_time,omitempty"`
	Content      string `gorm:"column:content;type:text;not null;uniqueIndex:idx_user_schedule_key,priority:4" json:"content"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserSchedule) TableName() string { return "user_schedule" }

func (s *UserSchedule) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DateOf truncates t to its calendar day in t's own location and returns it as UTC midnight.
// All date columns are written and queried through this.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
