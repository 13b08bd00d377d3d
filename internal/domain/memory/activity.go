package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserActivity struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ActivityDate time.Time `gorm:"column:activity_date;type:date;not null;index" json:"activity_date"`
	// ActivityTime is "HH:MM" or empty.
	ActivityTime string `gorm:"column:activity_time;not null;default:''" json:"activity_time,omitempty"`
	Place        string `gorm:"column:place;not null;default:''" json:"place,omitempty"`
	Companion    string `gorm:"column:companion;not null;default:''" json:"companion,omitempty"`
	Memo         string `gorm:"column:memo;type:text;not null;default:''" json:"memo,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (UserActivity) TableName() string { return "user_activity" }

func (a *UserActivity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
