package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// ActivityAnalytics is a period aggregate of visits. Rows are produced elsewhere and only read here.
type ActivityAnalytics struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_analytics_key,priority:1" json:"user_id"`
	PeriodType      string    `gorm:"column:period_type;not null;uniqueIndex:idx_activity_analytics_key,priority:2" json:"period_type"`
	PeriodStartDate time.Time `gorm:"column:period_start_date;type:date;not null;uniqueIndex:idx_activity_analytics_key,priority:3" json:"period_start_date"`
	Place           string    `gorm:"column:place;not null;default:'';uniqueIndex:idx_activity_analytics_key,priority:4" json:"place"`
	Companion       string    `gorm:"column:companion;not null;default:'';uniqueIndex:idx_activity_analytics_key,priority:5" json:"companion,omitempty"`
	Count           int       `gorm:"column:count;not null;default:0" json:"count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ActivityAnalytics) TableName() string { return "activity_analytics" }

func (a *ActivityAnalytics) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
