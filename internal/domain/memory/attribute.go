package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAttribute holds one long-lived fact about the user. Latest content wins per fact type.
type UserAttribute struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_attribute_user_fact,priority:1" json:"user_id"`
	FactType string    `gorm:"column:fact_type;not null;uniqueIndex:idx_user_attribute_user_fact,priority:2" json:"fact_type"`
	Content  string    `gorm:"column:content;type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserAttribute) TableName() string { return "user_attribute" }

func (a *UserAttribute) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
