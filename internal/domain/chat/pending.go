package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingProactiveMessage marks one unread proactive turn per user.
type PendingProactiveMessage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TurnID      uuid.UUID `gorm:"type:uuid;not null" json:"turn_id"`
	TriggerType string    `gorm:"column:trigger_type;not null;default:''" json:"trigger_type"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (PendingProactiveMessage) TableName() string { return "pending_proactive_message" }

func (p *PendingProactiveMessage) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
