package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationTurn is append-only. One row per user or AI message.
type ConversationTurn struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_turn_user_created,priority:1" json:"user_id"`
	Text       string    `gorm:"column:text;type:text;not null;default:''" json:"text"`
	IsFromUser bool      `gorm:"column:is_from_user;not null" json:"is_from_user"`

	EmotionLabel string `gorm:"column:emotion_label;not null;default:''" json:"emotion_label,omitempty"`
	ImageKey     string `gorm:"column:image_key;not null;default:''" json:"image_key,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_conversation_turn_user_created,priority:2" json:"created_at"`
}

func (ConversationTurn) TableName() string { return "conversation_turn" }

func (t *ConversationTurn) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

const (
	SpeakerUser = "사용자"
	SpeakerAI   = "AI"
)

func (t *ConversationTurn) Speaker() string {
	if t.IsFromUser {
		return SpeakerUser
	}
	return SpeakerAI
}
