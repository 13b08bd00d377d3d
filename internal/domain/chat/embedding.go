package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const EmbeddingDimensions = 1536

type TurnEmbedding struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TurnID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"turn_id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Speaker   string          `gorm:"column:speaker;not null" json:"speaker"`
	Document  string          `gorm:"column:document;type:text;not null" json:"document"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536);not null" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (TurnEmbedding) TableName() string { return "turn_embedding" }

func (e *TurnEmbedding) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
