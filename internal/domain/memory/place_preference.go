package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlacePreference is a place the user likes, tagged with a category key such as "카페".
type PlacePreference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_place_preference_key,priority:1" json:"user_id"`
	Category  string    `gorm:"column:category;not null;uniqueIndex:idx_place_preference_key,priority:2" json:"category"`
	PlaceName string    `gorm:"column:place_name;not null;uniqueIndex:idx_place_preference_key,priority:3" json:"place_name"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PlacePreference) TableName() string { return "place_preference" }

func (p *PlacePreference) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
