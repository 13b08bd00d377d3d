package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultAffinityScore = 70
	DefaultChatbotName   = "아이"
)

// UserProfile is created alongside the user and read on every prompt.
type UserProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	AffinityScore      int            `gorm:"column:affinity_score;not null;default:70" json:"affinity_score"`
	ChatbotName        string         `gorm:"column:chatbot_name;not null;default:'아이'" json:"chatbot_name"`
	OnboardingComplete bool           `gorm:"column:onboarding_complete;not null;default:false" json:"onboarding_complete"`
	Memory             datatypes.JSON `gorm:"column:memory" json:"memory,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }

func (p *UserProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewProfile returns the profile a fresh account starts with.
func NewProfile(userID uuid.UUID) *UserProfile {
	return &UserProfile{
		ID:            uuid.New(),
		UserID:        userID,
		AffinityScore: DefaultAffinityScore,
		ChatbotName:   DefaultChatbotName,
		Memory:        datatypes.JSON([]byte("{}")),
	}
}
