package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRelationship struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_relationship_user_name,priority:1" json:"user_id"`
	SerialCode       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"serial_code"`
	RelationshipType string    `gorm:"column:relationship_type;not null" json:"relationship_type"`
	Position         string    `gorm:"column:position;not null;default:''" json:"position,omitempty"`
	Name             string    `gorm:"column:name;not null;uniqueIndex:idx_user_relationship_user_name,priority:2" json:"name"`
	Disambiguator    string    `gorm:"column:disambiguator;not null;default:''" json:"disambiguator,omitempty"`
	// Traits and Aliases are comma-joined sets.
	Traits  string `gorm:"column:traits;type:text;not null;default:''" json:"traits,omitempty"`
	Aliases string `gorm:"column:aliases;type:text;not null;default:''" json:"aliases,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserRelationship) TableName() string { return "user_relationship" }

func (r *UserRelationship) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.SerialCode == uuid.Nil {
		r.SerialCode = uuid.New()
	}
	return nil
}

// Answers reports whether name refers to this person by canonical name or alias.
func (r *UserRelationship) Answers(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.EqualFold(r.Name, name) {
		return true
	}
	for _, a := range SplitSet(r.Aliases) {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// SplitSet splits a comma-joined set into trimmed, non-empty tokens.
func SplitSet(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// UnionSet merges the tokens of b into a, keeping first-seen order, and joins with ", ".
func UnionSet(a, b string) string {
	seen := map[string]bool{}
	var out []string
	for _, tok := range append(SplitSet(a), SplitSet(b)...) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return strings.Join(out, ", ")
}
