package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	domainuser "github.com/yungbote/companion-backend/internal/domain/user"
)

// SeedUser creates an active user with its default profile.
func SeedUser(tb testing.TB, tx *gorm.DB, username string) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:        uuid.New(),
		Username:  username,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(context.Background()).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	p := domainuser.NewProfile(u.ID)
	p.CreatedAt, p.UpdatedAt = now, now
	if err := tx.WithContext(context.Background()).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return u
}

func SeedTurn(tb testing.TB, tx *gorm.DB, userID uuid.UUID, text string, fromUser bool, at time.Time) *types.ConversationTurn {
	tb.Helper()
	turn := &types.ConversationTurn{
		ID:         uuid.New(),
		UserID:     userID,
		Text:       text,
		IsFromUser: fromUser,
		CreatedAt:  at.UTC(),
	}
	if err := tx.WithContext(context.Background()).Create(turn).Error; err != nil {
		tb.Fatalf("seed turn: %v", err)
	}
	return turn
}

func SeedAnalytics(tb testing.TB, tx *gorm.DB, row *types.ActivityAnalytics) *types.ActivityAnalytics {
	tb.Helper()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := tx.WithContext(context.Background()).Create(row).Error; err != nil {
		tb.Fatalf("seed analytics: %v", err)
	}
	return row
}
