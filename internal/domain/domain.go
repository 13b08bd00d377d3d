package domain

import (
	"github.com/yungbote/companion-backend/internal/domain/chat"
	"github.com/yungbote/companion-backend/internal/domain/memory"
	"github.com/yungbote/companion-backend/internal/domain/user"
)

type User = user.User
type UserProfile = user.UserProfile

type ConversationTurn = chat.ConversationTurn
type PendingProactiveMessage = chat.PendingProactiveMessage
type TurnEmbedding = chat.TurnEmbedding

type UserAttribute = memory.UserAttribute
type UserActivity = memory.UserActivity
type ActivityAnalytics = memory.ActivityAnalytics
type UserRelationship = memory.UserRelationship
type UserSchedule = memory.UserSchedule
type PlacePreference = memory.PlacePreference

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&UserProfile{},

		&ConversationTurn{},
		&PendingProactiveMessage{},
		&TurnEmbedding{},

		&UserAttribute{},
		&UserActivity{},
		&ActivityAnalytics{},
		&UserRelationship{},
		&UserSchedule{},
		&PlacePreference{},
	}
}
