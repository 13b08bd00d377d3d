package repos

import (
	"github.com/yungbote/companion-backend/internal/data/repos/chat"
	"github.com/yungbote/companion-backend/internal/data/repos/memory"
	"github.com/yungbote/companion-backend/internal/data/repos/user"
)

type UserRepo = user.UserRepo
type UserProfileRepo = user.UserProfileRepo

type TurnRepo = chat.TurnRepo
type PendingProactiveRepo = chat.PendingProactiveRepo
type TurnEmbeddingRepo = chat.TurnEmbeddingRepo

type UserAttributeRepo = memory.UserAttributeRepo
type UserActivityRepo = memory.UserActivityRepo
type ActivityAnalyticsRepo = memory.ActivityAnalyticsRepo
type UserRelationshipRepo = memory.UserRelationshipRepo
type UserScheduleRepo = memory.UserScheduleRepo
type PlacePreferenceRepo = memory.PlacePreferenceRepo

type RelationshipMerge = memory.RelationshipMerge
type PlaceCount = memory.PlaceCount

var (
	NewUserRepo        = user.NewUserRepo
	NewUserProfileRepo = user.NewUserProfileRepo

	NewTurnRepo             = chat.NewTurnRepo
	NewPendingProactiveRepo = chat.NewPendingProactiveRepo
	NewTurnEmbeddingRepo    = chat.NewTurnEmbeddingRepo

	NewUserAttributeRepo     = memory.NewUserAttributeRepo
	NewUserActivityRepo      = memory.NewUserActivityRepo
	NewActivityAnalyticsRepo = memory.NewActivityAnalyticsRepo
	NewUserRelationshipRepo  = memory.NewUserRelationshipRepo
	NewUserScheduleRepo      = memory.NewUserScheduleRepo
	NewPlacePreferenceRepo   = memory.NewPlacePreferenceRepo
)
