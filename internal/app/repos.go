package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type Repos struct {
	User        repos.UserRepo
	UserProfile repos.UserProfileRepo

	Turn             repos.TurnRepo
	PendingProactive repos.PendingProactiveRepo
	TurnEmbedding    repos.TurnEmbeddingRepo

	UserAttribute     repos.UserAttributeRepo
	UserActivity      repos.UserActivityRepo
	ActivityAnalytics repos.ActivityAnalyticsRepo
	UserRelationship  repos.UserRelationshipRepo
	UserSchedule      repos.UserScheduleRepo
	PlacePreference   repos.PlacePreferenceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		UserProfile: repos.NewUserProfileRepo(db, log),

		Turn:             repos.NewTurnRepo(db, log),
		PendingProactive: repos.NewPendingProactiveRepo(db, log),
		TurnEmbedding:    repos.NewTurnEmbeddingRepo(db, log),

		UserAttribute:     repos.NewUserAttributeRepo(db, log),
		UserActivity:      repos.NewUserActivityRepo(db, log),
		ActivityAnalytics: repos.NewActivityAnalyticsRepo(db, log),
		UserRelationship:  repos.NewUserRelationshipRepo(db, log),
		UserSchedule:      repos.NewUserScheduleRepo(db, log),
		PlacePreference:   repos.NewPlacePreferenceRepo(db, log),
	}
}
