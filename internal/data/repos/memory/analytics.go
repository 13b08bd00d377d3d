package memory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type PlaceCount struct {
	Place string
	Total int
}

type ActivityAnalyticsRepo interface {
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ActivityAnalytics, error)
	// TopPlaces sums counts per place across all periods.
	TopPlaces(dbc dbctx.Context, userID uuid.UUID, limit int) ([]PlaceCount, error)
}

type activityAnalyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) ActivityAnalyticsRepo {
	return &activityAnalyticsRepo{db: db, log: baseLog.With("repo", "ActivityAnalyticsRepo")}
}

func (r *activityAnalyticsRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ActivityAnalytics, error) {
	t := dbc.DB(r.db)
	if limit <= 0 {
		return nil, nil
	}
	var out []*types.ActivityAnalytics
	if err := t.Where("user_id = ?", userID).
		Order("period_start_date DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityAnalyticsRepo) TopPlaces(dbc dbctx.Context, userID uuid.UUID, limit int) ([]PlaceCount, error) {
	t := dbc.DB(r.db)
	if limit <= 0 {
		return nil, nil
	}
	var out []PlaceCount
	if err := t.Model(&types.ActivityAnalytics{}).
		Select("place, SUM(count) AS total").
		Where("user_id = ? AND place <> ''", userID).
		Group("place").
		Order("total DESC").
		Order("place ASC").
		Limit(limit).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
