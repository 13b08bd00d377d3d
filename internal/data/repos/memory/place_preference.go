package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type PlacePreferenceRepo interface {
	// NamesByCategory returns preferred place names for a category key, oldest first.
	NamesByCategory(dbc dbctx.Context, userID uuid.UUID, category string) ([]string, error)
	Upsert(dbc dbctx.Context, userID uuid.UUID, category, placeName string) error
}

type placePreferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlacePreferenceRepo(db *gorm.DB, baseLog *logger.Logger) PlacePreferenceRepo {
	return &placePreferenceRepo{db: db, log: baseLog.With("repo", "PlacePreferenceRepo")}
}

func (r *placePreferenceRepo) NamesByCategory(dbc dbctx.Context, userID uuid.UUID, category string) ([]string, error) {
	t := dbc.DB(r.db)
	var names []string
	if err := t.Model(&types.PlacePreference{}).
		Where("user_id = ? AND category = ?", userID, category).
		Order("created_at ASC").
		Pluck("place_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *placePreferenceRepo) Upsert(dbc dbctx.Context, userID uuid.UUID, category, placeName string) error {
	t := dbc.DB(r.db)
	if userID == uuid.Nil || category == "" || placeName == "" {
		return nil
	}
	now := time.Now().UTC()
	row := &types.PlacePreference{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		PlaceName: placeName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}, {Name: "place_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).
		Create(row).Error
}
