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

type UserAttributeRepo interface {
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAttribute, error)
	// Upsert keys on (user_id, fact_type) and overwrites content.
	Upsert(dbc dbctx.Context, userID uuid.UUID, factType, content string) error
}

type userAttributeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserAttributeRepo(db *gorm.DB, baseLog *logger.Logger) UserAttributeRepo {
	return &userAttributeRepo{db: db, log: baseLog.With("repo", "UserAttributeRepo")}
}

func (r *userAttributeRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAttribute, error) {
	t := dbc.DB(r.db)
	var out []*types.UserAttribute
	if err := t.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userAttributeRepo) Upsert(dbc dbctx.Context, userID uuid.UUID, factType, content string) error {
	t := dbc.DB(r.db)
	if userID == uuid.Nil || factType == "" {
		return nil
	}
	now := time.Now().UTC()
	row := &types.UserAttribute{
		ID:        uuid.New(),
		UserID:    userID,
		FactType:  factType,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return t.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fact_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content",
			"updated_at",
		}),
	}).
		Create(row).Error
}
