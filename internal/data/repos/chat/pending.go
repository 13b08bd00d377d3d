package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type PendingProactiveRepo interface {
	Exists(dbc dbctx.Context, userID uuid.UUID) (bool, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.PendingProactiveMessage, error)
	// Upsert replaces the user's outstanding message reference.
	Upsert(dbc dbctx.Context, row *types.PendingProactiveMessage) error
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type pendingProactiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPendingProactiveRepo(db *gorm.DB, baseLog *logger.Logger) PendingProactiveRepo {
	return &pendingProactiveRepo{db: db, log: baseLog.With("repo", "PendingProactiveRepo")}
}

func (r *pendingProactiveRepo) Exists(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	t := dbc.DB(r.db)
	var n int64
	if err := t.Model(&types.PendingProactiveMessage{}).
		Where("user_id = ?", userID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *pendingProactiveRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.PendingProactiveMessage, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.PendingProactiveMessage
	if err := t.Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *pendingProactiveRepo) Upsert(dbc dbctx.Context, row *types.PendingProactiveMessage) error {
	t := dbc.DB(r.db)
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = time.Now().UTC()
	return t.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"turn_id",
			"trigger_type",
			"created_at",
		}),
	}).
		Create(row).Error
}

func (r *pendingProactiveRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.DB(r.db)
	return t.Where("user_id = ?", userID).
		Delete(&types.PendingProactiveMessage{}).Error
}
