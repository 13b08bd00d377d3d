package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type TurnRepo interface {
	Create(dbc dbctx.Context, turn *types.ConversationTurn) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConversationTurn, error)
	// ListRecent returns up to limit turns, newest first.
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ConversationTurn, error)
	Latest(dbc dbctx.Context, userID uuid.UUID) (*types.ConversationTurn, error)
}

type turnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTurnRepo(db *gorm.DB, baseLog *logger.Logger) TurnRepo {
	return &turnRepo{db: db, log: baseLog.With("repo", "TurnRepo")}
}

func (r *turnRepo) Create(dbc dbctx.Context, turn *types.ConversationTurn) error {
	t := dbc.DB(r.db)
	if turn == nil || turn.UserID == uuid.Nil {
		return nil
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	return t.Create(turn).Error
}

func (r *turnRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConversationTurn, error) {
	t := dbc.DB(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ConversationTurn
	if err := t.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *turnRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ConversationTurn, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil || limit <= 0 {
		return nil, nil
	}
	var out []*types.ConversationTurn
	if err := t.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *turnRepo) Latest(dbc dbctx.Context, userID uuid.UUID) (*types.ConversationTurn, error) {
	rows, err := r.ListRecent(dbc, userID, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}
