package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type TurnEmbeddingRepo interface {
	Upsert(dbc dbctx.Context, row *types.TurnEmbedding) error
	// Nearest orders the user's embeddings by cosine distance to query. Postgres only.
	Nearest(dbc dbctx.Context, userID uuid.UUID, query []float32, k int) ([]*types.TurnEmbedding, error)
}

type turnEmbeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTurnEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) TurnEmbeddingRepo {
	return &turnEmbeddingRepo{db: db, log: baseLog.With("repo", "TurnEmbeddingRepo")}
}

func (r *turnEmbeddingRepo) Upsert(dbc dbctx.Context, row *types.TurnEmbedding) error {
	t := dbc.DB(r.db)
	if row == nil || row.TurnID == uuid.Nil {
		return nil
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "turn_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "embedding"}),
	}).
		Create(row).Error
}

func (r *turnEmbeddingRepo) Nearest(dbc dbctx.Context, userID uuid.UUID, query []float32, k int) ([]*types.TurnEmbedding, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil || len(query) == 0 || k <= 0 {
		return nil, nil
	}
	var out []*types.TurnEmbedding
	if err := t.Where("user_id = ?", userID).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []any{pgvector.NewVector(query)}},
		}).
		Limit(k).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
