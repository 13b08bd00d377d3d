package memory

import (
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type UserActivityRepo interface {
	Create(dbc dbctx.Context, row *types.UserActivity) error
	// ListRecent orders by activity_date desc, then created_at desc.
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.UserActivity, error)
	// CreateUnlessMemoSince inserts row unless the same user already has its
	// memo recorded at or after since. The check and insert share one
	// transaction, serialized per user and memo on postgres.
	CreateUnlessMemoSince(dbc dbctx.Context, row *types.UserActivity, since time.Time) (bool, error)
	// Search matches any term against place or companion.
	Search(dbc dbctx.Context, userID uuid.UUID, terms []string, limit int) ([]*types.UserActivity, error)
}

type userActivityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserActivityRepo(db *gorm.DB, baseLog *logger.Logger) UserActivityRepo {
	return &userActivityRepo{db: db, log: baseLog.With("repo", "UserActivityRepo")}
}

func (r *userActivityRepo) Create(dbc dbctx.Context, row *types.UserActivity) error {
	t := dbc.DB(r.db)
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return t.Create(row).Error
}

func (r *userActivityRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.UserActivity, error) {
	t := dbc.DB(r.db)
	if limit <= 0 {
		return nil, nil
	}
	var out []*types.UserActivity
	if err := t.Where("user_id = ?", userID).
		Order("activity_date DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userActivityRepo) CreateUnlessMemoSince(dbc dbctx.Context, row *types.UserActivity, since time.Time) (bool, error) {
	t := dbc.DB(r.db)
	if row == nil || row.UserID == uuid.Nil {
		return false, nil
	}
	if row.Memo == "" {
		return true, r.Create(dbc, row)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	created := false
	err := t.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", memoLockKey(row.UserID, row.Memo)).Error; err != nil {
				return err
			}
		}
		var n int64
		if err := tx.Model(&types.UserActivity{}).
			Where("user_id = ? AND memo = ? AND created_at >= ?", row.UserID, row.Memo, since.UTC()).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func memoLockKey(userID uuid.UUID, memo string) int64 {
	h := fnv.New64a()
	_, _ = h.Write(userID[:])
	_, _ = h.Write([]byte(memo))
	return int64(h.Sum64())
}

func (r *userActivityRepo) Search(dbc dbctx.Context, userID uuid.UUID, terms []string, limit int) ([]*types.UserActivity, error) {
	t := dbc.DB(r.db)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	var out []*types.UserActivity
	if err := t.Where("user_id = ?", userID).
		Where("place IN ? OR companion IN ?", terms, terms).
		Order("activity_date DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
