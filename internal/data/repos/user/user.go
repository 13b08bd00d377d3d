package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/db"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/pkg/errors"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) error
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	ListActive(dbc dbctx.Context) ([]*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, u *types.User) error {
	t := dbc.DB(r.db)
	if u == nil {
		return nil
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if err := t.Create(u).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", u.Username, errors.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.User
	if err := t.Where("id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userRepo) ListActive(dbc dbctx.Context) ([]*types.User, error) {
	t := dbc.DB(r.db)
	var out []*types.User
	if err := t.Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
