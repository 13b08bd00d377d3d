package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/companion-backend/internal/domain"
	domainuser "github.com/yungbote/companion-backend/internal/domain/user"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	// EnsureForUser creates the default profile if missing and returns the stored row.
	EnsureForUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	UpdateChatbotName(dbc dbctx.Context, userID uuid.UUID, name string) error
	SetOnboardingComplete(dbc dbctx.Context, userID uuid.UUID, complete bool) error
	// AdjustAffinity adds delta in place, clamped to [0,100].
	AdjustAffinity(dbc dbctx.Context, userID uuid.UUID, delta int) error
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.UserProfile
	if err := t.Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userProfileRepo) EnsureForUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil {
		return nil, nil
	}
	row := domainuser.NewProfile(userID)
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now
	if err := t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByUserID(dbc, userID)
}

func (r *userProfileRepo) UpdateChatbotName(dbc dbctx.Context, userID uuid.UUID, name string) error {
	t := dbc.DB(r.db)
	return t.Model(&types.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"chatbot_name": name, "updated_at": time.Now().UTC()}).Error
}

func (r *userProfileRepo) SetOnboardingComplete(dbc dbctx.Context, userID uuid.UUID, complete bool) error {
	t := dbc.DB(r.db)
	return t.Model(&types.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"onboarding_complete": complete, "updated_at": time.Now().UTC()}).Error
}

func (r *userProfileRepo) AdjustAffinity(dbc dbctx.Context, userID uuid.UUID, delta int) error {
	t := dbc.DB(r.db)
	if delta == 0 {
		return nil
	}
	return t.Model(&types.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"affinity_score": gorm.Expr(
				"CASE WHEN affinity_score + ? > 100 THEN 100 WHEN affinity_score + ? < 0 THEN 0 ELSE affinity_score + ? END",
				delta, delta, delta,
			),
			"updated_at":     time.Now().UTC(),
		}).Error
}
