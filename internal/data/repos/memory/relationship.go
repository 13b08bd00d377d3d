package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/companion-backend/internal/data/db"
	types "github.com/yungbote/companion-backend/internal/domain"
	domainmemory "github.com/yungbote/companion-backend/internal/domain/memory"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

// RelationshipMerge is one observation of a person; empty fields leave stored values alone.
type RelationshipMerge struct {
	Name             string
	RelationshipType string
	Position         string
	Disambiguator    string
	Traits           string
}

type UserRelationshipRepo interface {
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserRelationship, error)
	// MergeByName upserts on (user_id, name). Traits are set-unioned on update.
	MergeByName(dbc dbctx.Context, userID uuid.UUID, m RelationshipMerge) (*types.UserRelationship, bool, error)
}

type userRelationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) UserRelationshipRepo {
	return &userRelationshipRepo{db: db, log: baseLog.With("repo", "UserRelationshipRepo")}
}

func (r *userRelationshipRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserRelationship, error) {
	t := dbc.DB(r.db)
	var out []*types.UserRelationship
	if err := t.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRelationshipRepo) MergeByName(dbc dbctx.Context, userID uuid.UUID, m RelationshipMerge) (*types.UserRelationship, bool, error) {
	t := dbc.DB(r.db)
	if userID == uuid.Nil || m.Name == "" {
		return nil, false, nil
	}

	var (
		out     *types.UserRelationship
		created bool
		err     error
	)
	// A concurrent insert of the same name loses the race once, then takes the update path.
	for attempt := 0; attempt < 2; attempt++ {
		out, created, err = r.mergeOnce(t, userID, m)
		if err == nil || !db.IsUniqueViolation(err) {
			break
		}
		r.log.Debug("relationship insert raced, retrying as update", "user_id", userID, "name", m.Name)
	}
	return out, created, err
}

func (r *userRelationshipRepo) mergeOnce(t *gorm.DB, userID uuid.UUID, m RelationshipMerge) (*types.UserRelationship, bool, error) {
	var (
		row     types.UserRelationship
		created bool
	)
	err := t.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND name = ?", userID, m.Name).
			Limit(1).
			Find(&row).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		if row.ID == uuid.Nil {
			row = types.UserRelationship{
				ID:               uuid.New(),
				UserID:           userID,
				SerialCode:       uuid.New(),
				RelationshipType: m.RelationshipType,
				Position:         m.Position,
				Name:             m.Name,
				Disambiguator:    m.Disambiguator,
				Traits:           domainmemory.UnionSet("", m.Traits),
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			created = true
			return tx.Create(&row).Error
		}

		updates := map[string]any{"updated_at": now}
		if m.RelationshipType != "" {
			updates["relationship_type"] = m.RelationshipType
		}
		if m.Position != "" {
			updates["position"] = m.Position
		}
		if m.Disambiguator != "" {
			updates["disambiguator"] = m.Disambiguator
		}
		if m.Traits != "" {
			updates["traits"] = domainmemory.UnionSet(row.Traits, m.Traits)
		}
		return tx.Model(&row).Updates(updates).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &row, created, nil
}
