package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/companion-backend/internal/domain"
	domainmemory "github.com/yungbote/companion-backend/internal/domain/memory"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type UserScheduleRepo interface {
	// ListForDay takes a wall-clock time; its calendar day in its own location is used.
	ListForDay(dbc dbctx.Context, userID uuid.UUID, day time.Time) ([]*types.UserSchedule, error)
	// Upsert keys on (user_id, date, schedule_time, content).
	Upsert(dbc dbctx.Context, row *types.UserSchedule) error
}

type userScheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserScheduleRepo(db *gorm.DB, baseLog *logger.Logger) UserScheduleRepo {
	return &userScheduleRepo{db: db, log: baseLog.With("repo", "UserScheduleRepo")}
}

func (r *userScheduleRepo) ListForDay(dbc dbctx.Context, userID uuid.UUID, day time.Time) ([]*types.UserSchedule, error) {
	t := dbc.DB(r.db)
	var out []*types.UserSchedule
	if err := t.Where("user_id = ? AND date = ?", userID, domainmemory.DateOf(day)).
		Order("schedule_time ASC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userScheduleRepo) Upsert(dbc dbctx.Context, row *types.UserSchedule) error {
	t := dbc.DB(r.db)
	if row == nil || row.UserID == uuid.Nil || row.Content == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Date = domainmemory.DateOf(row.Date)
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return t.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "date"},
			{Name: "schedule_time"},
			{Name: "content"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).
		Create(row).Error
}
