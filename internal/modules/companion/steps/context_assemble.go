package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/services"
)

const (
	recentActivityLimit  = 5
	recentAnalyticsLimit = 3
	DefaultSimilarTopK   = 5
)

type AssembleDeps struct {
	Log   *logger.Logger
	Clock Clock

	Schedules     repos.UserScheduleRepo
	Attributes    repos.UserAttributeRepo
	Activities    repos.UserActivityRepo
	Analytics     repos.ActivityAnalyticsRepo
	Relationships repos.UserRelationshipRepo

	Places     services.PlacesService
	Similarity services.SimilarityIndex
	Insights   services.ActivityInsights
	Location   LocationDeps

	SimilarTopK int
}

type AssembleInput struct {
	UserID   uuid.UUID
	Message  string
	Coords   *Coords
	HasImage bool
}

// AssembleContext gathers every context source for one prompt. Sources are
// fetched concurrently and each failure only drops that source; the bundle
// order is fixed regardless of completion order.
func AssembleContext(ctx context.Context, deps AssembleDeps, in AssembleInput) *ContextBundle {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("step", "AssembleContext", "user_id", in.UserID)
	dbc := dbctx.New(ctx)

	order := []ContextKey{
		KeySchedule,
		KeyLocation,
		KeyLocationRecommendation,
		KeyVectorSearch,
		KeyAttributes,
		KeyActivity,
		KeyAnalytics,
		KeyRelationship,
	}
	results := make(map[ContextKey]*string, len(order))
	for _, k := range order {
		results[k] = new(string)
	}

	sources := map[ContextKey]func() (string, error){
		KeySchedule: func() (string, error) {
			return scheduleSnippet(dbc, deps, in.UserID)
		},
		KeyLocation: func() (string, error) {
			if in.Coords == nil || deps.Places == nil {
				return "", nil
			}
			name, err := deps.Places.ReverseGeocode(ctx, in.Coords.Lat, in.Coords.Lon)
			if err != nil || name == "" {
				return "", err
			}
			return "[현재 위치]: " + name, nil
		},
		KeyLocationRecommendation: func() (string, error) {
			if in.Coords == nil {
				return "", nil
			}
			return RecommendLocation(ctx, deps.Location, LocationInput{UserID: in.UserID, Message: in.Message, Coords: in.Coords}), nil
		},
		KeyVectorSearch: func() (string, error) {
			if in.HasImage || deps.Similarity == nil {
				return "", nil
			}
			k := deps.SimilarTopK
			if k <= 0 {
				k = DefaultSimilarTopK
			}
			docs, err := deps.Similarity.Similar(ctx, in.UserID, in.Message, k)
			if err != nil || len(docs) == 0 {
				return "", err
			}
			parts := make([]string, 0, len(docs))
			for _, d := range docs {
				speaker := d.Speaker
				if speaker == "" {
					speaker = "알수없음"
				}
				parts = append(parts, speaker+": "+d.Document)
			}
			return "[과거 유사한 대화 내용(벡터DB)]: " + strings.Join(parts, " | "), nil
		},
		KeyAttributes: func() (string, error) {
			if deps.Attributes == nil {
				return "", nil
			}
			rows, err := deps.Attributes.ListByUser(dbc, in.UserID)
			if err != nil || len(rows) == 0 {
				return "", err
			}
			parts := make([]string, 0, len(rows))
			for _, a := range rows {
				parts = append(parts, a.FactType+": "+a.Content)
			}
			return "[사용자 속성]: " + strings.Join(parts, ", "), nil
		},
		KeyActivity: func() (string, error) {
			return activitySnippet(ctx, log, deps, in)
		},
		KeyAnalytics: func() (string, error) {
			if deps.Analytics == nil {
				return "", nil
			}
			rows, err := deps.Analytics.ListRecent(dbc, in.UserID, recentAnalyticsLimit)
			if err != nil || len(rows) == 0 {
				return "", err
			}
			lines := make([]string, 0, len(rows))
			for _, an := range rows {
				companion := an.Companion
				if companion == "" {
					companion = "없음"
				}
				lines = append(lines, fmt.Sprintf("'%s부터 %s 동안 장소: %s, 동행: %s, 횟수: %d회'",
					an.PeriodStartDate.Format("2006-01-02"), an.PeriodType, an.Place, companion, an.Count))
			}
			return "[사용자 활동 분석]: " + strings.Join(lines, "\n"), nil
		},
		KeyRelationship: func() (string, error) {
			if deps.Relationships == nil {
				return "", nil
			}
			rows, err := deps.Relationships.ListByUser(dbc, in.UserID)
			if err != nil || len(rows) == 0 {
				return "", err
			}
			lines := make([]string, 0, len(rows))
			for _, r := range rows {
				line := fmt.Sprintf("%s (%s)", r.Name, r.RelationshipType)
				if r.Position != "" {
					line += ", 포지션: " + r.Position
				}
				if r.Traits != "" {
					line += ", 특징: " + r.Traits
				}
				lines = append(lines, line)
			}
			return "[사용자의 인간관계]: " + strings.Join(lines, "\n"), nil
		},
	}

	var g errgroup.Group
	for _, k := range order {
		k, fetch, out := k, sources[k], results[k]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("context source panicked", "source", string(k), "panic", r)
				}
			}()
			text, ferr := fetch()
			if ferr != nil {
				log.Warn("context source failed", "source", string(k), "error", ferr)
				return nil
			}
			*out = text
			return nil
		})
	}
	_ = g.Wait()

	bundle := NewContextBundle()
	for _, k := range order {
		bundle.Set(k, *results[k])
	}
	return bundle
}

func scheduleSnippet(dbc dbctx.Context, deps AssembleDeps, userID uuid.UUID) (string, error) {
	if deps.Schedules == nil {
		return "", nil
	}
	rows, err := deps.Schedules.ListForDay(dbc, userID, deps.Clock.now().In(Seoul()))
	if err != nil {
		return "", err
	}
	var contents []string
	for _, s := range rows {
		if c := strings.TrimSpace(s.Content); c != "" {
			contents = append(contents, c)
		}
	}
	if len(contents) == 0 {
		return "", nil
	}
	return "[사용자의 오늘 일정 (참고용)]: " + strings.Join(contents, ", "), nil
}

// activitySnippet combines recent visits with keyword-triggered search and
// recommendation lines. A failing part drops only its own lines.
func activitySnippet(ctx context.Context, log *logger.Logger, deps AssembleDeps, in AssembleInput) (string, error) {
	var lines []string
	if deps.Activities != nil {
		rows, err := deps.Activities.ListRecent(dbctx.New(ctx), in.UserID, recentActivityLimit)
		if err != nil {
			log.Warn("recent activities failed", "error", err)
		}
		for _, a := range rows {
			lines = append(lines, services.FormatActivity(a))
		}
	}
	if deps.Insights != nil {
		if s, err := deps.Insights.Search(ctx, in.UserID, in.Message); err != nil {
			log.Warn("activity search failed", "error", err)
		} else if s != "" {
			lines = append(lines, s)
		}
		if s, err := deps.Insights.Recommend(ctx, in.UserID, in.Message); err != nil {
			log.Warn("activity recommendation failed", "error", err)
		} else if s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "[사용자 활동]: " + strings.Join(lines, "\n"), nil
}
