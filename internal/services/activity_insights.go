package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

var recommendTriggers = []string{"추천", "어디 갈까", "어디갈까", "뭐 할까", "뭐할까", "갈 만한", "갈만한"}

// ActivityInsights produces keyword-triggered snippets from stored
// activities: past visits the message mentions, and frequent places when the
// user asks for a suggestion.
type ActivityInsights interface {
	Search(ctx context.Context, userID uuid.UUID, message string) (string, error)
	Recommend(ctx context.Context, userID uuid.UUID, message string) (string, error)
}

type activityInsights struct {
	log        *logger.Logger
	activities repos.UserActivityRepo
	analytics  repos.ActivityAnalyticsRepo
}

func NewActivityInsights(log *logger.Logger, activities repos.UserActivityRepo, analytics repos.ActivityAnalyticsRepo) ActivityInsights {
	return &activityInsights{log: log.With("service", "ActivityInsights"), activities: activities, analytics: analytics}
}

// Search looks up past activities whose place or companion appears in the message.
func (s *activityInsights) Search(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", nil
	}
	dbc := dbctx.New(ctx)
	recent, err := s.activities.ListRecent(dbc, userID, 50)
	if err != nil {
		return "", err
	}
	terms := mentionedTerms(recent, message)
	if len(terms) == 0 {
		return "", nil
	}
	hits, err := s.activities.Search(dbc, userID, terms, 3)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(hits))
	for _, a := range hits {
		lines = append(lines, FormatActivity(a))
	}
	return "[관련 활동 기록]: " + strings.Join(lines, " / "), nil
}

func (s *activityInsights) Recommend(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	if !containsAny(message, recommendTriggers) {
		return "", nil
	}
	top, err := s.analytics.TopPlaces(dbctx.New(ctx), userID, 3)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(top))
	for _, p := range top {
		parts = append(parts, fmt.Sprintf("'%s'(%d회)", p.Place, p.Total))
	}
	return "[활동 기반 추천]: 자주 가시던 " + strings.Join(parts, ", ") + " 같은 곳은 어때요?", nil
}

// FormatActivity renders one visit line for prompt context.
func FormatActivity(a *types.UserActivity) string {
	date := "날짜 미상"
	if !a.ActivityDate.IsZero() {
		date = a.ActivityDate.Format("2006-01-02")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s '%s' 방문", date, a.Place)
	if a.Companion != "" {
		fmt.Fprintf(&sb, " (동행: %s)", a.Companion)
	}
	if a.Memo != "" {
		fmt.Fprintf(&sb, " (메모: %s)", a.Memo)
	}
	return sb.String()
}

func mentionedTerms(rows []*types.UserActivity, message string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || !strings.Contains(message, s) {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, r := range rows {
		add(r.Place)
		add(r.Companion)
	}
	return out
}

func containsAny(s string, needles []string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
