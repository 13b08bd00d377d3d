package companion

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

func (u Usecases) LoadUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := u.deps.Users.GetByID(dbctx.New(ctx), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	}
	return user, nil
}

// History returns the caller's turns newest first.
func (u Usecases) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ConversationTurn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return u.deps.Turns.ListRecent(dbctx.New(ctx), userID, limit)
}

// PendingProactive returns the queued proactive turn, or nil when nothing is
// waiting.
func (u Usecases) PendingProactive(ctx context.Context, userID uuid.UUID) (*types.ConversationTurn, error) {
	dbc := dbctx.New(ctx)
	row, err := u.deps.Pending.GetByUserID(dbc, userID)
	if err != nil || row == nil {
		return nil, err
	}
	turn, err := u.deps.Turns.GetByID(dbc, row.TurnID)
	if err != nil {
		return nil, err
	}
	if turn == nil {
		// The turn is gone; drop the dangling marker so the sweep can queue again.
		return nil, u.deps.Pending.DeleteByUserID(dbc, userID)
	}
	return turn, nil
}

func (u Usecases) AckProactive(ctx context.Context, userID uuid.UUID) error {
	return u.deps.Pending.DeleteByUserID(dbctx.New(ctx), userID)
}

func (u Usecases) SavePlacePreference(ctx context.Context, userID uuid.UUID, category, place string) error {
	category, place = strings.TrimSpace(category), strings.TrimSpace(place)
	if place == "" {
		return fmt.Errorf("%w: place_name is required", apperr.ErrInvalidArgument)
	}
	if !slices.Contains(steps.PreferenceKeys(), category) {
		return fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidArgument, category)
	}
	return u.deps.Preferences.Upsert(dbctx.New(ctx), userID, category, place)
}

type Status struct {
	Username           string `json:"username"`
	ChatbotName        string `json:"chatbot_name"`
	AffinityScore      int    `json:"affinity_score"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	HasPending         bool   `json:"has_pending_proactive"`
}

func (u Usecases) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	dbc := dbctx.New(ctx)
	user, err := u.LoadUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	profile, err := u.deps.Profiles.EnsureForUser(dbc, userID)
	if err != nil {
		return Status{}, err
	}
	pending, err := u.deps.Pending.Exists(dbc, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Username:           user.Username,
		ChatbotName:        profile.ChatbotName,
		AffinityScore:      profile.AffinityScore,
		OnboardingComplete: profile.OnboardingComplete,
		HasPending:         pending,
	}, nil
}
