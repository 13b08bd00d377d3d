package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
)

const (
	OnboardSetName      = "set_name"
	OnboardSetAIName    = "set_ai_name"
	OnboardSetAttribute = "set_attribute"
	OnboardComplete     = "complete"

	UserNameFactType = "사용자 이름"
)

// PersistentAttributes are the onboarding facts stored verbatim as attributes.
var PersistentAttributes = []string{"성별", "mbti", "나이"}

type OnboardDeps struct {
	Attributes repos.UserAttributeRepo
	Profiles   repos.UserProfileRepo
}

// OnboardInput accepts either an explicit Action or the legacy
// fact_type/content pair ("이름", "ai_name" or a persistent attribute).
type OnboardInput struct {
	UserID   uuid.UUID
	Action   string
	FactType string
	Content  string
}

// Onboard applies one onboarding answer and returns a short confirmation.
func Onboard(ctx context.Context, deps OnboardDeps, in OnboardInput) (string, error) {
	dbc := dbctx.New(ctx)
	factType, content := strings.TrimSpace(in.FactType), strings.TrimSpace(in.Content)

	action := strings.TrimSpace(in.Action)
	if action == "" {
		switch {
		case factType == "이름":
			action = OnboardSetName
		case factType == "ai_name":
			action = OnboardSetAIName
		case factType != "":
			action = OnboardSetAttribute
		}
	}

	if _, err := deps.Profiles.EnsureForUser(dbc, in.UserID); err != nil {
		return "", fmt.Errorf("ensure profile: %w", err)
	}

	switch action {
	case OnboardComplete:
		if err := deps.Profiles.SetOnboardingComplete(dbc, in.UserID, true); err != nil {
			return "", err
		}
		return "온보딩 완료", nil
	case OnboardSetName, OnboardSetAIName, OnboardSetAttribute:
	default:
		return "", fmt.Errorf("%w: unknown onboarding action %q", apperr.ErrInvalidArgument, action)
	}

	if content == "" {
		return "", fmt.Errorf("%w: 데이터가 누락되었습니다.", apperr.ErrInvalidArgument)
	}
	switch action {
	case OnboardSetName:
		if err := deps.Attributes.Upsert(dbc, in.UserID, UserNameFactType, content); err != nil {
			return "", err
		}
		return UserNameFactType + " 저장 완료", nil
	case OnboardSetAIName:
		if err := deps.Profiles.UpdateChatbotName(dbc, in.UserID, content); err != nil {
			return "", err
		}
		return "ai_name 저장 완료", nil
	}

	if !isPersistentAttribute(factType) {
		return "", fmt.Errorf("%w: %q is not an onboarding attribute", apperr.ErrInvalidArgument, factType)
	}
	if err := deps.Attributes.Upsert(dbc, in.UserID, factType, content); err != nil {
		return "", err
	}
	return factType + " 저장 완료", nil
}

func isPersistentAttribute(factType string) bool {
	for _, a := range PersistentAttributes {
		if strings.EqualFold(a, factType) {
			return true
		}
	}
	return false
}
