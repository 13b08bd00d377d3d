package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
)

func TestOnboard(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "minji")
	deps := OnboardDeps{Attributes: r.attributes, Profiles: r.profiles}
	dbc := dbctx.New(ctx)

	msg, err := Onboard(ctx, deps, OnboardInput{UserID: u.ID, FactType: "이름", Content: "민지"})
	require.NoError(t, err)
	assert.Equal(t, "사용자 이름 저장 완료", msg)

	_, err = Onboard(ctx, deps, OnboardInput{UserID: u.ID, FactType: "ai_name", Content: "루나"})
	require.NoError(t, err)
	_, err = Onboard(ctx, deps, OnboardInput{UserID: u.ID, Action: OnboardSetAttribute, FactType: "mbti", Content: "INFP"})
	require.NoError(t, err)

	_, err = Onboard(ctx, deps, OnboardInput{UserID: u.ID, FactType: "혈액형", Content: "A"})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = Onboard(ctx, deps, OnboardInput{UserID: u.ID, FactType: "나이"})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = Onboard(ctx, deps, OnboardInput{UserID: u.ID})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)

	msg, err = Onboard(ctx, deps, OnboardInput{UserID: u.ID, Action: OnboardComplete})
	require.NoError(t, err)
	assert.Equal(t, "온보딩 완료", msg)

	p, err := r.profiles.GetByUserID(dbc, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "루나", p.ChatbotName)
	assert.True(t, p.OnboardingComplete)

	attrs, err := r.attributes.ListByUser(dbc, u.ID)
	require.NoError(t, err)
	got := map[string]string{}
	for _, a := range attrs {
		got[a.FactType] = a.Content
	}
	assert.Equal(t, map[string]string{"사용자 이름": "민지", "mbti": "INFP"}, got)
}
