package steps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/services"
)

func foodPlaces() *fakePlaces {
	return &fakePlaces{
		address: "역삼동 1 부근",
		nearby: map[string][]string{
			"FD6": {"국밥집", "분식집", "파스타집", "초밥집", "고깃집", "냉면집"},
			"CE7": {"스타벅스"},
		},
	}
}

func TestRecommendLocationNearbyFood(t *testing.T) {
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "민지")
	places := foodPlaces()

	got := RecommendLocation(context.Background(), LocationDeps{Preferences: r.preferences, Places: places}, LocationInput{
		UserID:  u.ID,
		Message: "맛집 추천해줘",
		Coords:  &Coords{Lat: 37.5, Lon: 127.0},
	})
	assert.Equal(t, "[주변 맛집 정보]: 국밥집, 분식집, 파스타집, 초밥집, 고깃집", got)
}

func TestRecommendLocationPrefersStoredPlaces(t *testing.T) {
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "민지")
	require.NoError(t, r.preferences.Upsert(dbctx.Context{Ctx: context.Background()}, u.ID, "카페", "블루보틀"))

	places := foodPlaces()
	places.byName = []string{"블루보틀"}
	got := RecommendLocation(context.Background(), LocationDeps{Preferences: r.preferences, Places: places}, LocationInput{
		UserID:  u.ID,
		Message: "커피 마시고 싶다",
		Coords:  &Coords{Lat: 37.5, Lon: 127.0},
	})
	assert.Equal(t, "[선호 장소 추천]: 주변에 자주 가시던 '블루보틀'이(가) 있어요! 가보시는 건 어때요?", got)
	assert.Empty(t, places.searched, "nearby search must not run when a preferred place is found")
}

func TestRecommendLocationFallsBackWhenPreferredNotNearby(t *testing.T) {
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "민지")
	require.NoError(t, r.preferences.Upsert(dbctx.Context{Ctx: context.Background()}, u.ID, "카페", "블루보틀"))

	got := RecommendLocation(context.Background(), LocationDeps{Preferences: r.preferences, Places: foodPlaces()}, LocationInput{
		UserID:  u.ID,
		Message: "카페 갈까",
		Coords:  &Coords{Lat: 37.5, Lon: 127.0},
	})
	assert.Equal(t, "[주변 카페 정보]: 스타벅스", got)
}

func TestRecommendLocationNoMatchOrNoCoords(t *testing.T) {
	places := foodPlaces()
	deps := LocationDeps{Places: places}
	assert.Empty(t, RecommendLocation(context.Background(), deps, LocationInput{Message: "오늘 날씨 좋다", Coords: &Coords{}}))
	assert.Empty(t, RecommendLocation(context.Background(), deps, LocationInput{Message: "맛집 추천해줘"}))

	places.err = errors.New("kakao down")
	assert.Empty(t, RecommendLocation(context.Background(), deps, LocationInput{Message: "맛집", Coords: &Coords{}}))
}

func TestMatchLocationTriggerUsesTableOrder(t *testing.T) {
	trig, ok := matchLocationTrigger("카페 가서 밥 먹고 맛집도 갈래")
	require.True(t, ok)
	assert.Equal(t, "FD6", trig.code)

	trig, ok = matchLocationTrigger("근처 공원 산책")
	require.True(t, ok)
	assert.Equal(t, "AT4", trig.code)
}

func TestAssembleContextOrderAndFormats(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "민지")
	dbc := dbctx.New(ctx)
	now := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC) // 12:00 KST

	require.NoError(t, r.schedules.Upsert(dbc, &types.UserSchedule{UserID: u.ID, Date: now.In(Seoul()), ScheduleTime: "15:00", Content: "팀 회의"}))
	require.NoError(t, r.attributes.Upsert(dbc, u.ID, "MBTI", "INFP"))
	require.NoError(t, r.activities.Create(dbc, &types.UserActivity{UserID: u.ID, ActivityDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Place: "한강공원", Companion: "민수"}))
	testutil.SeedAnalytics(t, db, &types.ActivityAnalytics{UserID: u.ID, PeriodType: "weekly", PeriodStartDate: time.Date(2026, 4, 27, 0, 0, 0, 0, time.UTC), Place: "한강공원", Count: 2})
	_, _, err := r.relationships.MergeByName(dbc, u.ID, repos.RelationshipMerge{Name: "석민", RelationshipType: "친구", Traits: "치위생사 준비중"})
	require.NoError(t, err)

	sim := &fakeSimilarity{docs: []services.SimilarDoc{{Document: "한강 좋아", Speaker: "사용자"}, {Document: "나도!", Speaker: "AI"}}}
	deps := r.assembleDeps(foodPlaces(), sim, fixedClock(now))

	b := AssembleContext(ctx, deps, AssembleInput{UserID: u.ID, Message: "맛집 추천해줘", Coords: &Coords{Lat: 37.5, Lon: 127.0}})

	var keys []ContextKey
	for _, e := range b.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []ContextKey{
		KeySchedule, KeyLocation, KeyLocationRecommendation, KeyVectorSearch,
		KeyAttributes, KeyActivity, KeyAnalytics, KeyRelationship,
	}, keys)

	get := func(k ContextKey) string { v, _ := b.Get(k); return v }
	assert.Equal(t, "[사용자의 오늘 일정 (참고용)]: 팀 회의", get(KeySchedule))
	assert.Equal(t, "[현재 위치]: 역삼동 1 부근", get(KeyLocation))
	assert.True(t, strings.HasPrefix(get(KeyLocationRecommendation), "[주변 맛집 정보]: 국밥집"))
	assert.Equal(t, "[과거 유사한 대화 내용(벡터DB)]: 사용자: 한강 좋아 | AI: 나도!", get(KeyVectorSearch))
	assert.Equal(t, "[사용자 속성]: MBTI: INFP", get(KeyAttributes))
	assert.Equal(t, "[사용자 활동]: 2026-05-01 '한강공원' 방문 (동행: 민수)\n[활동 기반 추천]: 자주 가시던 '한강공원'(2회) 같은 곳은 어때요?", get(KeyActivity))
	assert.Equal(t, "[사용자 활동 분석]: '2026-04-27부터 weekly 동안 장소: 한강공원, 동행: 없음, 횟수: 2회'", get(KeyAnalytics))
	assert.Equal(t, "[사용자의 인간관계]: 석민 (친구), 특징: 치위생사 준비중", get(KeyRelationship))
}

func TestAssembleContextSkipsSimilarityWithImage(t *testing.T) {
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "민지")
	sim := &fakeSimilarity{docs: []services.SimilarDoc{{Document: "x", Speaker: "AI"}}}

	b := AssembleContext(context.Background(), r.assembleDeps(nil, sim, nil), AssembleInput{UserID: u.ID, Message: "이거 봐", HasImage: true})
	_, ok := b.Get(KeyVectorSearch)
	assert.False(t, ok)
	assert.Empty(t, sim.queries)
}

func TestAssembleContextSurvivesFailingSources(t *testing.T) {
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "민지")
	require.NoError(t, r.attributes.Upsert(dbctx.Context{Ctx: context.Background()}, u.ID, "이름", "민지"))

	places := &fakePlaces{err: errors.New("kakao down")}
	sim := &fakeSimilarity{err: errors.New("embeddings down")}
	b := AssembleContext(context.Background(), r.assembleDeps(places, sim, nil), AssembleInput{UserID: u.ID, Message: "맛집", Coords: &Coords{}})

	require.Equal(t, 1, b.Len())
	v, _ := b.Get(KeyAttributes)
	assert.Equal(t, "[사용자 속성]: 이름: 민지", v)
}
