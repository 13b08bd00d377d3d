package memory

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	types "github.com/yungbote/companion-backend/internal/domain"
	domainmemory "github.com/yungbote/companion-backend/internal/domain/memory"
)

func TestAttributeUpsertOverwrites(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewUserAttributeRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, tx, "attr")

	require.NoError(t, repo.Upsert(dbc, u.ID, "MBTI", "INFP"))
	require.NoError(t, repo.Upsert(dbc, u.ID, "MBTI", "INFJ"))
	require.NoError(t, repo.Upsert(dbc, u.ID, "생일", "5월 3일"))

	rows, err := repo.ListByUser(dbc, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byType := map[string]string{}
	for _, r := range rows {
		byType[r.FactType] = r.Content
	}
	assert.Equal(t, "INFJ", byType["MBTI"])
}

func TestActivityRecentAndDedupWindow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewUserActivityRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, tx, "act")

	now := time.Now().UTC()
	day := domainmemory.DateOf(now)
	require.NoError(t, repo.Create(dbc, &types.UserActivity{UserID: u.ID, ActivityDate: day.AddDate(0, 0, -2), Place: "한강", Memo: "산책", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(dbc, &types.UserActivity{UserID: u.ID, ActivityDate: day, Place: "강남역", Companion: "석민", Memo: "저녁", CreatedAt: now.Add(-5 * time.Minute)}))

	rows, err := repo.ListRecent(dbc, u.ID, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "강남역", rows[0].Place)

	created, err := repo.CreateUnlessMemoSince(dbc, &types.UserActivity{UserID: u.ID, ActivityDate: day, Memo: "저녁", CreatedAt: now}, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateUnlessMemoSince(dbc, &types.UserActivity{UserID: u.ID, ActivityDate: day, Place: "한강", Memo: "산책", CreatedAt: now}, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.True(t, created)

	found, err := repo.Search(dbc, u.ID, []string{"석민"}, 3)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "저녁", found[0].Memo)
}

func TestActivityConcurrentMemoInsertsOnce(t *testing.T) {
	db := testutil.DB(t)
	dbc := testutil.Ctx(db)
	repo := NewUserActivityRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "race")
	now := time.Now().UTC()
	day := domainmemory.DateOf(now)

	var inserted atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			row := &types.UserActivity{UserID: u.ID, ActivityDate: day, Place: "카페", Memo: "공부", CreatedAt: now}
			created, err := repo.CreateUnlessMemoSince(dbc, row, now.Add(-10*time.Minute))
			if created {
				inserted.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, inserted.Load())

	rows, err := repo.ListRecent(dbc, u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRelationshipMergeUnionsTraits(t *testing.T) {
	db := testutil.DB(t)
	dbc := testutil.Ctx(db)
	repo := NewUserRelationshipRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "rel")

	first, created, err := repo.MergeByName(dbc, u.ID, RelationshipMerge{Name: "석민", RelationshipType: "친구", Traits: "착함, 키 큼"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.MergeByName(dbc, u.ID, RelationshipMerge{Name: "석민", RelationshipType: "소꿉친구", Traits: "착함, 치위생사 준비중"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	rows, err := repo.ListByUser(dbc, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "소꿉친구", rows[0].RelationshipType)
	assert.Equal(t, "착함, 키 큼, 치위생사 준비중", rows[0].Traits)
	assert.Equal(t, first.SerialCode, rows[0].SerialCode)
}

func TestScheduleUpsertOnNaturalKey(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewUserScheduleRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, tx, "sched")

	today := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Upsert(dbc, &types.UserSchedule{UserID: u.ID, Date: today, ScheduleTime: "15:00", Content: "팀 회의"}))
	}
	require.NoError(t, repo.Upsert(dbc, &types.UserSchedule{UserID: u.ID, Date: today, Content: "팀 회의"}))
	require.NoError(t, repo.Upsert(dbc, &types.UserSchedule{UserID: u.ID, Date: today.AddDate(0, 0, 1), Content: "병원"}))

	rows, err := repo.ListForDay(dbc, u.ID, today)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAnalyticsAndPlacePreferences(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	analytics := NewActivityAnalyticsRepo(db, testutil.Logger(t))
	prefs := NewPlacePreferenceRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, tx, "stats")

	start := domainmemory.DateOf(time.Now())
	counts := []int{3, 1, 2, 1}
	for i, place := range []string{"스타벅스", "한강", "스타벅스", "도서관"} {
		testutil.SeedAnalytics(t, tx, &types.ActivityAnalytics{
			UserID:          u.ID,
			PeriodType:      domainmemory.PeriodWeekly,
			PeriodStartDate: start.AddDate(0, 0, -7*i),
			Place:           place,
			Count:           counts[i],
		})
	}
	recent, err := analytics.ListRecent(dbc, u.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "스타벅스", recent[0].Place)

	top, err := analytics.TopPlaces(dbc, u.ID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, PlaceCount{Place: "스타벅스", Total: 5}, top[0])

	require.NoError(t, prefs.Upsert(dbc, u.ID, "카페", "블루보틀"))
	require.NoError(t, prefs.Upsert(dbc, u.ID, "카페", "블루보틀"))
	require.NoError(t, prefs.Upsert(dbc, u.ID, "카페", "스타벅스"))
	names, err := prefs.NamesByCategory(dbc, u.ID, "카페")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"블루보틀", "스타벅스"}, names)
}
