package kakao

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/yungbote/companion-backend/internal/pkg/errors"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, retries int, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(logger.NewNop(), Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: retries})
	require.NoError(t, err)
	return c
}

func TestCoord2AddressParsesBuilding(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/local/geo/coord2address.json", r.URL.Path)
		assert.Equal(t, "KakaoAK k", r.Header.Get("Authorization"))
		assert.Equal(t, "127", r.URL.Query().Get("x"))
		assert.Equal(t, "37.5", r.URL.Query().Get("y"))
		fmt.Fprint(w, `{"documents":[{"address":{"address_name":"서울 강남구 역삼동 1"},"road_address":{"address_name":"서울 강남구 테헤란로 1","building_name":"강남파이낸스센터"}}]}`)
	})

	addr, err := c.Coord2Address(context.Background(), 37.5, 127.0)
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "강남파이낸스센터", addr.BuildingName)
	assert.Equal(t, "서울 강남구 역삼동 1", addr.AddressName)
}

func TestCoord2AddressEmpty(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[]}`)
	})
	addr, err := c.Coord2Address(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Nil(t, addr)
}

func TestSearchCategorySendsParams(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/local/search/category.json", r.URL.Path)
		assert.Equal(t, "FD6", q.Get("category_group_code"))
		assert.Equal(t, "1000", q.Get("radius"))
		assert.Equal(t, SortAccuracy, q.Get("sort"))
		fmt.Fprint(w, `{"documents":[{"place_name":"국밥집","distance":"120"},{"place_name":"분식집","distance":""}]}`)
	})

	places, err := c.SearchCategory(context.Background(), "FD6", 37.5, 127.0, 1000, SortAccuracy)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "국밥집", places[0].Name)
	assert.Equal(t, 120, places[0].Distance)
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, 2, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"documents":[{"place_name":"스타벅스"}]}`)
	})

	places, err := c.SearchKeyword(context.Background(), "스타벅스", 37.5, 127.0, 1000, SortDistance)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.SearchKeyword(context.Background(), "x", 1, 2, 0, "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.SearchCategory(context.Background(), "CE7", 1, 2, 1000, SortAccuracy)
		require.Error(t, err)
	}
	_, err := c.SearchCategory(context.Background(), "CE7", 1, 2, 1000, SortAccuracy)
	require.ErrorIs(t, err, pkgerrors.ErrUnavailable)
	assert.EqualValues(t, 5, calls.Load())
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(logger.NewNop(), Config{})
	require.Error(t, err)
}
