package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/services"
)

type locationTrigger struct {
	code        string
	keywords    []string
	displayName string
	prefKey     string
}

// Table order is the tie-break when a message matches several categories.
var locationTriggers = []locationTrigger{
	{"FD6", []string{"맛집", "음식점", "배고파", "뭐 먹지", "국밥"}, "맛집", "음식점"},
	{"CE7", []string{"카페", "커피"}, "카페", "카페"},
	{"MT1", []string{"마트", "대형마트", "장보기"}, "대형마트", "마트"},
	{"CS2", []string{"편의점"}, "편의점", "편의점"},
	{"CT1", []string{"영화관", "영화"}, "문화시설", "영화관"},
	{"AT4", []string{"공원", "산책"}, "공원", "공원"},
	{"HP8", []string{"병원", "아파"}, "병원", "병원"},
	{"PM9", []string{"약국", "약"}, "약국", "약국"},
	{"SW8", []string{"지하철역", "지하철"}, "지하철역", "지하철역"},
}

// PreferenceKeys lists the category keys place preferences are stored under.
func PreferenceKeys() []string {
	out := make([]string, 0, len(locationTriggers))
	for _, t := range locationTriggers {
		out = append(out, t.prefKey)
	}
	return out
}

func matchLocationTrigger(message string) (locationTrigger, bool) {
	lower := strings.ToLower(message)
	for _, t := range locationTriggers {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t, true
			}
		}
	}
	return locationTrigger{}, false
}

type LocationDeps struct {
	Log         *logger.Logger
	Preferences repos.PlacePreferenceRepo
	Places      services.PlacesService
}

type LocationInput struct {
	UserID  uuid.UUID
	Message string
	Coords  *Coords
}

// RecommendLocation returns a preferred-place or nearby-places snippet for
// the first category the message triggers, or "" when nothing applies.
func RecommendLocation(ctx context.Context, deps LocationDeps, in LocationInput) string {
	if in.Coords == nil || deps.Places == nil {
		return ""
	}
	trig, ok := matchLocationTrigger(in.Message)
	if !ok {
		return ""
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("step", "RecommendLocation", "category", trig.code)
	lat, lon := in.Coords.Lat, in.Coords.Lon

	var preferred []string
	if deps.Preferences != nil {
		names, err := deps.Preferences.NamesByCategory(dbctx.New(ctx), in.UserID, trig.prefKey)
		if err != nil {
			log.Warn("place preferences lookup failed", "error", err)
		}
		preferred = names
	}
	if len(preferred) > 0 {
		found, err := deps.Places.SearchByName(ctx, lat, lon, preferred)
		if err != nil {
			log.Warn("preferred place search failed", "error", err)
		}
		if len(found) > 0 {
			quoted := make([]string, 0, len(found))
			for _, name := range found {
				quoted = append(quoted, "'"+name+"'")
			}
			return fmt.Sprintf("[선호 장소 추천]: 주변에 자주 가시던 %s이(가) 있어요! 가보시는 건 어때요?", strings.Join(quoted, ", "))
		}
	}

	names, err := deps.Places.SearchNearby(ctx, lat, lon, trig.code, services.NearbyRadiusMeters, services.NearbyLimit)
	if err != nil {
		log.Warn("nearby search failed", "error", err)
		return ""
	}
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("[주변 %s 정보]: %s", trig.displayName, strings.Join(names, ", "))
}
