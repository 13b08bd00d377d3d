package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/companion-backend/internal/platform/kakao"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const (
	NearbyRadiusMeters    = 1000
	PreferredRadiusMeters = 1000
	BuildingRadiusMeters  = 20
	NearbyLimit           = 5
)

// PlacesService resolves coordinates to names and searches around them.
type PlacesService interface {
	// ReverseGeocode returns a building or place name, "{address} 부근", or "".
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
	SearchNearby(ctx context.Context, lat, lon float64, categoryCode string, radius, limit int) ([]string, error)
	// SearchByName returns the subset of names that have a match within range.
	SearchByName(ctx context.Context, lat, lon float64, names []string) ([]string, error)
}

type placesService struct {
	log   *logger.Logger
	kakao kakao.Client
}

func NewPlacesService(log *logger.Logger, client kakao.Client) PlacesService {
	return &placesService{log: log.With("service", "PlacesService"), kakao: client}
}

func (s *placesService) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	addr, err := s.kakao.Coord2Address(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("coord2address: %w", err)
	}
	if addr == nil {
		return "", nil
	}
	if addr.BuildingName != "" {
		return addr.BuildingName, nil
	}
	if addr.AddressName == "" {
		return "", nil
	}
	places, err := s.kakao.SearchKeyword(ctx, addr.AddressName, lat, lon, BuildingRadiusMeters, kakao.SortDistance)
	if err != nil {
		s.log.Warn("building lookup failed; using address", "error", err)
	} else if len(places) > 0 && places[0].Name != "" {
		return places[0].Name, nil
	}
	return addr.AddressName + " 부근", nil
}

func (s *placesService) SearchNearby(ctx context.Context, lat, lon float64, categoryCode string, radius, limit int) ([]string, error) {
	places, err := s.kakao.SearchCategory(ctx, categoryCode, lat, lon, radius, kakao.SortAccuracy)
	if err != nil {
		return nil, fmt.Errorf("category search %s: %w", categoryCode, err)
	}
	out := make([]string, 0, limit)
	for _, p := range places {
		if limit > 0 && len(out) >= limit {
			break
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// SearchByName queries each name independently; a failed lookup only drops that name.
func (s *placesService) SearchByName(ctx context.Context, lat, lon float64, names []string) ([]string, error) {
	var found []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		places, err := s.kakao.SearchKeyword(ctx, name, lat, lon, PreferredRadiusMeters, kakao.SortDistance)
		if err != nil {
			if ctx.Err() != nil {
				return found, ctx.Err()
			}
			s.log.Warn("preferred place lookup failed", "place", name, "error", err)
			continue
		}
		if len(places) > 0 {
			found = append(found, name)
		}
	}
	return found, nil
}

// DisabledPlaces is used when no Kakao key is configured.
type DisabledPlaces struct{}

func (DisabledPlaces) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", nil
}

func (DisabledPlaces) SearchNearby(context.Context, float64, float64, string, int, int) ([]string, error) {
	return nil, nil
}

func (DisabledPlaces) SearchByName(context.Context, float64, float64, []string) ([]string, error) {
	return nil, nil
}
