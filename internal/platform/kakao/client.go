package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	pkgerrors "github.com/yungbote/companion-backend/internal/pkg/errors"
	"github.com/yungbote/companion-backend/internal/pkg/httpx"
	"github.com/yungbote/companion-backend/internal/platform/envutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://dapi.kakao.com"

const (
	SortDistance = "distance"
	SortAccuracy = "accuracy"
)

type Address struct {
	AddressName  string
	BuildingName string
}

type Place struct {
	Name     string
	Category string
	Distance int
}

// Client is the subset of the Kakao Local API used for location context.
// Coordinates are WGS84 degrees; Kakao takes x=longitude, y=latitude.
type Client interface {
	Coord2Address(ctx context.Context, lat, lon float64) (*Address, error)
	SearchKeyword(ctx context.Context, query string, lat, lon float64, radius int, sort string) ([]Place, error)
	SearchCategory(ctx context.Context, code string, lat, lon float64, radius int, sort string) ([]Place, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	RPS        float64
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("KAKAO_API_KEY", ""),
		BaseURL:    envutil.String("KAKAO_BASE_URL", DefaultBaseURL),
		RPS:        envutil.Float("KAKAO_RPS", 10),
		Timeout:    envutil.Duration("KAKAO_TIMEOUT", 5*time.Second),
		MaxRetries: envutil.Int("KAKAO_MAX_RETRIES", 2),
	}
}

// StatusError is a non-2xx response from Kakao.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kakao status %d: %s", e.Status, e.Body)
}

func (e *StatusError) HTTPStatusCode() int { return e.Status }

type client struct {
	log        *logger.Logger
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing KAKAO_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	l := log.With("client", "KakaoClient")
	c := &client{
		log:        l,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1+int(cfg.RPS)),
		maxRetries: cfg.MaxRetries,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kakao-local",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return !httpx.IsRetryableHTTPStatus(se.Status)
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("Kakao circuit state changed", "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

type coord2AddressResponse struct {
	Documents []struct {
		Address *struct {
			AddressName string `json:"address_name"`
		} `json:"address"`
		RoadAddress *struct {
			AddressName  string `json:"address_name"`
			BuildingName string `json:"building_name"`
		} `json:"road_address"`
	} `json:"documents"`
}

type placesResponse struct {
	Documents []struct {
		PlaceName    string `json:"place_name"`
		CategoryName string `json:"category_name"`
		Distance     string `json:"distance"`
	} `json:"documents"`
}

func (c *client) Coord2Address(ctx context.Context, lat, lon float64) (*Address, error) {
	q := url.Values{}
	q.Set("x", formatCoord(lon))
	q.Set("y", formatCoord(lat))
	var resp coord2AddressResponse
	if err := c.get(ctx, "/v2/local/geo/coord2address.json", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Documents) == 0 {
		return nil, nil
	}
	doc := resp.Documents[0]
	out := &Address{}
	if doc.Address != nil {
		out.AddressName = doc.Address.AddressName
	}
	if doc.RoadAddress != nil {
		out.BuildingName = strings.TrimSpace(doc.RoadAddress.BuildingName)
		if out.AddressName == "" {
			out.AddressName = doc.RoadAddress.AddressName
		}
	}
	return out, nil
}

func (c *client) SearchKeyword(ctx context.Context, query string, lat, lon float64, radius int, sort string) ([]Place, error) {
	q := searchParams(lat, lon, radius, sort)
	q.Set("query", query)
	return c.places(ctx, "/v2/local/search/keyword.json", q)
}

func (c *client) SearchCategory(ctx context.Context, code string, lat, lon float64, radius int, sort string) ([]Place, error) {
	q := searchParams(lat, lon, radius, sort)
	q.Set("category_group_code", code)
	return c.places(ctx, "/v2/local/search/category.json", q)
}

func (c *client) places(ctx context.Context, path string, q url.Values) ([]Place, error) {
	var resp placesResponse
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	out := make([]Place, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		dist, _ := strconv.Atoi(d.Distance)
		out = append(out, Place{Name: d.PlaceName, Category: d.CategoryName, Distance: dist})
	}
	return out, nil
}

func (c *client) get(ctx context.Context, path string, q url.Values, out any) error {
	policy := httpx.Policy{MaxRetries: c.maxRetries, Initial: 300 * time.Millisecond}
	return httpx.Retry(ctx, policy, func(ctx context.Context) error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return nil, c.doOnce(ctx, path, q, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("kakao %s: %w", path, pkgerrors.ErrUnavailable)
		}
		return err
	}, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("Kakao request retrying", "path", path, "attempt", attempt, "sleep", sleep.String(), "error", err.Error())
	})
}

func (c *client) doOnce(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("kakao decode %s: %w", path, err)
	}
	return nil
}

func searchParams(lat, lon float64, radius int, sort string) url.Values {
	q := url.Values{}
	q.Set("x", formatCoord(lon))
	q.Set("y", formatCoord(lat))
	if radius > 0 {
		q.Set("radius", strconv.Itoa(radius))
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	return q
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
