package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type stubAuth struct {
	valid  string
	userID uuid.UUID
	err    error
}

func (s stubAuth) SetContextFromToken(ctx context.Context, tok string) (context.Context, error) {
	if s.err != nil {
		return ctx, s.err
	}
	if tok != s.valid {
		return ctx, fmt.Errorf("%w: bad token", apperr.ErrUnauthorized)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tok, UserID: s.userID}), nil
}

func (s stubAuth) IssueAccessToken(uuid.UUID) (string, error) { return s.valid, nil }

func authRouter(auth stubAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.NewNop(), auth).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.UserID(c.Request.Context()).String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	uid := uuid.New()
	r := authRouter(stubAuth{valid: "good", userID: uid})

	cases := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"bearer header", "/whoami", "Bearer good", http.StatusOK},
		{"query token", "/whoami?token=good", "", http.StatusOK},
		{"lowercase scheme", "/whoami", "bearer good", http.StatusOK},
		{"missing", "/whoami", "", http.StatusUnauthorized},
		{"wrong token", "/whoami", "Bearer nope", http.StatusUnauthorized},
		{"basic scheme", "/whoami", "Basic good", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, uid.String(), rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
			}
		})
	}
}

func TestRequireAuthInfraFailureIs500(t *testing.T) {
	r := authRouter(stubAuth{err: fmt.Errorf("db down")})
	req := httptest.NewRequest(http.MethodGet, "/whoami?token=x", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		origins []string
		origin  string
	}{
		{nil, "http://localhost:5173"},
		{[]string{"https://app.example.com"}, "https://app.example.com"},
	} {
		r := gin.New()
		r.Use(CORS(tc.origins...))
		r.OPTIONS("/api/chat/messages", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		req := httptest.NewRequest(http.MethodOptions, "/api/chat/messages", nil)
		req.Header.Set("Origin", tc.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, tc.origin, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAttachTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Equal(t, "req-1", seen.RequestID)
	assert.NotEmpty(t, seen.TraceID)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
}

func TestMetricsSkipsListedRoutes(t *testing.T) {
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m, "/skip"))
	r.GET("/count", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/skip", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/count", "/skip", "/count"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `route="/count"`)
	assert.NotContains(t, out, `route="/skip"`)
}
