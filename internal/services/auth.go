package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

// AuthService verifies access tokens issued by the account service. Tokens
// are HS256 and name the user in "user_id" or, failing that, "sub".
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueAccessToken(userID uuid.UUID) (string, error)
}

type JWTClaims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	users        repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(log *logger.Logger, users repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		users:        users,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("%w: missing token", apperr.ErrUnauthorized)
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("%w: parse token: %v", apperr.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthorized)
	}
	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: invalid user id in token", apperr.ErrUnauthorized)
	}
	if as.users != nil {
		u, err := as.users.GetByID(dbctx.New(ctx), userID)
		if err != nil {
			as.log.Warn("token user lookup failed", "user_id", userID, "error", err)
			return ctx, err
		}
		if u == nil || !u.IsActive {
			return ctx, fmt.Errorf("%w: unknown user", apperr.ErrUnauthorized)
		}
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tokenString, UserID: userID}), nil
}

// IssueAccessToken signs a token in the same shape the verifier accepts.
// Used by the dev CLI and tests.
func (as *authService) IssueAccessToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
}
