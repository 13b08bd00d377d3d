package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
)

type LocationService interface {
	RecommendLocation(ctx context.Context, userID uuid.UUID, query string, coords companion.Coords) string
}

type LocationHandler struct {
	location LocationService
}

func NewLocationHandler(location LocationService) *LocationHandler {
	return &LocationHandler{location: location}
}

// GET /api/location/recommendation?lat=37.5&lon=127.0&query=맛집
func (h *LocationHandler) Recommend(c *gin.Context) {
	coords, err := parseCoords(c.Query("lat"), c.Query("lon"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	rec := h.location.RecommendLocation(ctx, ctxutil.UserID(ctx), c.Query("query"), coords)
	response.RespondOK(c, gin.H{"recommendation": rec})
}
