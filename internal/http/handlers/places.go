package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
)

type PlacesService interface {
	SavePlacePreference(ctx context.Context, userID uuid.UUID, category, place string) error
}

type PlacesHandler struct {
	places PlacesService
}

func NewPlacesHandler(places PlacesService) *PlacesHandler {
	return &PlacesHandler{places: places}
}

type placePreferenceReq struct {
	Category  string `json:"category" binding:"required"`
	PlaceName string `json:"place_name" binding:"required"`
}

// POST /api/places/preferences
func (h *PlacesHandler) SavePreference(c *gin.Context) {
	var req placePreferenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	if err := h.places.SavePlacePreference(ctx, ctxutil.UserID(ctx), req.Category, req.PlaceName); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
