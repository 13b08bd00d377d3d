package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
)

type UserService interface {
	Status(ctx context.Context, userID uuid.UUID) (companion.Status, error)
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/me/status
func (h *UserHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.users.Status(ctx, ctxutil.UserID(ctx))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, st)
}
