package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
)

type ProactiveService interface {
	PendingProactive(ctx context.Context, userID uuid.UUID) (*types.ConversationTurn, error)
	AckProactive(ctx context.Context, userID uuid.UUID) error
}

type ProactiveHandler struct {
	proactive ProactiveService
}

func NewProactiveHandler(proactive ProactiveService) *ProactiveHandler {
	return &ProactiveHandler{proactive: proactive}
}

// GET /api/proactive/pending
func (h *ProactiveHandler) Pending(c *gin.Context) {
	ctx := c.Request.Context()
	turn, err := h.proactive.PendingProactive(ctx, ctxutil.UserID(ctx))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if turn == nil {
		c.Status(http.StatusNoContent)
		return
	}
	response.RespondOK(c, gin.H{"message": turn})
}

// POST /api/proactive/ack
func (h *ProactiveHandler) Ack(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.proactive.AckProactive(ctx, ctxutil.UserID(ctx)); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
