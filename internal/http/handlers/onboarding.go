package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
)

type OnboardingService interface {
	Onboard(ctx context.Context, in companion.OnboardInput) (string, error)
}

type OnboardingHandler struct {
	onboarding OnboardingService
}

func NewOnboardingHandler(onboarding OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

type onboardingReq struct {
	Action   string `json:"action"`
	FactType string `json:"fact_type"`
	Content  string `json:"content"`
}

// POST /api/onboarding
func (h *OnboardingHandler) Submit(c *gin.Context) {
	var req onboardingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	msg, err := h.onboarding.Onboard(ctx, companion.OnboardInput{
		UserID:   ctxutil.UserID(ctx),
		Action:   req.Action,
		FactType: req.FactType,
		Content:  req.Content,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "success", "message": msg})
}
