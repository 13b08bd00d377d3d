package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
)

const maxImageBytes = 10 << 20

type ChatService interface {
	LoadUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	BatchReply(ctx context.Context, in companion.BatchInput) (companion.BatchResult, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ConversationTurn, error)
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// POST /api/chat/messages
//
// Accepts JSON {message, latitude?, longitude?} or multipart with the same
// fields plus an optional "image" file.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.chat.LoadUser(ctx, ctxutil.UserID(ctx))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	in, err := bindBatchInput(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in.UserID, in.Username = user.ID, user.Username

	res, err := h.chat.BatchReply(ctx, in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"answer":      res.Answer,
		"explanation": res.Explanation,
		"emotion":     res.Emotion,
		"user_turn":   res.UserTurn,
		"bot_turn":    res.BotTurn,
	})
}

func bindBatchInput(c *gin.Context) (companion.BatchInput, error) {
	var in companion.BatchInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in.Message = strings.TrimSpace(c.PostForm("message"))
		lat, lon := c.PostForm("latitude"), c.PostForm("longitude")
		if lat != "" && lon != "" {
			coords, err := parseCoords(lat, lon)
			if err != nil {
				return in, err
			}
			in.Coords = &coords
		}
		fh, err := c.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return in, err
		default:
			if fh.Size > maxImageBytes {
				return in, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
			}
			f, err := fh.Open()
			if err != nil {
				return in, err
			}
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
			if err != nil {
				return in, err
			}
			in.Image = data
			in.ImageContentType = fh.Header.Get("Content-Type")
		}
	} else {
		var req inboundMessage
		if err := c.ShouldBindJSON(&req); err != nil {
			return in, err
		}
		in.Message = strings.TrimSpace(req.Message)
		if req.Latitude != nil && req.Longitude != nil {
			in.Coords = &companion.Coords{Lat: *req.Latitude, Lon: *req.Longitude}
		}
	}
	if in.Message == "" && len(in.Image) == 0 {
		return in, errors.New("message or image is required")
	}
	return in, nil
}

func parseCoords(lat, lon string) (companion.Coords, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return companion.Coords{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return companion.Coords{}, fmt.Errorf("invalid longitude: %w", err)
	}
	return companion.Coords{Lat: la, Lon: lo}, nil
}

// GET /api/chat/messages?limit=20
func (h *ChatHandler) ListMessages(c *gin.Context) {
	limit := 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	ctx := c.Request.Context()
	turns, err := h.chat.History(ctx, ctxutil.UserID(ctx), limit)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": turns})
}
