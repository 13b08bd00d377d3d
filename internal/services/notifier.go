package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/realtime"
)

// ProactiveNotifier tells a user's live connections that an unread
// proactive message is waiting. The signal carries no message body.
type ProactiveNotifier interface {
	ProactiveAvailable(ctx context.Context, userID uuid.UUID)
}

type proactiveNotifier struct {
	emit Emitter
}

func NewProactiveNotifier(emit Emitter) ProactiveNotifier {
	return &proactiveNotifier{emit: emit}
}

func (n *proactiveNotifier) ProactiveAvailable(ctx context.Context, userID uuid.UUID) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.ProactiveAvailable(userID))
}
