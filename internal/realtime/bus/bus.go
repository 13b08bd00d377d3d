package bus

import (
	"context"

	"github.com/yungbote/companion-backend/internal/realtime"
)

// Bus carries realtime messages between processes so a sweep running in one
// process reaches a connection held by another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
