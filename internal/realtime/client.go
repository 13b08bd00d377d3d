package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

// Client is one live connection. Outbound is drained by the transport's
// write loop; Done closes when the hub drops the client.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan Message
	Logger   *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) Done() <-chan struct{} { return c.done }
