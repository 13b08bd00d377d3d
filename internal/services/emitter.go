package services

import (
	"context"

	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

type Emitter interface {
	Emit(ctx context.Context, msg realtime.Message)
}

type HubEmitter struct{ Hub *realtime.Hub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.Message) {
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes through the cross-process bus; every process's
// forwarder rebroadcasts into its own hub. On publish failure the message is
// delivered to the local hub only.
type BusEmitter struct {
	Bus   bus.Bus
	Local *realtime.Hub
	Log   *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.Message) {
	if err := e.Bus.Publish(ctx, msg); err != nil {
		if e.Log != nil {
			e.Log.Warn("realtime bus publish failed; delivering locally", "channel", msg.Channel, "error", err)
		}
		if e.Local != nil {
			e.Local.Broadcast(msg)
		}
	}
}
