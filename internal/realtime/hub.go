package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

var ErrClientClosed = errors.New("realtime client closed")

const outboundBuffer = 64

type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:        log.With("component", "RealtimeHub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (hub *Hub) NewClient(userID uuid.UUID) *Client {
	id := uuid.New()
	return &Client{
		ID:       id,
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan Message, outboundBuffer),
		Logger:   hub.logger.With("connection_id", id.String()),
		done:     make(chan struct{}),
	}
}

func (hub *Hub) AddChannel(client *Client, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	client.Channels[channel] = true
	clients, ok := hub.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true
	hub.logger.Debug("Realtime client subscribed", "connection_id", client.ID, "channel", channel)
}

func (hub *Hub) RemoveClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subs, ok := hub.subscriptions[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Subscribers reports how many clients listen on channel.
func (hub *Hub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

// Broadcast fans msg out to every subscriber of msg.Channel without
// blocking; a full client buffer drops the message for that client.
func (hub *Hub) Broadcast(msg Message) {
	if msg.Channel == "" {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for c := range hub.subscriptions[msg.Channel] {
		select {
		case <-c.done:
			continue
		default:
		}
		select {
		case c.Outbound <- msg:
		default:
			hub.logger.Warn("Dropping realtime message; outbound buffer full", "connection_id", c.ID, "type", string(msg.Type))
		}
	}
}

// Send queues msg for one client and waits for buffer space, so a reply
// stream reaches the socket complete and in order.
func (hub *Hub) Send(ctx context.Context, client *Client, msg Message) error {
	select {
	case <-client.done:
		return ErrClientClosed
	default:
	}
	select {
	case client.Outbound <- msg:
		return nil
	case <-client.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseClient unsubscribes the client and closes Done. Outbound is left
// open so a concurrent Send never panics; the write loop exits on Done.
func (hub *Hub) CloseClient(client *Client) {
	client.closeOnce.Do(func() {
		hub.RemoveClient(client)
		close(client.done)
	})
}
