package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/pkg/ctxutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

type ChatStreamer interface {
	LoadUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	StreamReply(ctx context.Context, sink companion.FrameSink, in companion.ReplyInput) (companion.StreamResult, error)
	NewInactivityTimer(timeout time.Duration, sink companion.FrameSink, in companion.TickInput) *steps.InactivityTimer
}

type ChatSocketHandlerDeps struct {
	Log               *logger.Logger
	Hub               *realtime.Hub
	Chat              ChatStreamer
	InactivityTimeout time.Duration
	AllowedOrigins    []string
	Metrics           *observability.Metrics
}

// ChatSocketHandler serves the streaming chat websocket. Each connection owns
// one inactivity countdown and handles its inbound messages one at a time.
type ChatSocketHandler struct {
	log      *logger.Logger
	hub      *realtime.Hub
	chat     ChatStreamer
	timeout  time.Duration
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func NewChatSocketHandler(deps ChatSocketHandlerDeps) *ChatSocketHandler {
	timeout := deps.InactivityTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := &ChatSocketHandler{
		log:     deps.Log.With("handler", "ChatSocketHandler"),
		hub:     deps.Hub,
		chat:    deps.Chat,
		timeout: timeout,
		metrics: deps.Metrics,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(deps.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

type inboundMessage struct {
	Message   string   `json:"message"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// clientSink queues frames on the connection's outbound buffer.
type clientSink struct {
	hub     *realtime.Hub
	client  *realtime.Client
	metrics *observability.Metrics
}

func (s clientSink) Send(ctx context.Context, msg realtime.Message) error {
	if err := s.hub.Send(ctx, s.client, msg); err != nil {
		return err
	}
	s.metrics.IncWSFrame(string(msg.Type))
	return nil
}

// GET /ws/chat?token=...
func (h *ChatSocketHandler) Serve(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	user, err := h.chat.LoadUser(c.Request.Context(), userID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	client := h.hub.NewClient(userID)
	h.hub.AddChannel(client, realtime.UserChannel(userID))
	sink := clientSink{hub: h.hub, client: client, metrics: h.metrics}
	log := client.Logger.With(ctxutil.LogFields(c.Request.Context())...)
	h.metrics.WSConnections(1)
	log.Info("chat socket connected")

	timer := h.chat.NewInactivityTimer(h.timeout, sink, companion.TickInput{UserID: user.ID, Username: user.Username})
	timer.Arm(ctx)

	// A dead writer must also stop the turn blocked on the outbound buffer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer h.hub.CloseClient(client)
		defer cancel()
		h.writePump(conn, client, log)
	}()

	h.readPump(ctx, conn, sink, timer, user, log)

	timer.Close()
	cancel()
	h.hub.CloseClient(client)
	<-done
	_ = conn.Close()
	h.metrics.WSConnections(-1)
	log.Info("chat socket disconnected")
}

func (h *ChatSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, sink clientSink, timer *steps.InactivityTimer, user *types.User, log *logger.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("chat socket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		timer.Cancel()
		h.handleMessage(ctx, sink, user, raw, log)
		timer.Arm(ctx)
	}
}

func (h *ChatSocketHandler) handleMessage(ctx context.Context, sink clientSink, user *types.User, raw []byte, log *logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("chat message panicked", "panic", r)
			_ = sink.Send(ctx, realtime.Error(realtime.ErrMsgInternal))
		}
	}()

	var in inboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		_ = sink.Send(ctx, realtime.Error(realtime.ErrMsgInvalidJSON))
		return
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return
	}
	reply := companion.ReplyInput{UserID: user.ID, Username: user.Username, Message: text}
	if in.Latitude != nil && in.Longitude != nil {
		reply.Coords = &companion.Coords{Lat: *in.Latitude, Lon: *in.Longitude}
	}
	if _, err := h.chat.StreamReply(ctx, sink, reply); err != nil {
		log.Error("chat turn failed", "error", err)
		_ = sink.Send(ctx, realtime.Error(realtime.ErrMsgInternal))
	}
}

func (h *ChatSocketHandler) writePump(conn *websocket.Conn, client *realtime.Client, log *logger.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg.Frame()); err != nil {
				log.Warn("chat socket write failed", "error", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
