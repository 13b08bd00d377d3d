package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/companion-backend/internal/platform/envutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func RedisConfigFromEnv() RedisConfig {
	return RedisConfig{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Channel:  envutil.String("REDIS_CHANNEL", "companion_realtime"),
	}
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
}

// envelope wraps a hub message with the publishing process so receivers can
// tell how stale a proactive notification is.
type envelope struct {
	Origin  string           `json:"origin"`
	SentAt  time.Time        `json:"sent_at"`
	Message realtime.Message `json:"message"`
}

func encode(origin string, msg realtime.Message, now time.Time) ([]byte, error) {
	return json.Marshal(envelope{Origin: origin, SentAt: now.UTC(), Message: msg})
}

func decode(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	if env.Message.Channel == "" || env.Message.Type == "" {
		return env, fmt.Errorf("realtime envelope missing channel or type")
	}
	return env, nil
}

func NewRedisBus(log *logger.Logger, cfg RedisConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.Channel == "" {
		cfg.Channel = "companion_realtime"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	origin := uuid.NewString()
	return &redisBus{
		log:     log.With("service", "RedisRealtimeBus", "origin", origin),
		rdb:     rdb,
		channel: cfg.Channel,
		origin:  origin,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.Message) error {
	raw, err := encode(b.origin, msg, time.Now())
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				env, err := decode([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis realtime payload", "error", err)
					continue
				}
				if lag := time.Since(env.SentAt); lag > 5*time.Second {
					b.log.Warn("realtime message delivered late", "from", env.Origin, "lag", lag.String(), "type", env.Message.Type)
				}
				onMsg(env.Message)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
