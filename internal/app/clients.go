package app

import (
	"context"
	"fmt"

	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/gcp"
	"github.com/yungbote/companion-backend/internal/platform/kakao"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

// Clients are the process-wide upstream connections. Kakao, the image bucket
// and the realtime bus are optional; a nil field disables what depends on it.
type Clients struct {
	OpenAI openai.Client
	Kakao  kakao.Client
	Bucket gcp.ImageBucket
	Bus    bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	ai, err := openai.NewClient(log, openai.ConfigFromEnv())
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out := Clients{OpenAI: instrumentLLM(ai, metrics)}

	if kc, err := kakao.NewClient(log, kakao.ConfigFromEnv()); err != nil {
		log.Warn("Kakao client disabled; location context off", "error", err)
	} else {
		out.Kakao = kc
	}

	bucketCfg, err := gcp.BucketConfigFromEnv()
	if err != nil {
		return Clients{}, fmt.Errorf("chat image bucket config: %w", err)
	}
	if bucketCfg.Enabled() {
		b, err := gcp.NewImageBucket(ctx, log, bucketCfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init chat image bucket: %w", err)
		}
		out.Bucket = b
	} else {
		log.Info("CHAT_IMAGE_BUCKET not set; chat images are not stored")
	}

	if redisCfg := bus.RedisConfigFromEnv(); redisCfg.Addr != "" {
		b, err := bus.NewRedisBus(log, redisCfg)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis realtime bus: %w", err)
		}
		out.Bus = b
	}

	return out, nil
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}
