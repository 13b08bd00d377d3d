package app

import (
	"strings"
	"time"

	"github.com/yungbote/companion-backend/internal/jobs/worker"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/envutil"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	StreamModel  string
	ChatModel    string
	ExtractModel string
	EmotionModel string
	VisionModel  string

	PersonaConfigPath string

	InactivityTimeout time.Duration
	SweepEnabled      bool
	SweepSpec         string
	SweepConcurrency  int

	SimilarityEnabled bool
	SimilarTopK       int

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

func LoadConfig() Config {
	return Config{
		Port:           envutil.String("PORT", "8080"),
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),

		StreamModel:  envutil.String("STREAM_MODEL", steps.DefaultStreamModel),
		ChatModel:    envutil.String("CHAT_MODEL", steps.DefaultChatModel),
		ExtractModel: envutil.String("EXTRACT_MODEL", steps.DefaultExtractModel),
		EmotionModel: envutil.String("EMOTION_MODEL", "gpt-3.5-turbo"),
		VisionModel:  envutil.String("VISION_MODEL", "gpt-4o"),

		PersonaConfigPath: envutil.String("PERSONA_CONFIG_PATH", ""),

		InactivityTimeout: envutil.Duration("INACTIVITY_TIMEOUT", steps.DefaultInactivityTimeout),
		SweepEnabled:      envutil.Bool("PROACTIVE_SWEEP_ENABLED", true),
		SweepSpec:         envutil.String("PROACTIVE_SWEEP_SPEC", worker.DefaultSweepSpec),
		SweepConcurrency:  envutil.Int("PROACTIVE_SWEEP_CONCURRENCY", steps.DefaultSweepConcurrency),

		SimilarityEnabled: envutil.Bool("SIMILARITY_ENABLED", true),
		SimilarTopK:       envutil.Int("SIMILARITY_TOP_K", steps.DefaultSimilarTopK),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
		Otel:           observability.OtelConfigFromEnv(),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
