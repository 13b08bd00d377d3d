package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/companion-backend/internal/pkg/httpx"
	"github.com/yungbote/companion-backend/internal/platform/envutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const (
	RoleSystem    = goopenai.ChatMessageRoleSystem
	RoleUser      = goopenai.ChatMessageRoleUser
	RoleAssistant = goopenai.ChatMessageRoleAssistant
)

type Message struct {
	Role    string
	Content string
}

// ChatParams are the sampling knobs for one completion. A zero Temperature
// is sent as the smallest positive float so the request carries it.
type ChatParams struct {
	Model            string
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	MaxTokens        int
	JSON             bool
}

type Client interface {
	Complete(ctx context.Context, p ChatParams, msgs []Message) (string, error)
	Stream(ctx context.Context, p ChatParams, msgs []Message, onDelta func(string) error) (string, error)
	DescribeImage(ctx context.Context, model, prompt string, image []byte, contentType string, maxTokens int) (string, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	MaxRetries int
	Timeout    time.Duration
}

type client struct {
	log        *logger.Logger
	api        *goopenai.Client
	embedModel string
	maxRetries int
	timeout    time.Duration
}

// ConfigFromEnv reads OPENAI_* settings.
func ConfigFromEnv() Config {
	return Config{
		APIKey:     strings.TrimSpace(envutil.String("OPENAI_API_KEY", "")),
		BaseURL:    strings.TrimSpace(envutil.String("OPENAI_BASE_URL", "")),
		EmbedModel: envutil.String("EMBED_MODEL", "text-embedding-3-small"),
		MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 3),
		Timeout:    envutil.Duration("OPENAI_TIMEOUT", 60*time.Second),
	}
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	conf := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "OpenAIClient"),
		api:        goopenai.NewClientWithConfig(conf),
		embedModel: cfg.EmbedModel,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
	}, nil
}

func (c *client) request(p ChatParams, msgs []Message) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:            p.Model,
		Messages:         toMessages(msgs),
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
		MaxTokens:        p.MaxTokens,
	}
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if p.JSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

func (c *client) Complete(ctx context.Context, p ChatParams, msgs []Message) (string, error) {
	req := c.request(p, msgs)
	var out string
	err := c.withRetry(ctx, "chat.completions", true, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("openai: empty choices")
		}
		out = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Stream forwards content deltas to onDelta in arrival order and returns the
// accumulated text. Only opening the stream is retried; once a delta has been
// delivered a failure is returned as is.
func (c *client) Stream(ctx context.Context, p ChatParams, msgs []Message, onDelta func(string) error) (string, error) {
	req := c.request(p, msgs)
	req.Stream = true

	var stream *goopenai.ChatCompletionStream
	err := c.withRetry(ctx, "chat.completions.stream", false, func(ctx context.Context) error {
		s, err := c.api.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sb.String(), wrapStatus(err)
		}
		for _, ch := range resp.Choices {
			delta := ch.Delta.Content
			if delta == "" {
				continue
			}
			sb.WriteString(delta)
			if onDelta != nil {
				if err := onDelta(delta); err != nil {
					return sb.String(), err
				}
			}
		}
	}
	return sb.String(), nil
}

func (c *client) DescribeImage(ctx context.Context, model, prompt string, image []byte, contentType string, maxTokens int) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("openai: empty image")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)
	req := goopenai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
	}
	var out string
	err := c.withRetry(ctx, "chat.completions.vision", true, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("openai: empty choices")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return out, err
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	var out [][]float32
	err := c.withRetry(ctx, "embeddings", true, func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input: inputs,
			Model: goopenai.EmbeddingModel(c.embedModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(inputs) {
			return fmt.Errorf("openai: embeddings returned %d vectors for %d inputs", len(resp.Data), len(inputs))
		}
		out = make([][]float32, len(resp.Data))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(out) {
				return fmt.Errorf("openai: embedding index %d out of range", d.Index)
			}
			out[d.Index] = d.Embedding
		}
		return nil
	})
	return out, err
}

// withRetry retries fn on retryable failures. bounded applies the per-call
// timeout; streams manage their own lifetime through ctx.
func (c *client) withRetry(ctx context.Context, op string, bounded bool, fn func(ctx context.Context) error) error {
	policy := httpx.Policy{MaxRetries: c.maxRetries, Initial: time.Second, Max: 10 * time.Second}
	return httpx.Retry(ctx, policy, func(ctx context.Context) error {
		callCtx := ctx
		if bounded && c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return wrapStatus(fn(callCtx))
	}, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("OpenAI request retrying",
			"op", op,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"sleep", sleep.String(),
			"error", err.Error(),
		)
	})
}

// StatusError carries the upstream HTTP status so httpx can classify it.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string       { return fmt.Sprintf("openai status %d: %v", e.Status, e.Err) }
func (e *StatusError) Unwrap() error       { return e.Err }
func (e *StatusError) HTTPStatusCode() int { return e.Status }

func wrapStatus(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return err
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &StatusError{Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &StatusError{Status: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}

func toMessages(msgs []Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
