package app

import (
	"context"
	"time"

	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

type instrumentedLLM struct {
	inner   openai.Client
	metrics *observability.Metrics
}

func instrumentLLM(inner openai.Client, metrics *observability.Metrics) openai.Client {
	if inner == nil || metrics == nil {
		return inner
	}
	return &instrumentedLLM{inner: inner, metrics: metrics}
}

func (c *instrumentedLLM) Complete(ctx context.Context, p openai.ChatParams, msgs []openai.Message) (string, error) {
	start := time.Now()
	out, err := c.inner.Complete(ctx, p, msgs)
	c.metrics.ObserveLLM("chat.complete", err, time.Since(start))
	return out, err
}

func (c *instrumentedLLM) Stream(ctx context.Context, p openai.ChatParams, msgs []openai.Message, onDelta func(string) error) (string, error) {
	start := time.Now()
	out, err := c.inner.Stream(ctx, p, msgs, onDelta)
	c.metrics.ObserveLLM("chat.stream", err, time.Since(start))
	return out, err
}

func (c *instrumentedLLM) DescribeImage(ctx context.Context, model, prompt string, image []byte, contentType string, maxTokens int) (string, error) {
	start := time.Now()
	out, err := c.inner.DescribeImage(ctx, model, prompt, image, contentType, maxTokens)
	c.metrics.ObserveLLM("vision.describe", err, time.Since(start))
	return out, err
}

func (c *instrumentedLLM) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	start := time.Now()
	out, err := c.inner.Embed(ctx, inputs)
	c.metrics.ObserveLLM("embeddings", err, time.Since(start))
	return out, err
}
