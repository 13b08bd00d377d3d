package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/kakao"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
)

type fakeLLM struct {
	mu       sync.Mutex
	complete func(p openai.ChatParams, msgs []openai.Message) (string, error)
	calls    []openai.ChatParams
	prompts  [][]openai.Message
	embed    func(inputs []string) ([][]float32, error)
}

func (f *fakeLLM) Complete(ctx context.Context, p openai.ChatParams, msgs []openai.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.prompts = append(f.prompts, msgs)
	f.mu.Unlock()
	return f.complete(p, msgs)
}

func (f *fakeLLM) Stream(ctx context.Context, p openai.ChatParams, msgs []openai.Message, onDelta func(string) error) (string, error) {
	return "", nil
}

func (f *fakeLLM) DescribeImage(ctx context.Context, model, prompt string, image []byte, contentType string, maxTokens int) (string, error) {
	return "", nil
}

func (f *fakeLLM) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.embed == nil {
		return nil, nil
	}
	return f.embed(inputs)
}

type fakeEmbeddings struct {
	mu      sync.Mutex
	rows    []*types.TurnEmbedding
	nearest []*types.TurnEmbedding
	lastK   int
}

func (f *fakeEmbeddings) Upsert(dbc dbctx.Context, row *types.TurnEmbedding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeEmbeddings) Nearest(dbc dbctx.Context, userID uuid.UUID, query []float32, k int) ([]*types.TurnEmbedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastK = k
	return f.nearest, nil
}

type fakeBus struct {
	mu        sync.Mutex
	err       error
	published []realtime.Message
}

func (b *fakeBus) Publish(ctx context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, msg)
	return nil
}

func (b *fakeBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error { return nil }
func (b *fakeBus) Close() error { return nil }

type fakeKakao struct {
	addr     *kakao.Address
	addrErr  error
	keyword  map[string][]kakao.Place
	category map[string][]kakao.Place
	queries  []string
}

func (f *fakeKakao) Coord2Address(ctx context.Context, lat, lon float64) (*kakao.Address, error) {
	return f.addr, f.addrErr
}

func (f *fakeKakao) SearchKeyword(ctx context.Context, query string, lat, lon float64, radius int, sort string) ([]kakao.Place, error) {
	f.queries = append(f.queries, query)
	return f.keyword[query], nil
}

func (f *fakeKakao) SearchCategory(ctx context.Context, code string, lat, lon float64, radius int, sort string) ([]kakao.Place, error) {
	return f.category[code], nil
}
