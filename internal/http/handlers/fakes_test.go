package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

// fakeCompanion stands in for companion.Usecases behind every handler.
type fakeCompanion struct {
	mu sync.Mutex

	user    *types.User
	reply   func(ctx context.Context, sink companion.FrameSink, in companion.ReplyInput) error
	tick    func(ctx context.Context, sink companion.FrameSink) error
	batch   func(in companion.BatchInput) (companion.BatchResult, error)
	pending *types.ConversationTurn

	replies   []companion.ReplyInput
	batches   []companion.BatchInput
	acked     int
	onboarded []companion.OnboardInput
	prefs     [][2]string
	lastQuery string
}

func newFakeCompanion() *fakeCompanion {
	return &fakeCompanion{user: &types.User{ID: uuid.New(), Username: "지수", IsActive: true}}
}

func (f *fakeCompanion) LoadUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	if userID != f.user.ID {
		return nil, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	return f.user, nil
}

func (f *fakeCompanion) StreamReply(ctx context.Context, sink companion.FrameSink, in companion.ReplyInput) (companion.StreamResult, error) {
	f.mu.Lock()
	f.replies = append(f.replies, in)
	f.mu.Unlock()
	if f.reply == nil {
		return companion.StreamResult{}, nil
	}
	return companion.StreamResult{}, f.reply(ctx, sink, in)
}

func (f *fakeCompanion) NewInactivityTimer(timeout time.Duration, sink companion.FrameSink, in companion.TickInput) *steps.InactivityTimer {
	return steps.NewInactivityTimer(logger.NewNop(), timeout, func(ctx context.Context) error {
		if f.tick == nil {
			return nil
		}
		return f.tick(ctx, sink)
	})
}

func (f *fakeCompanion) BatchReply(ctx context.Context, in companion.BatchInput) (companion.BatchResult, error) {
	f.mu.Lock()
	f.batches = append(f.batches, in)
	f.mu.Unlock()
	if f.batch == nil {
		return companion.BatchResult{Answer: "응답", Emotion: "행복"}, nil
	}
	return f.batch(in)
}

func (f *fakeCompanion) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ConversationTurn, error) {
	return []*types.ConversationTurn{{ID: uuid.New(), UserID: userID, Text: fmt.Sprintf("limit=%d", limit)}}, nil
}

func (f *fakeCompanion) PendingProactive(ctx context.Context, userID uuid.UUID) (*types.ConversationTurn, error) {
	return f.pending, nil
}

func (f *fakeCompanion) AckProactive(ctx context.Context, userID uuid.UUID) error {
	f.acked++
	f.pending = nil
	return nil
}

func (f *fakeCompanion) RecommendLocation(ctx context.Context, userID uuid.UUID, query string, coords companion.Coords) string {
	f.lastQuery = query
	return "[주변 맛집 정보]: 국밥집"
}

func (f *fakeCompanion) Onboard(ctx context.Context, in companion.OnboardInput) (string, error) {
	if in.Content == "" && in.Action != steps.OnboardComplete {
		return "", fmt.Errorf("%w: 데이터가 누락되었습니다.", apperr.ErrInvalidArgument)
	}
	f.onboarded = append(f.onboarded, in)
	return "ok", nil
}

func (f *fakeCompanion) SavePlacePreference(ctx context.Context, userID uuid.UUID, category, place string) error {
	if category == "우주정거장" {
		return fmt.Errorf("%w: unknown category", apperr.ErrInvalidArgument)
	}
	f.prefs = append(f.prefs, [2]string{category, place})
	return nil
}

func (f *fakeCompanion) Status(ctx context.Context, userID uuid.UUID) (companion.Status, error) {
	if userID != f.user.ID {
		return companion.Status{}, errors.New("boom")
	}
	return companion.Status{Username: f.user.Username, ChatbotName: "아이", AffinityScore: 70}, nil
}

func streamChunks(chunks ...string) func(ctx context.Context, sink companion.FrameSink, in companion.ReplyInput) error {
	return func(ctx context.Context, sink companion.FrameSink, in companion.ReplyInput) error {
		for _, c := range chunks {
			if err := sink.Send(ctx, realtime.ChatStream(c)); err != nil {
				return err
			}
		}
		return sink.Send(ctx, realtime.StreamEnd(realtime.StatusSuccess, "행복"))
	}
}
