package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	domainchat "github.com/yungbote/companion-backend/internal/domain/chat"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/gcp"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/services"
)

const (
	DefaultStreamModel = "gpt-4o-mini"
	DefaultChatModel   = "gpt-4.1"

	AnswerUnsure     = "음... 뭐라 답해야 할지 잘 모르겠어. 다른 질문 해줄래?"
	AnswerAPIFailure = "죄송합니다. API 응답을 가져오는 데 실패했습니다."

	batchFormatRule = `응답은 반드시 {"answer": "사용자에게 보낼 답변", "explanation": "답변 의도에 대한 짧은 설명"} 형식의 JSON 객체로 반환해. answer 안의 내용은 일반 텍스트여야 해.`
)

// FrameSink delivers frames to one live connection in call order.
type FrameSink interface {
	Send(ctx context.Context, msg realtime.Message) error
}

type ReplyDeps struct {
	Log        *logger.Logger
	LLM        openai.Client
	Persona    *Persona
	Clock      Clock
	Loc        *time.Location
	Background Background

	Turns    repos.TurnRepo
	Profiles repos.UserProfileRepo

	Emotion    services.EmotionClassifier
	Similarity services.SimilarityIndex
	Images     services.ImageDescriber
	// Bucket stores attached images; nil keeps them out of storage.
	Bucket gcp.ImageBucket

	Assemble AssembleDeps
	Extract  ExtractDeps

	StreamModel string
	ChatModel   string
}

func (d ReplyDeps) logger() *logger.Logger {
	if d.Log == nil {
		return logger.NewNop()
	}
	return d.Log
}

func (d ReplyDeps) persona() *Persona {
	if d.Persona == nil {
		return DefaultPersona()
	}
	return d.Persona
}

func (d ReplyDeps) loc() *time.Location {
	if d.Loc == nil {
		return Seoul()
	}
	return d.Loc
}

type ReplyInput struct {
	UserID   uuid.UUID
	Username string
	Message  string
	Coords   *Coords
}

type StreamResult struct {
	UserTurn *types.ConversationTurn
	// BotTurn is nil when generation failed.
	BotTurn *types.ConversationTurn
	Emotion string
}

// promptState is what both reply paths gather before calling the model.
type promptState struct {
	// history is newest first with emoticon markup already described.
	history []*types.ConversationTurn
	llmText string
	profile *types.UserProfile
	time    TimeContexts
	bundle  *ContextBundle
}

func gatherPrompt(ctx context.Context, deps ReplyDeps, userID uuid.UUID, raw string, coords *Coords, hasImage bool) (*promptState, error) {
	log := deps.logger()
	dbc := dbctx.New(ctx)

	history, err := deps.Turns.ListRecent(dbc, userID, PromptHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	st := &promptState{history: describeTurns(deps.persona(), history)}
	st.llmText = DescribeEmoticons(deps.persona(), raw)

	var last *types.ConversationTurn
	if len(st.history) > 0 {
		last = st.history[0]
	}
	st.time = BuildTimeContexts(deps.Clock.now(), deps.loc(), last)

	st.bundle = AssembleContext(ctx, deps.Assemble, AssembleInput{
		UserID:   userID,
		Message:  st.llmText,
		Coords:   coords,
		HasImage: hasImage,
	})

	if deps.Profiles != nil {
		if st.profile, err = deps.Profiles.GetByUserID(dbc, userID); err != nil {
			log.Warn("load profile failed; using persona defaults", "user_id", userID, "error", err)
			st.profile = nil
		}
	}
	return st, nil
}

func (d ReplyDeps) index(ctx context.Context, turn *types.ConversationTurn) {
	if d.Similarity == nil || turn == nil {
		return
	}
	d.Background.run(ctx, "similarity.index", func(ctx context.Context) {
		if err := d.Similarity.Index(ctx, turn); err != nil {
			d.logger().Warn("index turn failed", "turn_id", turn.ID, "error", err)
		}
	})
}

func (d ReplyDeps) extractLater(ctx context.Context, in ExtractInput) {
	d.Background.run(ctx, "memory.extract", func(ctx context.Context) {
		ExtractAndMerge(ctx, d.Extract, in)
	})
}

func (d ReplyDeps) classify(ctx context.Context, text string) string {
	if d.Emotion == nil {
		return domainchat.EmotionNeutral
	}
	return d.Emotion.Classify(ctx, text)
}

// StreamReply answers one websocket message. Chunks reach sink in arrival
// order; a generation failure sends one error frame and stores no bot turn.
// The returned error is reserved for persistence failures before generation.
func StreamReply(ctx context.Context, deps ReplyDeps, sink FrameSink, in ReplyInput) (StreamResult, error) {
	log := deps.logger().With("step", "StreamReply", "user_id", in.UserID)
	dbc := dbctx.New(ctx)
	var res StreamResult

	st, err := gatherPrompt(ctx, deps, in.UserID, in.Message, in.Coords, false)
	if err != nil {
		return res, err
	}
	if in.Coords != nil {
		// Surfaced even when the assembler already produced one for this turn.
		st.bundle.Set(KeyLocationRecommendation, RecommendLocation(ctx, deps.Assemble.Location, LocationInput{
			UserID:  in.UserID,
			Message: in.Message,
			Coords:  in.Coords,
		}))
	}

	p := deps.persona()
	system := Compose(p, ComposeInput{Username: in.Username, Profile: st.profile, Time: st.time, Bundle: st.bundle})
	msgs := BuildMessages(system, st.history, st.llmText)

	userTurn := &types.ConversationTurn{ID: uuid.New(), UserID: in.UserID, Text: in.Message, IsFromUser: true}
	if err := deps.Turns.Create(dbc, userTurn); err != nil {
		return res, fmt.Errorf("persist user turn: %w", err)
	}
	res.UserTurn = userTurn
	deps.index(ctx, userTurn)

	model := deps.StreamModel
	if model == "" {
		model = DefaultStreamModel
	}
	full, err := deps.LLM.Stream(ctx, openai.ChatParams{
		Model:            model,
		Temperature:      ReplyTemperature,
		TopP:             ReplyTopP,
		FrequencyPenalty: ReplyFrequencyPenalty,
		PresencePenalty:  ReplyPresencePenalty,
	}, msgs, func(delta string) error {
		return sink.Send(ctx, realtime.ChatStream(delta))
	})
	if err != nil || strings.TrimSpace(full) == "" {
		if err == nil {
			err = fmt.Errorf("empty completion")
		}
		log.Warn("reply generation failed", "error", err, "partial_len", len(full))
		if sendErr := sink.Send(ctx, realtime.Error(realtime.ErrMsgAIFailure)); sendErr != nil {
			log.Debug("error frame not delivered", "error", sendErr)
		}
		return res, nil
	}

	res.Emotion = deps.classify(ctx, full)
	if err := sink.Send(ctx, realtime.StreamEnd(realtime.StatusSuccess, res.Emotion)); err != nil {
		log.Debug("stream end not delivered", "error", err)
	}

	botTurn := &types.ConversationTurn{ID: uuid.New(), UserID: in.UserID, Text: full, EmotionLabel: res.Emotion}
	if err := deps.Turns.Create(dbc, botTurn); err != nil {
		log.Error("persist bot turn failed", "error", err)
		return res, nil
	}
	res.BotTurn = botTurn
	deps.index(ctx, botTurn)

	deps.extractLater(ctx, ExtractInput{
		UserID:   in.UserID,
		UserText: st.llmText,
		BotText:  full,
		History:  limitTurns(st.history, StreamExtractionLimit),
	})
	return res, nil
}

type BatchInput struct {
	UserID           uuid.UUID
	Username         string
	Message          string
	Coords           *Coords
	Image            []byte
	ImageContentType string
}

type BatchResult struct {
	Answer      string
	Explanation string
	Emotion     string
	UserTurn    *types.ConversationTurn
	BotTurn     *types.ConversationTurn
}

// BatchReply answers one HTTP message with a single JSON completion. The
// answer always has text: parsing falls back step by step and a transport
// failure yields a fixed apology that is not stored.
func BatchReply(ctx context.Context, deps ReplyDeps, in BatchInput) (BatchResult, error) {
	log := deps.logger().With("step", "BatchReply", "user_id", in.UserID)
	dbc := dbctx.New(ctx)
	var res BatchResult
	hasImage := len(in.Image) > 0

	st, err := gatherPrompt(ctx, deps, in.UserID, in.Message, in.Coords, hasImage)
	if err != nil {
		return res, err
	}

	var desc string
	if hasImage && deps.Images != nil {
		if desc, err = deps.Images.Describe(ctx, in.Image, in.ImageContentType, in.Message); err != nil {
			log.Warn("image description failed", "error", err)
			desc = ""
		}
	}

	userTurn := &types.ConversationTurn{ID: uuid.New(), UserID: in.UserID, Text: in.Message, IsFromUser: true}
	if hasImage && deps.Bucket != nil {
		key := gcp.ChatImageKey(in.UserID, userTurn.ID, in.ImageContentType)
		if err := deps.Bucket.Upload(ctx, key, in.ImageContentType, in.Image); err != nil {
			log.Warn("image upload failed", "error", err)
		} else {
			userTurn.ImageKey = key
		}
	}

	p := deps.persona()
	system := Compose(p, ComposeInput{Username: in.Username, Profile: st.profile, Time: st.time, Bundle: st.bundle, ImageDescription: desc})
	msgs := BuildMessages(system+batchFormatRule+"\n", st.history, st.llmText)

	if err := deps.Turns.Create(dbc, userTurn); err != nil {
		return res, fmt.Errorf("persist user turn: %w", err)
	}
	res.UserTurn = userTurn
	deps.index(ctx, userTurn)

	model := deps.ChatModel
	if model == "" {
		model = DefaultChatModel
	}
	raw, err := deps.LLM.Complete(ctx, openai.ChatParams{
		Model:            model,
		Temperature:      ReplyTemperature,
		TopP:             ReplyTopP,
		FrequencyPenalty: ReplyFrequencyPenalty,
		PresencePenalty:  ReplyPresencePenalty,
		JSON:             true,
	}, msgs)
	if err != nil {
		log.Warn("reply completion failed", "error", err)
		res.Answer = AnswerAPIFailure
		return res, nil
	}
	res.Answer, res.Explanation = ParseAnswer(raw)
	res.Emotion = deps.classify(ctx, res.Answer)

	botTurn := &types.ConversationTurn{ID: uuid.New(), UserID: in.UserID, Text: res.Answer, EmotionLabel: res.Emotion}
	if err := deps.Turns.Create(dbc, botTurn); err != nil {
		return res, fmt.Errorf("persist bot turn: %w", err)
	}
	res.BotTurn = botTurn
	deps.index(ctx, botTurn)

	deps.extractLater(ctx, ExtractInput{
		UserID:   in.UserID,
		UserText: st.llmText,
		BotText:  res.Answer,
		History:  limitTurns(st.history, BatchedExtractionLimit),
	})
	return res, nil
}

type answerEnvelope struct {
	Answer      *string `json:"answer"`
	Explanation string  `json:"explanation"`
}

// ParseAnswer reads {"answer","explanation"}: the whole text first, then the
// outermost brace span, then the raw text itself. An empty result becomes a
// fixed reply.
func ParseAnswer(raw string) (answer, explanation string) {
	if a, e, ok := decodeAnswer(raw); ok {
		return orUnsure(a), e
	}
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		if a, e, ok := decodeAnswer(raw[i : j+1]); ok {
			return orUnsure(a), e
		}
	}
	return orUnsure(strings.TrimSpace(raw)), ""
}

func decodeAnswer(s string) (string, string, bool) {
	var env answerEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil || env.Answer == nil {
		return "", "", false
	}
	return strings.TrimSpace(*env.Answer), env.Explanation, true
}

func orUnsure(s string) string {
	if strings.TrimSpace(s) == "" {
		return AnswerUnsure
	}
	return s
}

func limitTurns(turns []*types.ConversationTurn, n int) []*types.ConversationTurn {
	if len(turns) > n {
		return turns[:n]
	}
	return turns
}
