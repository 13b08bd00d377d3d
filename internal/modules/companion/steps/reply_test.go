package steps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
)

type fakeDescriber struct{ desc string }

func (f fakeDescriber) Describe(ctx context.Context, image []byte, contentType, hint string) (string, error) {
	return f.desc, nil
}

type memBucket struct {
	objects map[string][]byte
}

func (b *memBucket) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	return nil
}

func (b *memBucket) Download(ctx context.Context, key string) ([]byte, error) {
	return b.objects[key], nil
}

func (b *memBucket) PublicURL(key string) string { return "https://example.test/" + key }
func (b *memBucket) Close() error                { return nil }

type replyFixture struct {
	r    testRepos
	user *types.User
	llm  *fakeLLM
	sim  *fakeSimilarity
	deps ReplyDeps
	dbc  dbctx.Context
}

func newReplyFixture(t *testing.T) *replyFixture {
	t.Helper()
	db := testutil.DB(t)
	r := newTestRepos(db, testutil.Logger(t))
	now := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	llm := &fakeLLM{}
	sim := &fakeSimilarity{}
	places := foodPlaces()
	return &replyFixture{
		r:    r,
		user: testutil.SeedUser(t, db, "민지"),
		llm:  llm,
		sim:  sim,
		dbc:  dbctx.Context{Ctx: context.Background()},
		deps: ReplyDeps{
			Log:        testutil.Logger(t),
			LLM:        llm,
			Persona:    DefaultPersona(),
			Clock:      fixedClock(now),
			Background: inline,
			Turns:      r.turns,
			Profiles:   r.profiles,
			Emotion:    fakeEmotion{label: "행복"},
			Similarity: sim,
			Assemble:   r.assembleDeps(places, sim, fixedClock(now)),
			Extract:    r.extractDeps(llm, fixedClock(now)),
		},
	}
}

func (f *replyFixture) turns(t *testing.T) []*types.ConversationTurn {
	t.Helper()
	rows, err := f.r.turns.ListRecent(f.dbc, f.user.ID, 50)
	require.NoError(t, err)
	return rows
}

func TestStreamReplySuccessFrameOrder(t *testing.T) {
	f := newReplyFixture(t)
	f.llm.stream = streamChunks("안녕", "! 반가워")
	sink := &recordSink{}

	res, err := StreamReply(context.Background(), f.deps, sink, ReplyInput{UserID: f.user.ID, Username: "민지", Message: `안녕 <img src="assets/img/하트눈_이모티콘.png" class="chat-emoticon">`})
	require.NoError(t, err)

	assert.Equal(t, []realtime.EventType{realtime.EventChatStream, realtime.EventChatStream, realtime.EventStreamEnd}, sink.types())
	assert.Equal(t, "안녕", sink.frames[0].Data["message_chunk"])
	assert.Equal(t, realtime.StatusSuccess, sink.frames[2].Data["status"])
	assert.Equal(t, "행복", sink.frames[2].Data["emotion"])

	require.NotNil(t, res.BotTurn)
	rows := f.turns(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "안녕! 반가워", rows[0].Text)
	assert.Equal(t, "행복", rows[0].EmotionLabel)
	assert.True(t, rows[1].IsFromUser)
	assert.Contains(t, rows[1].Text, "<img", "user turn keeps the raw text")
	assert.Len(t, f.sim.indexed, 2)

	params := f.llm.calls[0]
	assert.Equal(t, DefaultStreamModel, params.Model)
	assert.InDelta(t, ReplyTemperature, params.Temperature, 1e-6)
	msgs := f.llm.prompts[0]
	assert.NotContains(t, msgs[len(msgs)-1].Content, "<img")
	assert.Contains(t, msgs[len(msgs)-1].Content, "(사용자는 '하트눈' 이모티콘도 함께 보냈다: ")
	assert.Len(t, f.llm.calls, 2, "extraction runs after the reply")
	assertNoMarkup(t, f.llm.prompts)
}

func TestStreamReplyHistoryCarriesDescribedEmoticons(t *testing.T) {
	f := newReplyFixture(t)
	f.llm.stream = streamChunks("응!")
	ctx := context.Background()

	_, err := StreamReply(ctx, f.deps, &recordSink{}, ReplyInput{UserID: f.user.ID, Username: "민지", Message: `안녕 <img src="assets/img/하트눈_이모티콘.png" class="chat-emoticon">`})
	require.NoError(t, err)
	_, err = StreamReply(ctx, f.deps, &recordSink{}, ReplyInput{UserID: f.user.ID, Username: "민지", Message: "뭐해?"})
	require.NoError(t, err)

	require.Len(t, f.llm.prompts, 4)
	assertNoMarkup(t, f.llm.prompts)
	replay := f.llm.prompts[2]
	described := false
	for _, m := range replay[1 : len(replay)-1] {
		if m.Role == openai.RoleUser && strings.Contains(m.Content, "(사용자는 '하트눈' 이모티콘도 함께 보냈다: ") {
			described = true
		}
	}
	assert.True(t, described, "earlier user turn is replayed described")
}

func assertNoMarkup(t *testing.T, prompts [][]openai.Message) {
	t.Helper()
	for i, msgs := range prompts {
		for j, m := range msgs {
			assert.NotContains(t, m.Content, "<img", "call %d message %d", i, j)
		}
	}
}

func TestStreamReplyFailureSendsSingleErrorFrame(t *testing.T) {
	f := newReplyFixture(t)
	f.llm.stream = func(func(string) error) (string, error) { return "", errors.New("upstream reset") }
	sink := &recordSink{}

	res, err := StreamReply(context.Background(), f.deps, sink, ReplyInput{UserID: f.user.ID, Username: "민지", Message: "안녕"})
	require.NoError(t, err)

	require.Equal(t, []realtime.EventType{realtime.EventError}, sink.types())
	assert.Equal(t, realtime.ErrMsgAIFailure, sink.frames[0].Data["message"])
	assert.Nil(t, res.BotTurn)

	rows := f.turns(t)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsFromUser)
	assert.Len(t, f.llm.calls, 1, "no extraction after a failed reply")
}

func TestStreamReplyEmptyCompletionIsFailure(t *testing.T) {
	f := newReplyFixture(t)
	f.llm.stream = streamChunks()
	sink := &recordSink{}

	res, err := StreamReply(context.Background(), f.deps, sink, ReplyInput{UserID: f.user.ID, Message: "안녕"})
	require.NoError(t, err)
	assert.Equal(t, []realtime.EventType{realtime.EventError}, sink.types())
	assert.Nil(t, res.BotTurn)
}

func TestStreamReplyIncludesNearbyPlaces(t *testing.T) {
	f := newReplyFixture(t)
	f.llm.stream = streamChunks("국밥 어때?")

	_, err := StreamReply(context.Background(), f.deps, &recordSink{}, ReplyInput{
		UserID:  f.user.ID,
		Message: "맛집 추천해줘",
		Coords:  &Coords{Lat: 37.5, Lon: 127.0},
	})
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[0][0].Content, "[주변 맛집 정보]: 국밥집, 분식집, 파스타집, 초밥집, 고깃집")
}

func TestBatchReplyStoresImageAndParsesAnswer(t *testing.T) {
	f := newReplyFixture(t)
	bucket := &memBucket{}
	f.deps.Bucket = bucket
	f.deps.Images = fakeDescriber{desc: "노란 고양이 사진"}
	f.llm.complete = func(p openai.ChatParams, msgs []openai.Message) (string, error) {
		if strings.Contains(msgs[0].Content, batchFormatRule) {
			return `{"answer": "귀여운 고양이네!", "explanation": "공감"}`, nil
		}
		return `{}`, nil
	}

	res, err := BatchReply(context.Background(), f.deps, BatchInput{
		UserID:           f.user.ID,
		Username:         "민지",
		Message:          "이거 봐",
		Image:            []byte{0xff, 0xd8},
		ImageContentType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, "귀여운 고양이네!", res.Answer)
	assert.Equal(t, "공감", res.Explanation)
	assert.Equal(t, "행복", res.Emotion)

	require.NotNil(t, res.UserTurn)
	assert.NotEmpty(t, res.UserTurn.ImageKey)
	assert.Contains(t, bucket.objects, res.UserTurn.ImageKey)

	system := f.llm.prompts[0][0].Content
	assert.Contains(t, system, "노란 고양이 사진")
	assert.Contains(t, system, `"answer"`)
	assert.True(t, f.llm.calls[0].JSON)
	assert.Empty(t, f.sim.queries, "similar turns are skipped for image messages")
}

func TestBatchReplyTransportFailure(t *testing.T) {
	f := newReplyFixture(t)
	f.llm.complete = func(openai.ChatParams, []openai.Message) (string, error) { return "", errors.New("503") }

	res, err := BatchReply(context.Background(), f.deps, BatchInput{UserID: f.user.ID, Message: "안녕"})
	require.NoError(t, err)
	assert.Equal(t, AnswerAPIFailure, res.Answer)
	assert.Nil(t, res.BotTurn)
	assert.Len(t, f.turns(t), 1)
}

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		name, raw, answer, explanation string
	}{
		{"json", `{"answer": "좋아!", "explanation": "e"}`, "좋아!", "e"},
		{"wrapped", "```json\n{\"answer\": \"응\"}\n```", "응", ""},
		{"plain", "그냥 텍스트", "그냥 텍스트", ""},
		{"empty answer", `{"answer": "  "}`, AnswerUnsure, ""},
		{"empty", "", AnswerUnsure, ""},
		{"no answer key", `{"reply": "x"}`, `{"reply": "x"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, e := ParseAnswer(tc.raw)
			assert.Equal(t, tc.answer, a)
			assert.Equal(t, tc.explanation, e)
		})
	}
}
