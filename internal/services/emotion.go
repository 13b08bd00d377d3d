package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/companion-backend/internal/domain/chat"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

// EmotionClassifier labels a bot reply with one of chat.EmotionLabels.
// It never fails: any upstream or decode problem yields the neutral label.
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) string
}

type emotionClassifier struct {
	log   *logger.Logger
	llm   openai.Client
	model string
}

func NewEmotionClassifier(log *logger.Logger, llm openai.Client, model string) EmotionClassifier {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &emotionClassifier{log: log.With("service", "EmotionClassifier"), llm: llm, model: model}
}

const emotionSystemPrompt = "당신은 한국어 감정 분석 전문가입니다."

const emotionPromptTemplate = `당신은 한국어 감정 분석 전문가입니다.
아래 문장의 감정을 각각의 점수(0~1)로 평가하세요.
가능한 감정은 다음 7가지입니다:
0: 공포, 1: 놀람, 2: 분노, 3: 슬픔, 4: 중립, 5: 행복, 6: 혐오

문장: "%s"

각 감정에 대해 확률처럼 보이는 점수를 부여한 뒤,
반드시 아래 JSON **객체** 형식으로 출력하세요.
예시:
{"emotion_scores": [
  {"label": "0", "score": 0.05},
  {"label": "1", "score": 0.12},
  {"label": "2", "score": 0.08},
  {"label": "3", "score": 0.20},
  {"label": "4", "score": 0.40},
  {"label": "5", "score": 0.10},
  {"label": "6", "score": 0.05}
]}`

func (s *emotionClassifier) Classify(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" || s.llm == nil {
		return chat.EmotionNeutral
	}
	raw, err := s.llm.Complete(ctx, openai.ChatParams{Model: s.model, Temperature: 0.2, JSON: true}, []openai.Message{
		{Role: openai.RoleSystem, Content: emotionSystemPrompt},
		{Role: openai.RoleUser, Content: fmt.Sprintf(emotionPromptTemplate, text)},
	})
	if err != nil {
		s.log.Warn("emotion classification failed", "error", err)
		return chat.EmotionNeutral
	}
	label, err := TopEmotion(raw)
	if err != nil {
		s.log.Warn("emotion response unparseable", "error", err)
	}
	return label
}

type emotionScore struct {
	Label json.RawMessage `json:"label"`
	Score float64         `json:"score"`
}

// TopEmotion returns the label with the highest score from a classifier
// response. Labels may be sent as "3" or 3.
func TopEmotion(raw string) (string, error) {
	var resp struct {
		EmotionScores []emotionScore `json:"emotion_scores"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return chat.EmotionNeutral, err
	}
	best, bestScore := -1, -1.0
	for _, s := range resp.EmotionScores {
		id, ok := labelID(s.Label)
		if !ok {
			continue
		}
		if s.Score > bestScore {
			best, bestScore = id, s.Score
		}
	}
	if best < 0 || best >= len(chat.EmotionLabels) {
		return chat.EmotionNeutral, nil
	}
	return chat.EmotionLabels[best], nil
}

func labelID(raw json.RawMessage) (int, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}
