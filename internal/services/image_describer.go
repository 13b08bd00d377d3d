package services

import (
	"context"
	"fmt"

	"github.com/yungbote/companion-backend/internal/platform/imaging"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

// ImageDescriber turns an attached image into a Korean description used as
// prompt context. An empty result means no description is available.
type ImageDescriber interface {
	Describe(ctx context.Context, image []byte, contentType, userHint string) (string, error)
}

type imageDescriber struct {
	log       *logger.Logger
	llm       openai.Client
	model     string
	maxTokens int
	maxSide   int
}

func NewImageDescriber(log *logger.Logger, llm openai.Client, model string) ImageDescriber {
	if model == "" {
		model = "gpt-4o"
	}
	return &imageDescriber{
		log:       log.With("service", "ImageDescriber"),
		llm:       llm,
		model:     model,
		maxTokens: 500,
		maxSide:   imaging.DefaultMaxSide,
	}
}

func captionPrompt(userHint string) string {
	return fmt.Sprintf(`제공된 이미지를 자세히 분석하고, 그 내용을 바탕으로 상세한 설명을 생성해주세요.
설명에는 주요 대상, 배경, 전체적인 분위기, 그리고 사용자의 메시지("%s")와 관련될 수 있는 흥미로운 세부 사항들이 포함되어야 합니다.
결과는 다른 부가 설명 없이, 이미지에 대한 설명 텍스트만 간결하게 반환해주세요.
**모든 설명은 반드시 한글로 작성해야 합니다.**`, userHint)
}

func (s *imageDescriber) Describe(ctx context.Context, image []byte, contentType, userHint string) (string, error) {
	if len(image) == 0 {
		return "", nil
	}
	data, ct := image, contentType
	if scaled, sct, err := imaging.Downscale(image, s.maxSide); err == nil {
		data, ct = scaled, sct
	} else {
		s.log.Warn("image downscale failed; sending original", "error", err, "content_type", contentType)
	}
	desc, err := s.llm.DescribeImage(ctx, s.model, captionPrompt(userHint), data, ct, s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return desc, nil
}
