package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

type SimilarDoc struct {
	Document string
	Speaker  string
}

// SimilarityIndex embeds turns and answers top-K nearest past turns per user.
type SimilarityIndex interface {
	Index(ctx context.Context, turn *types.ConversationTurn) error
	Similar(ctx context.Context, userID uuid.UUID, query string, k int) ([]SimilarDoc, error)
}

type similarityIndex struct {
	log  *logger.Logger
	llm  openai.Client
	repo repos.TurnEmbeddingRepo
}

func NewSimilarityIndex(log *logger.Logger, llm openai.Client, repo repos.TurnEmbeddingRepo) SimilarityIndex {
	return &similarityIndex{log: log.With("service", "SimilarityIndex"), llm: llm, repo: repo}
}

func (s *similarityIndex) Index(ctx context.Context, turn *types.ConversationTurn) error {
	if turn == nil || strings.TrimSpace(turn.Text) == "" {
		return nil
	}
	vecs, err := s.llm.Embed(ctx, []string{turn.Text})
	if err != nil {
		return fmt.Errorf("embed turn: %w", err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("embed turn: got %d vectors", len(vecs))
	}
	return s.repo.Upsert(dbctx.New(ctx), &types.TurnEmbedding{
		TurnID:    turn.ID,
		UserID:    turn.UserID,
		Speaker:   turn.Speaker(),
		Document:  turn.Text,
		Embedding: pgvector.NewVector(vecs[0]),
	})
}

func (s *similarityIndex) Similar(ctx context.Context, userID uuid.UUID, query string, k int) ([]SimilarDoc, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}
	vecs, err := s.llm.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	rows, err := s.repo.Nearest(dbctx.New(ctx), userID, vecs[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]SimilarDoc, 0, len(rows))
	for _, r := range rows {
		out = append(out, SimilarDoc{Document: r.Document, Speaker: r.Speaker})
	}
	return out, nil
}
