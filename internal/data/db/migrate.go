package db

import (
	"fmt"

	types "github.com/yungbote/companion-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.All()...)
}

// EnsureMemoryIndexes adds the postgres-only indexes gorm tags cannot express.
func EnsureMemoryIndexes(db *gorm.DB) error {
	// Context assembly reads the newest activities first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_user_activity_user_recent
		ON user_activity (user_id, activity_date DESC, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_user_activity_user_recent: %w", err)
	}

	// Dedup lookups match on memo within a short window.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_user_activity_user_memo_created
		ON user_activity (user_id, memo, created_at DESC)
		WHERE memo <> '';
	`).Error; err != nil {
		return fmt.Errorf("create idx_user_activity_user_memo_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_activity_analytics_user_period
		ON activity_analytics (user_id, period_start_date DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_activity_analytics_user_period: %w", err)
	}

	return nil
}

func EnsureVectorIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_turn_embedding_hnsw
		ON turn_embedding
		USING hnsw (embedding vector_cosine_ops);
	`).Error; err != nil {
		return fmt.Errorf("create idx_turn_embedding_hnsw: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureMemoryIndexes(s.db); err != nil {
		s.log.Error("Memory index migration failed", "error", err)
		return err
	}
	// Similarity search still works without the ANN index, only slower.
	if err := EnsureVectorIndexes(s.db); err != nil {
		s.log.Warn("Vector index migration failed (continuing)", "error", err)
	}
	return nil
}
