package mysql

import (
	"context"
	"fmt"

	"PromptStudio-admin/internal/models"
)

// AddFavorite 重複收藏不會報錯 (favorites 有 userId+promptId 唯一鍵)
func (s *MySQLStore) AddFavorite(ctx context.Context, userID, promptID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT IGNORE INTO favorites (userId, promptId, createdAt) VALUES (?, ?, NOW())`, userID, promptID)
	if err != nil {
		return fmt.Errorf("新增收藏失敗 (user %d, prompt %d): %w", userID, promptID, err)
	}
	return nil
}

func (s *MySQLStore) RemoveFavorite(ctx context.Context, userID, promptID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE userId = ? AND promptId = ?`, userID, promptID)
	if err != nil {
		return fmt.Errorf("移除收藏失敗 (user %d, prompt %d): %w", userID, promptID, err)
	}
	return nil
}

// ListFavoritePrompts 使用者收藏的提示詞，最新收藏在前
func (s *MySQLStore) ListFavoritePrompts(ctx context.Context, userID int64) ([]models.Prompt, error) {
	query := `SELECT p.id, p.promptNumber, p.title, COALESCE(p.description, ''), COALESCE(p.scenarioType, ''), COALESCE(p.industrySector, ''), COALESCE(p.visualStyle, ''),
		p.durationSeconds, p.originalDuration, p.promptJson, p.qualityScore, p.createdAt, p.updatedAt
		FROM favorites f JOIN prompts p ON p.id = f.promptId
		WHERE f.userId = ? ORDER BY f.createdAt DESC, p.promptNumber ASC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("查詢使用者 %d 的收藏失敗: %w", userID, err)
	}
	return scanPrompts(rows)
}
