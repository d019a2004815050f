package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/models"
)

const promptColumns = `id, promptNumber, title, COALESCE(description, ''), COALESCE(scenarioType, ''), COALESCE(industrySector, ''), COALESCE(visualStyle, ''), durationSeconds, originalDuration, promptJson, qualityScore, createdAt, updatedAt`

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var p models.Prompt
	err := row.Scan(&p.ID, &p.PromptNumber, &p.Title, &p.Description, &p.ScenarioType, &p.IndustrySector, &p.VisualStyle,
		&p.DurationSeconds, &p.OriginalDuration, &p.PromptJSON, &p.QualityScore.NullFloat64, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPrompts(rows *sql.Rows) ([]models.Prompt, error) {
	defer rows.Close()
	prompts := make([]models.Prompt, 0)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("掃描提示詞資料列失敗: %w", err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("處理提示詞查詢結果集時發生錯誤: %w", err)
	}
	return prompts, nil
}

// GetPromptByID 找不到時回傳 nil, nil
func (s *MySQLStore) GetPromptByID(ctx context.Context, id int64) (*models.Prompt, error) {
	if id <= 0 {
		return nil, fmt.Errorf("無效的 PromptID: %d", id)
	}
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = ?`
	p, err := scanPrompt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("查詢 PromptID %d 失敗: %w", id, err)
	}
	return p, nil
}

// GetPromptByNumber 依目錄序號查詢，找不到時回傳 nil, nil
func (s *MySQLStore) GetPromptByNumber(ctx context.Context, number int) (*models.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE promptNumber = ?`
	p, err := scanPrompt(s.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("查詢 PromptNumber %d 失敗: %w", number, err)
	}
	return p, nil
}

// GetPromptsByNumbers 依序號批次查詢，結果依序號排序，不存在的序號直接略過
func (s *MySQLStore) GetPromptsByNumbers(ctx context.Context, numbers []int) ([]models.Prompt, error) {
	if len(numbers) == 0 {
		return []models.Prompt{}, nil
	}
	args := make([]any, len(numbers))
	for i, n := range numbers {
		args[i] = n
	}
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE promptNumber IN (` + placeholders(len(numbers)) + `) ORDER BY promptNumber ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("批次查詢提示詞失敗: %w", err)
	}
	return scanPrompts(rows)
}

// ListPrompts 依序號列出整個目錄
func (s *MySQLStore) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	return s.SearchPrompts(ctx, models.PromptFilter{})
}

// SearchPrompts 文字搜尋標題、描述與內容，並依產業、風格、情境篩選
func (s *MySQLStore) SearchPrompts(ctx context.Context, filter models.PromptFilter) ([]models.Prompt, error) {
	var conditions []string
	var args []any
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := escapeLike(term)
		conditions = append(conditions, "(title LIKE ? OR description LIKE ? OR promptJson LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.IndustrySector != "" {
		conditions = append(conditions, "industrySector = ?")
		args = append(args, filter.IndustrySector)
	}
	if filter.VisualStyle != "" {
		conditions = append(conditions, "visualStyle = ?")
		args = append(args, filter.VisualStyle)
	}
	if filter.ScenarioType != "" {
		conditions = append(conditions, "scenarioType = ?")
		args = append(args, filter.ScenarioType)
	}

	query := `SELECT ` + promptColumns + ` FROM prompts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY promptNumber ASC"

	s.log.Debug("查詢提示詞目錄", "search", filter.Search, "sector", filter.IndustrySector, "style", filter.VisualStyle, "scenario", filter.ScenarioType)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查詢提示詞目錄失敗: %w", err)
	}
	return scanPrompts(rows)
}

// GetPromptStats 目錄統計；等級分界與 rubric.Classify 相同 (9 / 7 / 5)
func (s *MySQLStore) GetPromptStats(ctx context.Context) (*models.CatalogStats, error) {
	query := `SELECT COUNT(*), COUNT(qualityScore), COALESCE(AVG(qualityScore), 0),
		COALESCE(SUM(CASE WHEN qualityScore >= 9 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN qualityScore >= 7 AND qualityScore < 9 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN qualityScore >= 5 AND qualityScore < 7 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN qualityScore < 5 THEN 1 ELSE 0 END), 0)
		FROM prompts`
	var stats models.CatalogStats
	var avg float64
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Scored, &avg,
		&stats.Distribution.Gold, &stats.Distribution.Silver, &stats.Distribution.Bronze, &stats.Distribution.Poor)
	if err != nil {
		return nil, fmt.Errorf("查詢目錄統計失敗: %w", err)
	}
	stats.AverageScore = float64(int(avg*10+0.5)) / 10

	if stats.Sectors, err = s.distinct(ctx, "industrySector"); err != nil {
		return nil, err
	}
	if stats.Styles, err = s.distinct(ctx, "visualStyle"); err != nil {
		return nil, err
	}
	if stats.Scenarios, err = s.distinct(ctx, "scenarioType"); err != nil {
		return nil, err
	}
	return &stats, nil
}

// distinct column 只接受程式內的固定欄位名稱
func (s *MySQLStore) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM prompts WHERE %[1]s IS NOT NULL AND %[1]s <> '' ORDER BY %[1]s ASC", column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查詢 %s 清單失敗: %w", column, err)
	}
	defer rows.Close()
	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("掃描 %s 失敗: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// UpdatePromptContent 以單一 UPDATE 同時寫入 promptJson 與 qualityScore
func (s *MySQLStore) UpdatePromptContent(ctx context.Context, id int64, promptJSON string, score models.JsonNullScore) error {
	res, err := s.db.ExecContext(ctx, `UPDATE prompts SET promptJson = ?, qualityScore = ?, updatedAt = NOW() WHERE id = ?`,
		promptJSON, score.NullFloat64, id)
	if err != nil {
		return fmt.Errorf("更新 PromptID %d 內容失敗: %w", id, err)
	}
	return requireAffected(res, "Prompt", id)
}

// UpdatePromptScore 只更新分數，且僅在 promptJson 仍是評分時的內容才寫入
func (s *MySQLStore) UpdatePromptScore(ctx context.Context, id int64, evaluatedJSON string, score models.JsonNullScore) error {
	res, err := s.db.ExecContext(ctx, `UPDATE prompts SET qualityScore = ?, updatedAt = NOW() WHERE id = ? AND promptJson = ?`,
		score.NullFloat64, id, evaluatedJSON)
	if err != nil {
		return fmt.Errorf("更新 PromptID %d 分數失敗: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("取得 Prompt %d 更新筆數失敗: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM prompts WHERE id = ?`, id).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("Prompt", id)
	case err != nil:
		return fmt.Errorf("確認 PromptID %d 是否存在失敗: %w", id, err)
	}
	return fmt.Errorf("PromptID %d: %w", id, apperr.ErrContentChanged)
}

// requireAffected MySQL 在值未變動時回報 0 列，因此連線需設定 clientFoundRows
func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("取得 %s %d 更新筆數失敗: %w", kind, id, err)
	}
	if n == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}
