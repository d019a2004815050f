package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/models"
)

const userPromptColumns = `id, userId, sourcePromptId, folderId, title, description, tags, promptJson, qualityScore, createdAt, updatedAt`

func scanUserPrompt(row rowScanner) (*models.UserPrompt, error) {
	var up models.UserPrompt
	var sourceID, folderID sql.NullInt64
	var tags []byte
	err := row.Scan(&up.ID, &up.UserID, &sourceID, &folderID, &up.Title, &up.Description.NullString, &tags,
		&up.PromptJSON, &up.QualityScore.NullFloat64, &up.CreatedAt, &up.UpdatedAt)
	if err != nil {
		return nil, err
	}
	up.SourcePromptID = sourceID.Int64
	if folderID.Valid {
		v := folderID.Int64
		up.FolderID = &v
	}
	if tags != nil {
		up.Tags = copyBytes(tags)
	}
	return &up, nil
}

func nullTags(tags []byte) any {
	if len(tags) == 0 {
		return nil
	}
	return string(tags)
}

// CreateUserPrompt 新增使用者提示詞並回填 ID
func (s *MySQLStore) CreateUserPrompt(ctx context.Context, up *models.UserPrompt) (int64, error) {
	if up == nil {
		return 0, fmt.Errorf("傳入的 userPrompt 物件不得為 nil")
	}
	var sourceID sql.NullInt64
	if up.SourcePromptID > 0 {
		sourceID = sql.NullInt64{Int64: up.SourcePromptID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_prompts (userId, sourcePromptId, folderId, title, description, tags, promptJson, qualityScore, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		up.UserID, sourceID, up.FolderID, up.Title, up.Description.NullString, nullTags(up.Tags), up.PromptJSON, up.QualityScore.NullFloat64)
	if err != nil {
		return 0, fmt.Errorf("新增使用者提示詞失敗 (user %d): %w", up.UserID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("獲取新使用者提示詞 ID 失敗: %w", err)
	}
	up.ID = id
	s.log.Info("新增使用者提示詞", "id", id, "userId", up.UserID, "sourcePromptId", up.SourcePromptID)
	return id, nil
}

// ListUserPrompts folderID 為 nil 時列出全部
func (s *MySQLStore) ListUserPrompts(ctx context.Context, userID int64, folderID *int64) ([]models.UserPrompt, error) {
	query := `SELECT ` + userPromptColumns + ` FROM user_prompts WHERE userId = ?`
	args := []any{userID}
	if folderID != nil {
		query += " AND folderId = ?"
		args = append(args, *folderID)
	}
	query += " ORDER BY updatedAt DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查詢使用者 %d 的提示詞失敗: %w", userID, err)
	}
	defer rows.Close()
	list := make([]models.UserPrompt, 0)
	for rows.Next() {
		up, err := scanUserPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("掃描使用者提示詞失敗: %w", err)
		}
		list = append(list, *up)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("處理使用者提示詞結果集時發生錯誤: %w", err)
	}
	return list, nil
}

// GetUserPrompt 只回傳屬於該使用者的資料，找不到時回傳 nil, nil
func (s *MySQLStore) GetUserPrompt(ctx context.Context, userID, id int64) (*models.UserPrompt, error) {
	query := `SELECT ` + userPromptColumns + ` FROM user_prompts WHERE id = ? AND userId = ?`
	up, err := scanUserPrompt(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("查詢使用者提示詞 %d 失敗: %w", id, err)
	}
	return up, nil
}

// UpdateUserPromptContent 先把目前內容寫入版本紀錄，再更新內容，兩者在同一交易內
func (s *MySQLStore) UpdateUserPromptContent(ctx context.Context, userID, id int64, promptJSON string, score models.JsonNullScore) (*models.PromptVersion, error) {
	var version models.PromptVersion
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var currentJSON string
		var currentScore sql.NullFloat64
		err := tx.QueryRowContext(ctx, `SELECT promptJson, qualityScore FROM user_prompts WHERE id = ? AND userId = ? FOR UPDATE`, id, userID).
			Scan(&currentJSON, &currentScore)
		if err == sql.ErrNoRows {
			return apperr.NotFound("User prompt", id)
		}
		if err != nil {
			return fmt.Errorf("鎖定使用者提示詞 %d 失敗: %w", id, err)
		}

		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(versionNumber), 0) + 1 FROM user_prompt_versions WHERE userPromptId = ?`, id).Scan(&next); err != nil {
			return fmt.Errorf("查詢使用者提示詞 %d 的版本號失敗: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO user_prompt_versions (userPromptId, versionNumber, promptJson, qualityScore, createdAt) VALUES (?, ?, ?, ?, NOW())`,
			id, next, currentJSON, currentScore)
		if err != nil {
			return fmt.Errorf("寫入使用者提示詞 %d 的版本紀錄失敗: %w", id, err)
		}
		versionID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("獲取版本紀錄 ID 失敗: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE user_prompts SET promptJson = ?, qualityScore = ?, updatedAt = NOW() WHERE id = ?`,
			promptJSON, score.NullFloat64, id); err != nil {
			return fmt.Errorf("更新使用者提示詞 %d 失敗: %w", id, err)
		}
		version = models.PromptVersion{
			ID:            versionID,
			UserPromptID:  id,
			VersionNumber: next,
			PromptJSON:    currentJSON,
			QualityScore:  models.JsonNullScore{NullFloat64: currentScore},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("使用者提示詞已更新", "id", id, "userId", userID, "archivedVersion", version.VersionNumber)
	return &version, nil
}

// DeleteUserPrompt 連同版本紀錄一起刪除
func (s *MySQLStore) DeleteUserPrompt(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM user_prompts WHERE id = ? AND userId = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("刪除使用者提示詞 %d 失敗: %w", id, err)
		}
		if err := requireAffected(res, "User prompt", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_prompt_versions WHERE userPromptId = ?`, id); err != nil {
			return fmt.Errorf("刪除使用者提示詞 %d 的版本紀錄失敗: %w", id, err)
		}
		return nil
	})
}

// ListUserPromptVersions 新版本在前
func (s *MySQLStore) ListUserPromptVersions(ctx context.Context, userPromptID int64) ([]models.PromptVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, userPromptId, versionNumber, promptJson, qualityScore, createdAt FROM user_prompt_versions WHERE userPromptId = ? ORDER BY versionNumber DESC`,
		userPromptID)
	if err != nil {
		return nil, fmt.Errorf("查詢使用者提示詞 %d 的版本失敗: %w", userPromptID, err)
	}
	defer rows.Close()
	versions := make([]models.PromptVersion, 0)
	for rows.Next() {
		var v models.PromptVersion
		if err := rows.Scan(&v.ID, &v.UserPromptID, &v.VersionNumber, &v.PromptJSON, &v.QualityScore.NullFloat64, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("掃描版本紀錄失敗: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("處理版本紀錄結果集時發生錯誤: %w", err)
	}
	return versions, nil
}
