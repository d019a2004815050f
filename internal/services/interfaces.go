package services

import (
	"context"

	"PromptStudio-admin/internal/models"
)

// PromptStore 提示詞目錄的存取介面。找不到資料時 Get 系列回傳 nil, nil。
type PromptStore interface {
	GetPromptByID(ctx context.Context, id int64) (*models.Prompt, error)
	GetPromptByNumber(ctx context.Context, number int) (*models.Prompt, error)
	GetPromptsByNumbers(ctx context.Context, numbers []int) ([]models.Prompt, error)
	ListPrompts(ctx context.Context) ([]models.Prompt, error)
	SearchPrompts(ctx context.Context, filter models.PromptFilter) ([]models.Prompt, error)
	GetPromptStats(ctx context.Context) (*models.CatalogStats, error)
	UpdatePromptContent(ctx context.Context, id int64, promptJSON string, score models.JsonNullScore) error
	// UpdatePromptScore 只在 promptJson 仍等於 evaluatedJSON 時寫入，否則回傳 apperr.ErrContentChanged
	UpdatePromptScore(ctx context.Context, id int64, evaluatedJSON string, score models.JsonNullScore) error
}

// FavoriteStore 收藏的存取介面
type FavoriteStore interface {
	AddFavorite(ctx context.Context, userID, promptID int64) error
	RemoveFavorite(ctx context.Context, userID, promptID int64) error
	ListFavoritePrompts(ctx context.Context, userID int64) ([]models.Prompt, error)
}

// UserPromptStore 使用者提示詞與版本紀錄的存取介面
type UserPromptStore interface {
	CreateUserPrompt(ctx context.Context, up *models.UserPrompt) (int64, error)
	ListUserPrompts(ctx context.Context, userID int64, folderID *int64) ([]models.UserPrompt, error)
	GetUserPrompt(ctx context.Context, userID, id int64) (*models.UserPrompt, error)
	UpdateUserPromptContent(ctx context.Context, userID, id int64, promptJSON string, score models.JsonNullScore) (*models.PromptVersion, error)
	DeleteUserPrompt(ctx context.Context, userID, id int64) error
	ListUserPromptVersions(ctx context.Context, userPromptID int64) ([]models.PromptVersion, error)
}

// ReportStorage 批次報告的保存介面
type ReportStorage interface {
	SaveReport(name string, payload []byte) (string, error)
	ReadReport(relativePath string) ([]byte, error)
}
