package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/rubric"
)

// UserPromptService 「我的提示詞」：從目錄複製、編輯與版本紀錄
type UserPromptService struct {
	catalog PromptStore
	store   UserPromptStore
	log     *logger.Logger
}

func NewUserPromptService(catalog PromptStore, store UserPromptStore, log *logger.Logger) (*UserPromptService, error) {
	if catalog == nil {
		return nil, fmt.Errorf("UserPromptService：PromptStore 不得為空")
	}
	if store == nil {
		return nil, fmt.Errorf("UserPromptService：UserPromptStore 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UserPromptService{catalog: catalog, store: store, log: log.With("component", "UserPromptService")}, nil
}

// SaveInput 建立使用者提示詞。PromptJSON 為空時複製來源提示詞的內容與分數。
type SaveInput struct {
	SourcePromptID int64    `json:"sourcePromptId"`
	FolderID       *int64   `json:"folderId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	PromptJSON     string   `json:"promptJson"`
}

// UpdateInput 更新內容。QualityScore 為 nil 時分數重設為未評分。
type UpdateInput struct {
	PromptJSON   string   `json:"promptJson"`
	QualityScore *float64 `json:"qualityScore"`
}

// Save 複製後與來源不再同步
func (s *UserPromptService) Save(ctx context.Context, userID int64, in SaveInput) (*models.UserPrompt, error) {
	if userID <= 0 {
		return nil, apperr.Invalid("user id is required")
	}
	up := &models.UserPrompt{
		UserID:         userID,
		SourcePromptID: in.SourcePromptID,
		FolderID:       in.FolderID,
		Title:          strings.TrimSpace(in.Title),
		Description:    models.NewJsonNullString(strings.TrimSpace(in.Description)),
	}

	if strings.TrimSpace(in.PromptJSON) == "" {
		if in.SourcePromptID <= 0 {
			return nil, apperr.Invalid("promptJson or sourcePromptId is required")
		}
		source, err := loadPrompt(ctx, s.catalog, in.SourcePromptID)
		if err != nil {
			return nil, err
		}
		up.PromptJSON = source.PromptJSON
		up.QualityScore = source.QualityScore
		if up.Title == "" {
			up.Title = source.Title
		}
	} else {
		doc, err := rubric.Parse(in.PromptJSON)
		if err != nil {
			return nil, err
		}
		up.PromptJSON = doc.Indent()
	}
	if up.Title == "" {
		return nil, apperr.Invalid("title is required")
	}
	if len(in.Tags) > 0 {
		tags, err := json.Marshal(in.Tags)
		if err != nil {
			return nil, fmt.Errorf("序列化標籤失敗: %w", err)
		}
		up.Tags = tags
	}

	if _, err := s.store.CreateUserPrompt(ctx, up); err != nil {
		return nil, err
	}
	return up, nil
}

func (s *UserPromptService) List(ctx context.Context, userID int64, folderID *int64) ([]models.UserPrompt, error) {
	return s.store.ListUserPrompts(ctx, userID, folderID)
}

func (s *UserPromptService) Get(ctx context.Context, userID, id int64) (*models.UserPrompt, error) {
	up, err := s.store.GetUserPrompt(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if up == nil {
		return nil, apperr.NotFound("User prompt", id)
	}
	return up, nil
}

// Update 新內容需通過結構驗證；舊內容寫入版本紀錄
func (s *UserPromptService) Update(ctx context.Context, userID, id int64, in UpdateInput) (*models.UserPrompt, error) {
	doc, err := rubric.Parse(in.PromptJSON)
	if err != nil {
		return nil, err
	}
	var score models.JsonNullScore
	if in.QualityScore != nil {
		if *in.QualityScore < 0 || *in.QualityScore > 10 {
			return nil, apperr.Invalid("qualityScore must be between 0 and 10")
		}
		score = models.NewScore(*in.QualityScore)
	}
	version, err := s.store.UpdateUserPromptContent(ctx, userID, id, doc.Indent(), score)
	if err != nil {
		return nil, err
	}
	s.log.Info("使用者提示詞已更新", "id", id, "userId", userID, "archivedVersion", version.VersionNumber)
	return s.Get(ctx, userID, id)
}

func (s *UserPromptService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteUserPrompt(ctx, userID, id); err != nil {
		return err
	}
	s.log.Info("使用者提示詞已刪除", "id", id, "userId", userID)
	return nil
}

// Versions 先確認擁有權再列出版本
func (s *UserPromptService) Versions(ctx context.Context, userID, id int64) ([]models.PromptVersion, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.ListUserPromptVersions(ctx, id)
}
