package services

import (
	"context"
	"fmt"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
)

// CatalogService 目錄查詢與收藏
type CatalogService struct {
	store     PromptStore
	favorites FavoriteStore
	log       *logger.Logger
}

func NewCatalogService(store PromptStore, favorites FavoriteStore, log *logger.Logger) (*CatalogService, error) {
	if store == nil {
		return nil, fmt.Errorf("CatalogService：PromptStore 不得為空")
	}
	if favorites == nil {
		return nil, fmt.Errorf("CatalogService：FavoriteStore 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogService{store: store, favorites: favorites, log: log.With("component", "CatalogService")}, nil
}

// List 沒有任何條件時列出整個目錄
func (s *CatalogService) List(ctx context.Context, filter models.PromptFilter) ([]models.Prompt, error) {
	if filter == (models.PromptFilter{}) {
		return s.store.ListPrompts(ctx)
	}
	return s.store.SearchPrompts(ctx, filter)
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Prompt, error) {
	return loadPrompt(ctx, s.store, id)
}

// GetByNumber 依目錄序號查詢
func (s *CatalogService) GetByNumber(ctx context.Context, number int) (*models.Prompt, error) {
	p, err := s.store.GetPromptByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Prompt number", number)
	}
	return p, nil
}

// GetByNumbers 不存在的序號直接略過
func (s *CatalogService) GetByNumbers(ctx context.Context, numbers []int) ([]models.Prompt, error) {
	return s.store.GetPromptsByNumbers(ctx, numbers)
}

func (s *CatalogService) Stats(ctx context.Context) (*models.CatalogStats, error) {
	return s.store.GetPromptStats(ctx)
}

// AddFavorite 收藏前確認提示詞存在
func (s *CatalogService) AddFavorite(ctx context.Context, userID, promptID int64) error {
	if _, err := loadPrompt(ctx, s.store, promptID); err != nil {
		return err
	}
	if err := s.favorites.AddFavorite(ctx, userID, promptID); err != nil {
		return err
	}
	s.log.Info("新增收藏", "userId", userID, "promptId", promptID)
	return nil
}

func (s *CatalogService) RemoveFavorite(ctx context.Context, userID, promptID int64) error {
	return s.favorites.RemoveFavorite(ctx, userID, promptID)
}

func (s *CatalogService) Favorites(ctx context.Context, userID int64) ([]models.Prompt, error) {
	return s.favorites.ListFavoritePrompts(ctx, userID)
}
