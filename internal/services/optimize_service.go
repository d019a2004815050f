package services

import (
	"context"
	"encoding/json"
	"fmt"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/rubric"
)

// OptimizeService 改寫低分提示詞並重新評分
type OptimizeService struct {
	store     PromptStore
	evaluator *EvaluationService
	log       *logger.Logger
}

// NewOptimizeService 與 EvaluationService 共用 LLM 客戶端與逾時設定
func NewOptimizeService(store PromptStore, evaluator *EvaluationService, log *logger.Logger) (*OptimizeService, error) {
	if store == nil {
		return nil, fmt.Errorf("OptimizeService：PromptStore 不得為空")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("OptimizeService：EvaluationService 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OptimizeService{store: store, evaluator: evaluator, log: log.With("component", "OptimizeService")}, nil
}

// OptimizeResult 優化前後的內容與評分
type OptimizeResult struct {
	PromptID         int64              `json:"promptId"`
	Title            string             `json:"title"`
	Original         json.RawMessage    `json:"original"`
	Optimized        json.RawMessage    `json:"optimized"`
	ScoreBefore      float64            `json:"scoreBefore"`
	ScoreAfter       float64            `json:"scoreAfter"`
	EvaluationBefore *rubric.Evaluation `json:"evaluationBefore"`
	EvaluationAfter  *rubric.Evaluation `json:"evaluationAfter"`
	Applied          bool               `json:"applied"`
}

// Optimize 任一步驟失敗時資料列維持原狀；apply 為 true 才同時寫入新內容與新分數
func (s *OptimizeService) Optimize(ctx context.Context, promptID int64, apply bool) (*OptimizeResult, error) {
	p, err := loadPrompt(ctx, s.store, promptID)
	if err != nil {
		return nil, err
	}
	original, err := rubric.Parse(p.PromptJSON)
	if err != nil {
		return nil, err
	}
	meta := rubric.PromptMeta{Title: p.Title, Sector: p.IndustrySector}
	log := s.log.With("promptId", promptID)

	before, err := s.evaluator.Evaluate(ctx, original, meta)
	if err != nil {
		return nil, err
	}
	log.Info("優化前評分", "score", before.OverallScore, "tier", before.Tier)

	optimized, err := s.rewrite(ctx, original)
	if err != nil {
		return nil, err
	}
	after, err := s.evaluator.Evaluate(ctx, optimized, meta)
	if err != nil {
		return nil, err
	}
	log.Info("優化後評分", "score", after.OverallScore, "tier", after.Tier, "delta", rubric.Round1(after.OverallScore-before.OverallScore))

	originalJSON, err := json.Marshal(original)
	if err != nil {
		return nil, fmt.Errorf("序列化原始提示詞失敗: %w", err)
	}
	optimizedJSON, err := json.Marshal(optimized)
	if err != nil {
		return nil, fmt.Errorf("序列化優化後提示詞失敗: %w", err)
	}

	result := &OptimizeResult{
		PromptID:         p.ID,
		Title:            p.Title,
		Original:         originalJSON,
		Optimized:        optimizedJSON,
		ScoreBefore:      before.OverallScore,
		ScoreAfter:       after.OverallScore,
		EvaluationBefore: before,
		EvaluationAfter:  after,
	}
	if apply {
		if err := s.store.UpdatePromptContent(ctx, p.ID, optimized.Indent(), models.NewScore(after.OverallScore)); err != nil {
			return nil, err
		}
		result.Applied = true
		log.Info("優化結果已寫回", "score", after.OverallScore)
	}
	return result, nil
}

// rewrite 要求模型輸出完整 JSON，頂層鍵集合必須與原稿相同
func (s *OptimizeService) rewrite(ctx context.Context, original *rubric.PromptDocument) (*rubric.PromptDocument, error) {
	req := llm.Request{
		Messages:       llm.SystemAndUser(rubric.OptimizationSystemPrompt, rubric.BuildOptimizationUserPrompt(original)),
		ResponseFormat: llm.JSONObject(),
	}
	content, err := llm.Complete(ctx, s.evaluator.llm, s.evaluator.timeout, req)
	if err != nil {
		return nil, err
	}
	optimized, err := rubric.Parse(llm.CleanJSON(content))
	if err != nil {
		s.log.Warn("優化回應無法通過結構驗證", "error", err, "snippet", llm.Snippet(content, 200))
		return nil, fmt.Errorf("%w: %v", apperr.ErrOptimizationParse, err)
	}
	if !rubric.SameKeys(original, optimized) {
		return nil, fmt.Errorf("%w: top-level keys changed from %v to %v", apperr.ErrOptimizationParse, original.Keys(), optimized.Keys())
	}
	return optimized, nil
}
