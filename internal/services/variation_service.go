package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/rubric"
)

const (
	MinVariations = 1
	MaxVariations = 5
)

// VariationService 以 strict json_schema 產生提示詞變體，結果不寫入資料庫
type VariationService struct {
	store     PromptStore
	evaluator *EvaluationService
	log       *logger.Logger
}

func NewVariationService(store PromptStore, evaluator *EvaluationService, log *logger.Logger) (*VariationService, error) {
	if store == nil {
		return nil, fmt.Errorf("VariationService：PromptStore 不得為空")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("VariationService：EvaluationService 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &VariationService{store: store, evaluator: evaluator, log: log.With("component", "VariationService")}, nil
}

// VariationRequest 產生變體的參數
type VariationRequest struct {
	Count   int      `json:"count"`
	Aspects []string `json:"aspects"`
}

// Variation 單一變體
type Variation struct {
	Index  int             `json:"index"`
	Prompt json.RawMessage `json:"prompt"`
}

type VariationsResult struct {
	PromptID   int64       `json:"promptId"`
	Title      string      `json:"title"`
	Aspects    []string    `json:"aspects"`
	Variations []Variation `json:"variations"`
}

// normalizeAspects 去除重複並依字母序排列，未知的面向回傳 InvalidRequest
func normalizeAspects(aspects []string) ([]string, error) {
	seen := make(map[string]bool, len(aspects))
	var out []string
	for _, a := range aspects {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		if _, ok := rubric.VariationAspects[a]; !ok {
			return nil, apperr.Invalid("unknown variation aspect %q", a)
		}
		seen[a] = true
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, apperr.Invalid("at least one aspect is required")
	}
	sort.Strings(out)
	return out, nil
}

// GenerateVariations 依序產生 count 個變體，任一變體無法通過結構驗證即整體失敗
func (s *VariationService) GenerateVariations(ctx context.Context, promptID int64, req VariationRequest) (*VariationsResult, error) {
	if req.Count < MinVariations || req.Count > MaxVariations {
		return nil, apperr.Invalid("count must be between %d and %d, got %d", MinVariations, MaxVariations, req.Count)
	}
	aspects, err := normalizeAspects(req.Aspects)
	if err != nil {
		return nil, err
	}
	p, err := loadPrompt(ctx, s.store, promptID)
	if err != nil {
		return nil, err
	}
	source, err := rubric.Parse(p.PromptJSON)
	if err != nil {
		return nil, err
	}

	result := &VariationsResult{PromptID: p.ID, Title: p.Title, Aspects: aspects, Variations: make([]Variation, 0, req.Count)}
	for i := 0; i < req.Count; i++ {
		doc, err := s.generate(ctx, source, aspects, i)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("序列化變體失敗: %w", err)
		}
		result.Variations = append(result.Variations, Variation{Index: i, Prompt: raw})
	}
	s.log.Info("變體產生完成", "promptId", promptID, "count", req.Count, "aspects", strings.Join(aspects, ","))
	return result, nil
}

func (s *VariationService) generate(ctx context.Context, source *rubric.PromptDocument, aspects []string, index int) (*rubric.PromptDocument, error) {
	req := llm.Request{
		Messages:       llm.SystemAndUser(rubric.VariationSystemPrompt, rubric.BuildVariationUserPrompt(source, aspects, index)),
		ResponseFormat: llm.JSONSchema(rubric.VariationSchemaName, rubric.VariationSchema()),
	}
	content, err := llm.Complete(ctx, s.evaluator.llm, s.evaluator.timeout, req)
	if err != nil {
		return nil, err
	}
	doc, err := rubric.Parse(llm.CleanJSON(content))
	if err != nil {
		s.log.Warn("變體無法通過結構驗證", "index", index, "error", err, "snippet", llm.Snippet(content, 200))
		return nil, fmt.Errorf("%w: variation %d: %v", apperr.ErrVariationParse, index, err)
	}
	return doc, nil
}
