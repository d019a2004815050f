package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/rubric"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EvaluationService 結構驗證、LLM 評分與批次評分
type EvaluationService struct {
	store       PromptStore
	llm         llm.Invoker
	timeout     time.Duration
	concurrency int
	maxBatch    int
	log         *logger.Logger
	now         func() time.Time
}

// NewEvaluationService 建立 EvaluationService 實例
func NewEvaluationService(cfg *config.Config, store PromptStore, invoker llm.Invoker, log *logger.Logger) (*EvaluationService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("EvaluationService：設定不得為空")
	}
	if store == nil {
		return nil, fmt.Errorf("EvaluationService：PromptStore 不得為空")
	}
	if invoker == nil {
		return nil, fmt.Errorf("EvaluationService：LLM 客戶端不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &EvaluationService{
		store:       store,
		llm:         invoker,
		timeout:     cfg.LLM.CallTimeout(),
		concurrency: max(cfg.Evaluation.BatchConcurrency, 1),
		maxBatch:    cfg.Evaluation.MaxBatchSize,
		log:         log.With("component", "EvaluationService"),
		now:         time.Now,
	}
	s.log.Info("EvaluationService 初始化完成", "concurrency", s.concurrency, "maxBatch", s.maxBatch, "timeout", s.timeout.String())
	return s, nil
}

// ValidateInput 單筆驗證。PromptText 為空且 PromptID > 0 時從目錄讀取。
type ValidateInput struct {
	PromptText string `json:"promptText"`
	PromptID   int64  `json:"promptId"`
	Title      string `json:"title"`
	Persist    bool   `json:"persist"`
}

// ValidateResult 單筆驗證結果
type ValidateResult struct {
	PromptID   int64              `json:"promptId,omitempty"`
	Title      string             `json:"title,omitempty"`
	Evaluation *rubric.Evaluation `json:"evaluation"`
	Persisted  bool               `json:"persisted"`
}

// Validate 結構驗證失敗時不會呼叫 LLM
func (s *EvaluationService) Validate(ctx context.Context, in ValidateInput) (*ValidateResult, error) {
	if in.Persist && (in.PromptID <= 0 || strings.TrimSpace(in.PromptText) != "") {
		return nil, apperr.Invalid("persist is only supported when evaluating a stored prompt by promptId")
	}
	text, meta, err := s.resolve(ctx, in.PromptText, in.PromptID, in.Title)
	if err != nil {
		return nil, err
	}
	doc, err := rubric.Parse(text)
	if err != nil {
		return nil, err
	}
	eval, err := s.Evaluate(ctx, doc, meta)
	if err != nil {
		return nil, err
	}

	result := &ValidateResult{PromptID: in.PromptID, Title: meta.Title, Evaluation: eval}
	if in.Persist {
		if err := s.store.UpdatePromptScore(ctx, in.PromptID, text, models.NewScore(eval.OverallScore)); err != nil {
			return nil, err
		}
		result.Persisted = true
		s.log.Info("品質分數已寫回", "promptId", in.PromptID, "score", eval.OverallScore)
	}
	return result, nil
}

// Analyze 評分目錄中的提示詞，persist 為 true 時寫回分數
func (s *EvaluationService) Analyze(ctx context.Context, promptID int64, persist bool) (*ValidateResult, error) {
	return s.Validate(ctx, ValidateInput{PromptID: promptID, Persist: persist})
}

func (s *EvaluationService) resolve(ctx context.Context, text string, promptID int64, title string) (string, rubric.PromptMeta, error) {
	meta := rubric.PromptMeta{Title: title}
	if strings.TrimSpace(text) != "" || promptID <= 0 {
		return text, meta, nil
	}
	p, err := loadPrompt(ctx, s.store, promptID)
	if err != nil {
		return "", meta, err
	}
	if meta.Title == "" {
		meta.Title = p.Title
	}
	meta.Sector = p.IndustrySector
	return p.PromptJSON, meta, nil
}

// Evaluate 對已通過結構驗證的提示詞發出一次 strict json_schema 評分呼叫
func (s *EvaluationService) Evaluate(ctx context.Context, doc *rubric.PromptDocument, meta rubric.PromptMeta) (*rubric.Evaluation, error) {
	req := llm.Request{
		Messages:       llm.SystemAndUser(rubric.EvaluationSystemPrompt, rubric.BuildEvaluationUserPrompt(meta, doc)),
		ResponseFormat: llm.JSONSchema(rubric.EvaluationSchemaName, rubric.EvaluationSchema()),
	}
	started := s.now()
	content, err := llm.Complete(ctx, s.llm, s.timeout, req)
	if err != nil {
		s.log.Warn("評分呼叫失敗", "title", meta.Title, "error", err)
		return nil, err
	}
	model, err := rubric.DecodeEvaluation([]byte(llm.CleanJSON(content)))
	if err != nil {
		s.log.Warn("評分回應格式錯誤", "title", meta.Title, "error", err, "snippet", llm.Snippet(content, 200))
		return nil, err
	}
	eval := rubric.Score(doc, model)
	s.log.Debug("評分完成", "title", meta.Title, "score", eval.OverallScore, "modelScore", eval.ModelScore,
		"penalties", len(eval.Penalties), "elapsed", time.Since(started).String())
	return eval, nil
}

// BatchItem 批次中的一筆提示詞
type BatchItem struct {
	Title      string `json:"title"`
	PromptText string `json:"promptText"`
	PromptID   int64  `json:"promptId"`
	Sector     string `json:"sector,omitempty"`
}

// BatchReport 批次評分報告，Results 順序與輸入相同
type BatchReport struct {
	RunID      string              `json:"runId"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Summary    rubric.Summary      `json:"summary"`
	Results    []rubric.ItemResult `json:"results"`
}

// ValidateBatch 單筆失敗不會中斷批次；只有 ctx 取消時提早結束
func (s *EvaluationService) ValidateBatch(ctx context.Context, items []BatchItem) (*BatchReport, error) {
	if len(items) == 0 {
		return nil, apperr.Invalid("prompts must not be empty")
	}
	if s.maxBatch > 0 && len(items) > s.maxBatch {
		return nil, apperr.Invalid("batch of %d prompts exceeds the limit of %d", len(items), s.maxBatch)
	}
	return s.runBatch(ctx, items)
}

// runBatch 以 errgroup 限制併發，結果依索引寫入
func (s *EvaluationService) runBatch(ctx context.Context, items []BatchItem) (*BatchReport, error) {
	report := &BatchReport{RunID: uuid.NewString(), StartedAt: s.now()}
	log := s.log.With("runId", report.RunID)
	log.Info("批次評分開始", "total", len(items), "concurrency", s.concurrency)

	results := make([]rubric.ItemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.evaluateItem(gctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("批次評分中斷: %w", err)
	}

	report.Results = results
	report.Summary = rubric.Summarize(results)
	report.FinishedAt = s.now()
	log.Info("批次評分完成", "successful", report.Summary.Successful, "failed", report.Summary.Failed,
		"average", report.Summary.AverageScore, "elapsed", report.FinishedAt.Sub(report.StartedAt).String())
	return report, nil
}

func (s *EvaluationService) evaluateItem(ctx context.Context, index int, item BatchItem) rubric.ItemResult {
	result := rubric.ItemResult{Index: index, PromptID: item.PromptID, Title: item.Title}
	text, meta, err := s.resolve(ctx, item.PromptText, item.PromptID, item.Title)
	if err == nil {
		result.Title = meta.Title
		if meta.Sector == "" {
			meta.Sector = item.Sector
		}
		var doc *rubric.PromptDocument
		if doc, err = rubric.Parse(text); err == nil {
			var eval *rubric.Evaluation
			if eval, err = s.Evaluate(ctx, doc, meta); err == nil {
				result.Succeeded(eval)
				return result
			}
		}
	}
	result.Error = err.Error()
	result.ErrorCode = apperr.Code(err)
	result.MissingSections = apperr.MissingSections(err)
	s.log.Warn("批次項目評分失敗", "index", index, "title", result.Title, "code", result.ErrorCode, "error", err)
	return result
}

// loadPrompt 找不到時回傳 NotFound
func loadPrompt(ctx context.Context, store PromptStore, id int64) (*models.Prompt, error) {
	p, err := store.GetPromptByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Prompt", id)
	}
	return p, nil
}
