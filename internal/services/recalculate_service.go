package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/rubric"
)

// RecalculateService 重新評分整個目錄並寫回 qualityScore (promptJson 不變)
type RecalculateService struct {
	store     PromptStore
	evaluator *EvaluationService
	reports   ReportStorage
	log       *logger.Logger

	// baseCtx 供 Run 使用，Stop 取消後進行中的批次會盡快結束
	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	lastRun *RecalculationReport
}

// RecalculationReport 一次重新評分的結果
type RecalculationReport struct {
	*BatchReport
	Persisted     int    `json:"persisted"`
	PersistFailed int    `json:"persistFailed"`
	SkippedStale  int    `json:"skippedStale"`
	ReportPath    string `json:"reportPath,omitempty"`
}

// NewRecalculateService reports 可為 nil，此時不保存報告
func NewRecalculateService(store PromptStore, evaluator *EvaluationService, reports ReportStorage, log *logger.Logger) (*RecalculateService, error) {
	if store == nil {
		return nil, fmt.Errorf("RecalculateService：PromptStore 不得為空")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("RecalculateService：EvaluationService 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &RecalculateService{
		store:     store,
		evaluator: evaluator,
		reports:   reports,
		log:       log.With("component", "RecalculateService"),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}, nil
}

// Run 供排程器與手動觸發呼叫
func (s *RecalculateService) Run() error {
	_, err := s.Recalculate(s.baseCtx)
	return err
}

// Stop 取消經由 Run 執行中與之後的重新評分
func (s *RecalculateService) Stop() {
	s.cancel()
}

// Recalculate 列出目錄、批次評分、寫回成功項目的分數並保存報告
func (s *RecalculateService) Recalculate(ctx context.Context) (*RecalculationReport, error) {
	prompts, err := s.store.ListPrompts(ctx)
	if err != nil {
		return nil, fmt.Errorf("讀取提示詞目錄失敗: %w", err)
	}

	var batch *BatchReport
	if len(prompts) == 0 {
		now := s.evaluator.now()
		batch = &BatchReport{StartedAt: now, FinishedAt: now, Results: []rubric.ItemResult{}}
		s.log.Info("目錄為空，略過重新評分")
	} else {
		items := make([]BatchItem, len(prompts))
		for i, p := range prompts {
			items[i] = BatchItem{Title: p.Title, PromptText: p.PromptJSON, PromptID: p.ID, Sector: p.IndustrySector}
		}
		if batch, err = s.evaluator.runBatch(ctx, items); err != nil {
			return nil, err
		}
	}

	report := &RecalculationReport{BatchReport: batch}
	for _, item := range batch.Results {
		if !item.Success || item.Score == nil {
			continue
		}
		evaluated := prompts[item.Index].PromptJSON
		if err := s.store.UpdatePromptScore(ctx, item.PromptID, evaluated, models.NewScore(*item.Score)); err != nil {
			if errors.Is(err, apperr.ErrContentChanged) {
				report.SkippedStale++
				s.log.Warn("評分期間內容已變更，略過寫回", "promptId", item.PromptID)
				continue
			}
			report.PersistFailed++
			s.log.Error("寫回品質分數失敗", "promptId", item.PromptID, "error", err)
			continue
		}
		report.Persisted++
	}

	if s.reports != nil && batch.RunID != "" {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("序列化批次報告失敗: %w", err)
		}
		path, err := s.reports.SaveReport("recalculate-"+batch.RunID, payload)
		if err != nil {
			s.log.Error("保存批次報告失敗", "runId", batch.RunID, "error", err)
		} else {
			report.ReportPath = path
		}
	}

	s.mu.Lock()
	s.lastRun = report
	s.mu.Unlock()

	s.log.Info("重新評分完成", "runId", batch.RunID, "total", batch.Summary.Total, "persisted", report.Persisted,
		"persistFailed", report.PersistFailed, "skippedStale", report.SkippedStale, "average", batch.Summary.AverageScore,
		"elapsed", batch.FinishedAt.Sub(batch.StartedAt).Round(time.Millisecond).String())
	return report, nil
}

// LastRun 最近一次完成的重新評分，尚未執行過時回傳 nil
func (s *RecalculateService) LastRun() *RecalculationReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
