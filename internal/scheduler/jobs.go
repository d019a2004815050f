package scheduler

import (
	"time"

	"PromptStudio-admin/internal/logger"
)

// Runner 可由排程器觸發的工作，例如 RecalculateService
type Runner interface {
	Run() error
}

// RecalculateJob 定期重新評分目錄
type RecalculateJob struct {
	runner Runner
	log    *logger.Logger
}

// NewRecalculateJob 建立一個 RecalculateJob
func NewRecalculateJob(runner Runner, log *logger.Logger) *RecalculateJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RecalculateJob{runner: runner, log: log.With("job", "recalculate")}
}

// Run 實現 cron.Job 介面 (github.com/robfig/cron/v3)
func (j *RecalculateJob) Run() {
	started := time.Now()
	j.log.Info("執行排程任務 - 重新評分目錄")
	if err := j.runner.Run(); err != nil {
		j.log.Error("重新評分排程任務執行失敗", "error", err, "elapsed", time.Since(started).String())
		return
	}
	j.log.Info("重新評分排程任務執行完成", "elapsed", time.Since(started).String())
}
