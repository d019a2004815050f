package scheduler

import (
	"fmt"
	"time"

	"PromptStudio-admin/internal/logger"

	"github.com/robfig/cron/v3"
)

const stopTimeout = 10 * time.Second

// Scheduler 以秒級 cron 表達式觸發重新評分
type Scheduler struct {
	cron           *cron.Cron
	recalculateJob *RecalculateJob
	log            *logger.Logger
}

// NewScheduler 表達式為空時不註冊任務；表達式無效時回傳錯誤
func NewScheduler(runner Runner, recalculateCronSpec string, log *logger.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("排程器：Runner 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "Scheduler")

	// 同一任務尚未結束時略過下一次觸發
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	job := NewRecalculateJob(runner, log)

	if recalculateCronSpec != "" {
		if _, err := c.AddJob(recalculateCronSpec, job); err != nil {
			return nil, fmt.Errorf("無法新增重新評分任務到排程器 (spec: %s): %w", recalculateCronSpec, err)
		}
		log.Info("重新評分任務已註冊", "spec", recalculateCronSpec)
	} else {
		log.Warn("未提供重新評分任務的 Cron 表達式，該任務將不會被排程")
	}

	return &Scheduler{cron: c, recalculateJob: job, log: log}, nil
}

// Start 非阻塞啟動
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("排程器已啟動", "entries", len(s.cron.Entries()))
}

// Stop 等待執行中的任務結束，最多 10 秒
func (s *Scheduler) Stop() {
	s.log.Info("正在停止排程器...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.log.Info("排程器已優雅停止，所有運行中任務已完成")
	case <-time.After(stopTimeout):
		s.log.Warn("排程器停止超時，可能仍有任務在執行")
	}
}
