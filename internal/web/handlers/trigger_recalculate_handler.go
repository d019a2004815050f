package handlers

import (
	"log"
	"net/http"
	"sync"

	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/services"
)

// RecalculateRunner 重新評分整個目錄
type RecalculateRunner interface {
	Run() error
	LastRun() *services.RecalculationReport
}

// TriggerRecalculateHandler 手動觸發重新評分，同時間只允許一個執行中的任務
type TriggerRecalculateHandler struct {
	runner    RecalculateRunner
	log       *logger.Logger
	mu        sync.Mutex
	isRunning bool
	wg        sync.WaitGroup
}

func NewTriggerRecalculateHandler(runner RecalculateRunner, l *logger.Logger) *TriggerRecalculateHandler {
	if runner == nil {
		log.Panicln("TriggerRecalculateHandler：RecalculateRunner 不得為空")
	}
	return &TriggerRecalculateHandler{runner: runner, log: handlerLogger(l, "TriggerRecalculateHandler")}
}

func (h *TriggerRecalculateHandler) running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isRunning
}

// ServeHTTP POST 觸發；GET 回傳是否執行中與最近一次的結果摘要
func (h *TriggerRecalculateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.log.Info("收到請求", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

	switch r.Method {
	case http.MethodGet:
		status := map[string]any{"running": h.running()}
		if last := h.runner.LastRun(); last != nil {
			status["lastRun"] = map[string]any{
				"runId":         last.RunID,
				"finishedAt":    last.FinishedAt,
				"summary":       last.Summary,
				"persisted":     last.Persisted,
				"persistFailed": last.PersistFailed,
				"reportPath":    last.ReportPath,
			}
		}
		writeJSON(w, http.StatusOK, status)
		return
	case http.MethodPost:
	default:
		h.log.Warn("收到不支援的請求方法，已拒絕", "method", r.Method)
		http.Error(w, "僅支援 GET 與 POST 方法", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		h.log.Warn("重新評分已在進行中，拒絕新的觸發")
		writeJSON(w, http.StatusConflict, map[string]errorBody{"error": {Code: "BUSY", Message: "重新評分任務已在進行中，請稍候。"}})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			h.isRunning = false
			h.mu.Unlock()
			h.log.Info("手動觸發的重新評分 goroutine 已結束")
		}()

		h.log.Info("開始執行手動觸發的重新評分任務...")
		if err := h.runner.Run(); err != nil {
			h.log.Error("手動觸發的重新評分任務執行失敗", "error", err)
			return
		}
		h.log.Info("手動觸發的重新評分任務執行成功")
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "重新評分已觸發，正在背景執行。請稍後查看結果。"})
}

// Wait 等待背景任務結束，關閉伺服器時使用
func (h *TriggerRecalculateHandler) Wait() {
	h.wg.Wait()
}
