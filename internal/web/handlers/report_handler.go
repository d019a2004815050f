package handlers

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/storage/reports"
)

// ReportReader 讀取已保存的批次報告
type ReportReader interface {
	ReadReport(relativePath string) ([]byte, error)
}

// ReportHandler 提供批次報告下載，路徑為 SaveReport 回傳的相對路徑
type ReportHandler struct {
	reports ReportReader
	log     *logger.Logger
}

func NewReportHandler(rr ReportReader, l *logger.Logger) *ReportHandler {
	if rr == nil {
		log.Panicln("ReportHandler：ReportReader 不得為空")
	}
	return &ReportHandler{reports: rr, log: handlerLogger(l, "ReportHandler")}
}

// ServeHTTP GET /api/reports/{path...}
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	relativePath := r.PathValue("path")
	if relativePath == "" || strings.HasSuffix(relativePath, "/") {
		writeError(w, h.log, r, apperr.Invalid("invalid report path %q", relativePath))
		return
	}

	data, err := h.reports.ReadReport(relativePath)
	switch {
	case err == nil:
	case errors.Is(err, reports.ErrOutsideBase):
		h.log.Warn("偵測到潛在的路徑遍歷嘗試", "path", relativePath)
		http.Error(w, "禁止存取", http.StatusForbidden)
		return
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, h.log, r, apperr.NotFound("Report", relativePath))
		return
	default:
		writeError(w, h.log, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Healthz GET /healthz
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
