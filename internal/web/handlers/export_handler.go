package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/rubric"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Prompts"

var exportHeaders = []string{
	"編號",
	"標題",
	"產業",
	"視覺風格",
	"情境類型",
	"長度(秒)",
	"品質分數",
	"等級",
}

// ExportHandler 匯出目錄為 CSV 或 XLSX，支援與列表相同的篩選條件
type ExportHandler struct {
	catalog Catalog
	log     *logger.Logger
	now     func() time.Time
}

// NewExportHandler 建立一個 ExportHandler 實例
func NewExportHandler(c Catalog, l *logger.Logger) *ExportHandler {
	if c == nil {
		log.Panicln("ExportHandler：Catalog 不得為空")
	}
	return &ExportHandler{catalog: c, log: handlerLogger(l, "ExportHandler"), now: time.Now}
}

// exportRow 未評分時分數與等級留白
func exportRow(p models.Prompt) []string {
	row := make([]string, len(exportHeaders))
	row[0] = strconv.Itoa(p.PromptNumber)
	row[1] = p.Title
	row[2] = p.IndustrySector
	row[3] = p.VisualStyle
	row[4] = p.ScenarioType
	row[5] = strconv.Itoa(p.DurationSeconds)
	if p.QualityScore.Valid {
		row[6] = strconv.FormatFloat(p.QualityScore.Float64, 'f', 1, 64)
		row[7] = rubric.Classify(p.QualityScore.Float64).Name()
	}
	return row
}

// ServeHTTP GET /export?format=csv|xlsx
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.log.Info("收到匯出請求", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeError(w, h.log, r, apperr.Invalid("unsupported export format %q", format))
		return
	}

	prompts, err := h.catalog.List(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.log.Info("匯出資料", "format", format, "rows", len(prompts))

	fileName := fmt.Sprintf("prompts_%s.%s", h.now().Format("2006-01-02"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))

	if format == "xlsx" {
		h.writeXLSX(w, prompts)
		return
	}
	h.writeCSV(w, prompts)
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, prompts []models.Prompt) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	// UTF-8 BOM
	_, _ = w.Write([]byte("\uFEFF"))

	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(exportHeaders); err != nil {
		h.log.Error("寫入 CSV 標題失敗", "error", err)
		return
	}
	for _, p := range prompts {
		if err := writer.Write(exportRow(p)); err != nil {
			h.log.Error("寫入 CSV 資料列失敗", "promptId", p.ID, "error", err)
			return
		}
	}
}

func (h *ExportHandler) writeXLSX(w http.ResponseWriter, prompts []models.Prompt) {
	f, err := buildWorkbook(prompts)
	if err != nil {
		h.log.Error("建立 XLSX 失敗", "error", err)
		http.Error(w, "無法產生匯出檔案", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			h.log.Warn("關閉 XLSX 失敗", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(w); err != nil {
		h.log.Error("寫出 XLSX 失敗", "error", err)
	}
}

// buildWorkbook 第一列為粗體標題，分數欄以數字儲存
func buildWorkbook(prompts []models.Prompt) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	header := make([]any, len(exportHeaders))
	for i, v := range exportHeaders {
		header[i] = v
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, p := range prompts {
		row := []any{p.PromptNumber, p.Title, p.IndustrySector, p.VisualStyle, p.ScenarioType, p.DurationSeconds, nil, ""}
		if p.QualityScore.Valid {
			row[6] = p.QualityScore.Float64
			row[7] = rubric.Classify(p.QualityScore.Float64).Name()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 40); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}
