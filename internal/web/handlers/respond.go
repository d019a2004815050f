package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
)

// UserIDHeader 由前端閘道帶入的使用者識別
const UserIDHeader = "X-User-ID"

// maxBodyBytes 請求內容上限
const maxBodyBytes = 8 << 20

type errorBody struct {
	Code            string   `json:"code"`
	Message         string   `json:"message"`
	MissingSections []string `json:"missingSections,omitempty"`
}

// statusFor 將錯誤分類對應到 HTTP 狀態碼
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidFormat),
		errors.Is(err, apperr.ErrMissingSections),
		errors.Is(err, apperr.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrContentChanged):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrEvaluationParse),
		errors.Is(err, apperr.ErrOptimizationParse),
		errors.Is(err, apperr.ErrVariationParse),
		errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 輸出 {"error": {...}}。500 不對外透露內部訊息。
func writeError(w http.ResponseWriter, log *logger.Logger, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Code: apperr.Code(err), Message: err.Error(), MissingSections: apperr.MissingSections(err)}
	if status == http.StatusInternalServerError {
		log.Error("請求處理失敗", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = "internal server error"
	} else {
		log.Warn("請求失敗", "method", r.Method, "path", r.URL.Path, "status", status, "code", body.Code, "error", err)
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// decodeJSON optional 為 true 時允許空的請求內容
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Invalid("malformed request body: %v", err)
	}
	return nil
}

// pathID 解析路徑中的正整數參數
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func userID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("%s header is required", UserIDHeader)
	}
	return id, nil
}

func handlerLogger(log *logger.Logger, name string) *logger.Logger {
	if log == nil {
		log = logger.Nop()
	}
	return log.With("handler", name)
}
