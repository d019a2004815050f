package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// 錯誤分類。訊息內容屬於對外介面的一部分，請勿任意修改。
var (
	ErrInvalidFormat     = errors.New("Invalid JSON format")
	ErrMissingSections   = errors.New("Missing required sections")
	ErrEvaluationParse   = errors.New("evaluation response does not match the expected shape")
	ErrOptimizationParse = errors.New("optimized prompt is not a valid structured prompt")
	ErrVariationParse    = errors.New("generated variation is not a valid structured prompt")
	ErrUpstreamTimeout   = errors.New("LLM call timed out")
	ErrUpstream          = errors.New("LLM call failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrContentChanged    = errors.New("prompt content changed during evaluation")
)

// MissingSectionsError 列出缺少的必要區段，順序與區段定義一致。
type MissingSectionsError struct {
	Sections []string
}

func (e *MissingSectionsError) Error() string {
	return fmt.Sprintf("Missing required sections: %s", strings.Join(e.Sections, ", "))
}

// Is 讓 errors.Is(err, ErrMissingSections) 成立。
func (e *MissingSectionsError) Is(target error) bool {
	return target == ErrMissingSections
}

// NotFound 產生 "<kind> <key> not found" 形式的錯誤。
func NotFound(kind string, key any) error {
	return fmt.Errorf("%s %v %w", kind, key, ErrNotFound)
}

// Invalid 包裝輸入驗證錯誤。
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Wrap 將底層錯誤歸類到指定的分類，兩者皆可被 errors.Is 判斷。
func Wrap(kind error, err error) error {
	if err == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Code 回傳穩定的錯誤代碼，供 API 回應與批次結果使用。
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidFormat):
		return "INVALID_FORMAT"
	case errors.Is(err, ErrMissingSections):
		return "MISSING_SECTIONS"
	case errors.Is(err, ErrEvaluationParse):
		return "EVALUATION_PARSE_ERROR"
	case errors.Is(err, ErrOptimizationParse):
		return "OPTIMIZATION_PARSE_ERROR"
	case errors.Is(err, ErrVariationParse):
		return "VARIATION_PARSE_ERROR"
	case errors.Is(err, ErrUpstreamTimeout):
		return "UPSTREAM_TIMEOUT"
	case errors.Is(err, ErrUpstream):
		return "UPSTREAM_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidRequest):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrContentChanged):
		return "CONTENT_CHANGED"
	default:
		return "INTERNAL"
	}
}

// MissingSections 若 err 為缺少區段錯誤，回傳缺少的區段名稱。
func MissingSections(err error) []string {
	var ms *MissingSectionsError
	if errors.As(err, &ms) {
		return ms.Sections
	}
	return nil
}
