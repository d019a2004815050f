package llm

import (
	"strings"
	"unicode/utf8"
)

// CleanJSON 清理模型回應中可能夾帶的 markdown 代碼塊、前後說明文字與控制字元，
// 回傳最外層的 JSON 物件或陣列。
func CleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "\uFEFF")

	// 移除 markdown 代碼塊標記
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```JSON")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	// 尋找最外層的 JSON 結構
	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	firstBracket := strings.Index(cleaned, "[")
	lastBracket := strings.LastIndex(cleaned, "]")
	isObject := firstBrace != -1 && lastBrace > firstBrace
	isArray := firstBracket != -1 && lastBracket > firstBracket

	switch {
	case isObject && (!isArray || firstBrace < firstBracket):
		cleaned = cleaned[firstBrace : lastBrace+1]
	case isArray:
		cleaned = cleaned[firstBracket : lastBracket+1]
	}

	if !utf8.ValidString(cleaned) {
		cleaned = strings.ToValidUTF8(cleaned, "")
	}

	// 移除 \t \n \r 以外的控制字元
	var sb strings.Builder
	sb.Grow(len(cleaned))
	for _, r := range cleaned {
		if (r < 32 && r != '\t' && r != '\n' && r != '\r') || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

// Snippet 截斷過長字串供日誌使用，不會切斷多位元組字元
func Snippet(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
