package rubric

import (
	"encoding/json"
	"strings"

	"PromptStudio-admin/internal/apperr"
)

// Parse 是結構驗證器：文字必須是 JSON 物件，且 8 個必要區段皆存在且不為 null。
// 不呼叫任何外部服務，也不補預設值。
func Parse(text string) (*PromptDocument, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.ErrInvalidFormat
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &top); err != nil || top == nil {
		return nil, apperr.ErrInvalidFormat
	}

	var missing []string
	for _, key := range RequiredKeys() {
		if isAbsent(top[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &apperr.MissingSectionsError{Sections: missing}
	}

	doc := &PromptDocument{}
	fields := doc.fields()
	for key, value := range top {
		if p, ok := fields[key]; ok {
			if key == SectionToneAndAtmosphere && isAbsent(value) {
				continue
			}
			*p = value
			continue
		}
		if doc.Extensions == nil {
			doc.Extensions = make(map[string]json.RawMessage)
		}
		doc.Extensions[key] = value
	}
	return doc, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

// Completeness 子欄位完整性報告，只供參考，不影響結構驗證。
type Completeness struct {
	Complete      bool                `json:"complete"`
	MissingFields map[string][]string `json:"missingFields,omitempty"`
}

// CheckCompleteness 檢查每個必要區段是否含有預期的子欄位
func CheckCompleteness(doc *PromptDocument) Completeness {
	report := Completeness{Complete: true}
	for _, s := range Sections {
		missing := missingFields(doc.Section(s.Key), s.Fields)
		if len(missing) == 0 {
			continue
		}
		if report.MissingFields == nil {
			report.MissingFields = make(map[string][]string)
		}
		report.MissingFields[s.Key] = missing
		report.Complete = false
	}
	return report
}

func missingFields(raw json.RawMessage, fields []string) []string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return append([]string(nil), fields...)
	}
	var missing []string
	for _, f := range fields {
		if isEmptyValue(obj[f]) {
			missing = append(missing, f)
		}
	}
	return missing
}

func isEmptyValue(raw json.RawMessage) bool {
	if isAbsent(raw) {
		return true
	}
	switch strings.TrimSpace(string(raw)) {
	case `""`, "[]", "{}":
		return true
	}
	return false
}
