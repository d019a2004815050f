package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PromptDocument 已通過結構驗證的提示詞。8 個必要區段一定存在，
// 其他頂層鍵 (tone_and_atmosphere 以外) 保留在 Extensions。
type PromptDocument struct {
	Shot                    json.RawMessage
	Subject                 json.RawMessage
	Action                  json.RawMessage
	Scene                   json.RawMessage
	Cinematography          json.RawMessage
	Audio                   json.RawMessage
	VisualRules             json.RawMessage
	TechnicalSpecifications json.RawMessage

	ToneAndAtmosphere json.RawMessage
	Extensions        map[string]json.RawMessage
}

func (d *PromptDocument) fields() map[string]*json.RawMessage {
	return map[string]*json.RawMessage{
		SectionShot:                    &d.Shot,
		SectionSubject:                 &d.Subject,
		SectionAction:                  &d.Action,
		SectionScene:                   &d.Scene,
		SectionCinematography:          &d.Cinematography,
		SectionAudio:                   &d.Audio,
		SectionVisualRules:             &d.VisualRules,
		SectionTechnicalSpecifications: &d.TechnicalSpecifications,
		SectionToneAndAtmosphere:       &d.ToneAndAtmosphere,
	}
}

// Section 取得區段原始 JSON，不存在時回傳 nil
func (d *PromptDocument) Section(key string) json.RawMessage {
	if p, ok := d.fields()[key]; ok {
		return *p
	}
	return d.Extensions[key]
}

// Keys 回傳所有頂層鍵：必要區段依定義順序，其後為選用區段與擴充鍵 (字母序)
func (d *PromptDocument) Keys() []string {
	keys := RequiredKeys()
	if len(d.ToneAndAtmosphere) > 0 {
		keys = append(keys, SectionToneAndAtmosphere)
	}
	ext := make([]string, 0, len(d.Extensions))
	for k := range d.Extensions {
		ext = append(ext, k)
	}
	sort.Strings(ext)
	return append(keys, ext...)
}

// SameKeys 判斷兩份提示詞的頂層鍵集合是否完全相同
func SameKeys(a, b *PromptDocument) bool {
	ka, kb := a.Keys(), b.Keys()
	if len(ka) != len(kb) {
		return false
	}
	sa, sb := append([]string(nil), ka...), append([]string(nil), kb...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// CoreSections 只包含 8 個必要區段的複本，變體產生時使用
func (d *PromptDocument) CoreSections() *PromptDocument {
	return &PromptDocument{
		Shot:                    d.Shot,
		Subject:                 d.Subject,
		Action:                  d.Action,
		Scene:                   d.Scene,
		Cinematography:          d.Cinematography,
		Audio:                   d.Audio,
		VisualRules:             d.VisualRules,
		TechnicalSpecifications: d.TechnicalSpecifications,
	}
}

// MarshalJSON 依 Keys 的順序輸出，保留所有鍵
func (d PromptDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(key)
		buf.Write(name)
		buf.WriteByte(':')
		value := d.Section(key)
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		if err := json.Compact(&buf, value); err != nil {
			return nil, fmt.Errorf("區段 %s 不是有效的 JSON: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Indent 輸出縮排過的 JSON，放進 LLM 指令時使用
func (d *PromptDocument) Indent() string {
	raw, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

// sectionStrings 收集區段內所有字串值 (不含鍵名)
func sectionStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(node any) {
		switch t := node.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		}
	}
	walk(v)
	return out
}

// allStrings 收集整份提示詞的字串值
func (d *PromptDocument) allStrings() []string {
	var out []string
	for _, key := range d.Keys() {
		out = append(out, sectionStrings(d.Section(key))...)
	}
	return out
}
