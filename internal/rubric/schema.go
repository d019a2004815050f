package rubric

import "sort"

// 結構化輸出使用的 JSON Schema，strict 模式要求所有屬性皆列為 required
// 且 additionalProperties 為 false。

const (
	EvaluationSchemaName = "prompt_evaluation"
	VariationSchemaName  = "prompt_variation"
)

func strictObject(props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             orderedKeys(props),
		"additionalProperties": false,
	}
}

// orderedKeys 必要區段依定義順序，其他鍵依字母序
func orderedKeys(props map[string]any) []string {
	var keys []string
	for _, k := range RequiredKeys() {
		if _, ok := props[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range props {
		if _, ok := Lookup(k); !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func stringProp() map[string]any { return map[string]any{"type": "string"} }
func numberProp() map[string]any { return map[string]any{"type": "number"} }
func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": stringProp()}
}

// EvaluationSchema 評分回應的 schema
func EvaluationSchema() map[string]any {
	scores := map[string]any{}
	analysis := map[string]any{}
	for _, key := range RequiredKeys() {
		scores[key] = numberProp()
		analysis[key] = strictObject(map[string]any{
			"strengths":   stringArray(),
			"weaknesses":  stringArray(),
			"suggestions": stringArray(),
		})
	}
	return strictObject(map[string]any{
		"overall_score":         numberProp(),
		"overall_assessment":    stringProp(),
		"section_scores":        strictObject(scores),
		"section_analysis":      strictObject(analysis),
		"priority_improvements": stringArray(),
		"penalties_applied":     stringArray(),
	})
}

// VariationSchema 變體回應的 schema，只允許 8 個必要區段
func VariationSchema() map[string]any {
	fieldsOf := func(fields ...string) map[string]any {
		props := map[string]any{}
		for _, f := range fields {
			props[f] = stringProp()
		}
		return props
	}

	subject := fieldsOf("gender", "ethnicity", "physical", "facial_features", "clothing", "emotional_state")
	subject["age"] = numberProp()

	sequence := strictObject(fieldsOf("timing", "primary_motion", "camera_follows"))
	action := map[string]any{
		"sequences": map[string]any{"type": "array", "items": sequence},
		"duration":  stringProp(),
	}

	scene := fieldsOf("location", "time_of_day", "weather", "atmosphere")
	scene["lighting"] = strictObject(fieldsOf("type", "quality", "direction"))

	technical := fieldsOf("resolution", "fps", "aspect_ratio", "color_space", "bit_depth", "codec")
	technical["duration_seconds"] = numberProp()

	return strictObject(map[string]any{
		SectionShot:                    strictObject(fieldsOf("type", "angle", "framing", "movement")),
		SectionSubject:                 strictObject(subject),
		SectionAction:                  strictObject(action),
		SectionScene:                   strictObject(scene),
		SectionCinematography:          strictObject(fieldsOf("camera", "lens", "aperture", "iso", "shutter_speed", "white_balance", "color_profile", "stabilization")),
		SectionAudio:                   strictObject(fieldsOf("ambient_sound", "music_style", "voice_over")),
		SectionVisualRules:             strictObject(fieldsOf("realism", "continuity")),
		SectionTechnicalSpecifications: strictObject(technical),
	})
}
