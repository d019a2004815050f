package rubric

// 區段鍵名
const (
	SectionShot                    = "shot"
	SectionSubject                 = "subject"
	SectionAction                  = "action"
	SectionScene                   = "scene"
	SectionCinematography          = "cinematography"
	SectionAudio                   = "audio"
	SectionVisualRules             = "visual_rules"
	SectionTechnicalSpecifications = "technical_specifications"

	// SectionToneAndAtmosphere 為選用區段，不參與結構驗證與評分。
	SectionToneAndAtmosphere = "tone_and_atmosphere"
)

// Section 描述一個必要區段：評分權重與預期的子欄位。
type Section struct {
	Key    string
	Label  string
	Weight float64
	Fields []string
}

// Sections 依固定順序列出 8 個必要區段。
// technical_specifications 權重為 0，僅作為完整性門檻 (不完整扣 3 分)。
var Sections = []Section{
	{Key: SectionShot, Label: "Shot", Weight: 0.20, Fields: []string{"type", "angle", "framing", "movement"}},
	{Key: SectionSubject, Label: "Subject", Weight: 0.15, Fields: []string{"age", "gender", "ethnicity", "physical", "facial_features", "clothing", "emotional_state"}},
	{Key: SectionAction, Label: "Action", Weight: 0.25, Fields: []string{"sequences", "duration"}},
	{Key: SectionScene, Label: "Scene", Weight: 0.10, Fields: []string{"location", "time_of_day", "weather", "lighting", "atmosphere"}},
	{Key: SectionCinematography, Label: "Cinematography", Weight: 0.15, Fields: []string{"camera", "lens", "aperture", "iso", "shutter_speed", "white_balance", "color_profile", "stabilization"}},
	{Key: SectionAudio, Label: "Audio", Weight: 0.10, Fields: []string{"ambient_sound", "music_style", "voice_over"}},
	{Key: SectionVisualRules, Label: "Visual Rules", Weight: 0.05, Fields: []string{"realism", "continuity"}},
	{Key: SectionTechnicalSpecifications, Label: "Technical Specifications", Weight: 0, Fields: []string{"resolution", "fps", "aspect_ratio", "color_space", "bit_depth", "codec", "duration_seconds"}},
}

// TechnicalGateFields 缺少任一欄位即視為技術規格不完整
var TechnicalGateFields = []string{"resolution", "fps", "color_space", "codec"}

// RequiredKeys 回傳 8 個必要區段的鍵名
func RequiredKeys() []string {
	keys := make([]string, len(Sections))
	for i, s := range Sections {
		keys[i] = s.Key
	}
	return keys
}

// Lookup 依鍵名查詢區段定義
func Lookup(key string) (Section, bool) {
	for _, s := range Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// TotalWeight 有權重區段的權重總和 (0.95)
func TotalWeight() float64 {
	var sum float64
	for _, s := range Sections {
		sum += s.Weight
	}
	return sum
}
