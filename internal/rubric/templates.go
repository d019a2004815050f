package rubric

import (
	"fmt"
	"strings"
)

// PromptMeta 評分時附帶的提示詞背景資訊
type PromptMeta struct {
	Title  string
	Sector string
}

// EvaluationSystemPrompt 評分指令：基準 5 分、權重、自動扣分與輸出格式
const EvaluationSystemPrompt = `You are a senior cinematography reviewer for text-to-video production. You grade structured video prompts against a strict rubric and never inflate scores.

SCORE SCALE
- 10: flawless, nothing left to improve
- 9: cinematic excellence, ready for a flagship campaign
- 8: professional mastery, minor refinements only
- 7: solid, needs optimization before premium use
- 6: acceptable, several improvements required
- 5: mediocre, significant weaknesses (baseline)
- 4: poor, fundamental flaws
- 1-3: unacceptable, rebuild from scratch

Start every section at 5 and justify each point above that.

SECTION WEIGHTS
- shot 20%: camera system, lens, composition, movement
- subject 15%: identity, appearance, expression, evolution
- action 25%: precise timing, specific movements, camera tracking
- scene 10%: location, time, weather, lighting, atmosphere
- cinematography 15%: camera settings, color, stabilization
- audio 10%: ambient layers, music, voice-over, sync points
- visual_rules 5%: realism, continuity
- technical_specifications 0%: binary gate, incomplete specs cost 3 points

AUTOMATIC PENALTIES
- Generic sequences ("Sequence 2", "Product showcase", "Display features"): -5
- Narrative incoherence between sequences: -3
- Vague technical terms ("good lighting", "nice camera", "professional look"): -3
- Incomplete technical specifications: -3
- Missing emotional progression across sequences: -2
- Imprecise timing (no second ranges such as "0-3s:"): -2
- Visual or narrative clichés: -2

Only award 9-10 when camera work names lens, aperture and movement, every action has second-level timing, the sequences form a clear emotional arc, technical specifications are complete, the language is original, audio has sync points and continuity rules are explicit.

Return JSON only, matching the requested schema.`

// BuildEvaluationUserPrompt 組合評分請求內容
func BuildEvaluationUserPrompt(meta PromptMeta, doc *PromptDocument) string {
	var b strings.Builder
	b.WriteString("Evaluate this structured video prompt with full rigor.\n\n")
	if meta.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", meta.Title)
	}
	if meta.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", meta.Sector)
	}
	fmt.Fprintf(&b, "\nPrompt JSON:\n%s\n\n", doc.Indent())
	b.WriteString("Score each of the 8 sections from 0 to 10: ")
	b.WriteString(strings.Join(RequiredKeys(), ", "))
	b.WriteString(".\nApply the automatic penalties strictly.\n\n")
	b.WriteString("Respond with:\n")
	b.WriteString("- overall_score: 0-10, weighted average with penalties applied\n")
	b.WriteString("- overall_assessment: a critical summary\n")
	b.WriteString("- section_scores: one number per section\n")
	b.WriteString("- section_analysis: strengths, weaknesses and suggestions arrays per section\n")
	b.WriteString("- priority_improvements: the most important fixes, highest impact first\n")
	b.WriteString("- penalties_applied: one entry per penalty with its point deduction\n")
	return b.String()
}

// OptimizationSystemPrompt 優化指令
const OptimizationSystemPrompt = `You are a cinematography director and prompt engineer. You rewrite structured video prompts so they reach a 9-10 score on a strict cinematic rubric.

REQUIRED CHANGES
1. Remove generic language. Replace "showcase", "display", "demonstrate" and "Sequence 1/2/3" with concrete narrative beats and specific actions.
2. Give every action an exact second range such as "0-3s:", "3-8s:", "8-14s:", including camera movement speed and duration.
3. Build an emotional arc: intrigue first, then connection, then impact.
4. Name exact equipment and settings, for example "ARRI Alexa Mini LF + Zeiss Supreme Prime 50mm T1.5", a concrete lighting setup with color temperature, and a concrete movement technique.
5. Keep visual continuity: consistent color temperature, subject appearance and spatial logic.
6. Design layered audio with levels in dB, timed music cues and foley sync points.
7. Complete technical_specifications: resolution, fps, aspect_ratio, color_space, bit_depth, codec, duration_seconds.

Keep exactly the same top-level keys as the input, no more and no less. Return only the optimized JSON object, with no markdown and no commentary.`

// BuildOptimizationUserPrompt 組合優化請求內容
func BuildOptimizationUserPrompt(doc *PromptDocument) string {
	return fmt.Sprintf("Optimize this prompt to cinematic excellence (target 9-10/10).\n\nOriginal prompt:\n%s\n\nTop-level keys that must be preserved exactly: %s\n\nReturn only the complete optimized JSON.",
		doc.Indent(), strings.Join(doc.Keys(), ", "))
}

// VariationAspects 可變動的面向與其說明
var VariationAspects = map[string]string{
	"subject":   "the subject (age, gender, ethnicity, appearance, clothing)",
	"location":  "the location and setting",
	"style":     "the visual style and color grading",
	"equipment": "the camera equipment and lenses",
	"lighting":  "the lighting setup",
	"action":    "the actions and movements",
	"audio":     "the audio design and music",
	"technical": "the technical specifications",
}

// VariationSystemPrompt 變體產生指令
const VariationSystemPrompt = `You generate variations of structured video prompts for text-to-video models. A variation changes the requested aspects while keeping the complete JSON structure and production coherence.

The JSON must contain exactly these 8 sections:
1. shot (type, angle, framing, movement)
2. subject (age, gender, ethnicity, physical, facial_features, clothing, emotional_state)
3. action (sequences array with timing, primary_motion, camera_follows; duration)
4. scene (location, time_of_day, weather, lighting with type, quality, direction; atmosphere)
5. cinematography (camera, lens, aperture, iso, shutter_speed, white_balance, color_profile, stabilization)
6. audio (ambient_sound, music_style, voice_over)
7. visual_rules (realism, continuity)
8. technical_specifications (resolution, fps, aspect_ratio, color_space, bit_depth, codec, duration_seconds)

When one aspect changes, adapt the dependent details too. Moving from an office to a beach also changes lighting, wardrobe and ambient sound.`

// BuildVariationUserPrompt 組合第 index 個 (從 0 起算) 變體的請求內容
func BuildVariationUserPrompt(doc *PromptDocument, aspects []string, index int) string {
	descriptions := make([]string, 0, len(aspects))
	for _, a := range aspects {
		if d, ok := VariationAspects[a]; ok {
			descriptions = append(descriptions, d)
		}
	}
	var b strings.Builder
	b.WriteString("Generate a variation ")
	if index > 0 {
		b.WriteString("that is clearly different from the previous ones ")
	}
	fmt.Fprintf(&b, "of this prompt by changing %s.", strings.Join(descriptions, ", "))
	if index > 0 {
		b.WriteString(" Take a completely different creative direction.")
	}
	b.WriteString(" Keep every change coherent with the rest of the prompt.\n\nOriginal prompt:\n")
	b.WriteString(doc.CoreSections().Indent())
	b.WriteString("\n\nRespond only with the complete JSON of the variation.")
	return b.String()
}
