package rubric

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"PromptStudio-admin/internal/apperr"
)

// SectionAnalysis 單一區段的評語
type SectionAnalysis struct {
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

// ModelEvaluation 模型回傳的評分內容，已通過形狀檢查
type ModelEvaluation struct {
	OverallScore         float64                    `json:"overall_score"`
	OverallAssessment    string                     `json:"overall_assessment"`
	SectionScores        map[string]float64         `json:"section_scores"`
	SectionAnalysis      map[string]SectionAnalysis `json:"section_analysis"`
	PriorityImprovements []string                   `json:"priority_improvements"`
	PenaltiesApplied     []string                   `json:"penalties_applied"`
}

// Evaluation 最終評分結果。OverallScore 由區段分數加權平均後扣分計算，
// ModelScore 保留模型自行給出的總分僅供參考。
type Evaluation struct {
	OverallScore         float64                    `json:"overall_score"`
	OverallAssessment    string                     `json:"overall_assessment"`
	SectionScores        map[string]float64         `json:"section_scores"`
	SectionAnalysis      map[string]SectionAnalysis `json:"section_analysis"`
	PriorityImprovements []string                   `json:"priority_improvements"`
	PenaltiesApplied     []string                   `json:"penalties_applied"`

	ModelScore        float64      `json:"model_score"`
	WeightedScore     float64      `json:"weighted_score"`
	Penalties         []Penalty    `json:"penalties"`
	Tier              Tier         `json:"tier"`
	TierName          string       `json:"tier_name"`
	Recommendation    string       `json:"recommendation"`
	NeedsOptimization bool         `json:"needs_optimization"`
	Completeness      Completeness `json:"completeness"`
}

type rawSectionAnalysis struct {
	Strengths   *[]string `json:"strengths"`
	Weaknesses  *[]string `json:"weaknesses"`
	Suggestions *[]string `json:"suggestions"`
}

type rawEvaluation struct {
	OverallScore         *float64                       `json:"overall_score"`
	OverallAssessment    *string                        `json:"overall_assessment"`
	SectionScores        map[string]*float64            `json:"section_scores"`
	SectionAnalysis      map[string]*rawSectionAnalysis `json:"section_analysis"`
	PriorityImprovements *[]string                      `json:"priority_improvements"`
	PenaltiesApplied     *[]string                      `json:"penalties_applied"`
}

// DecodeEvaluation 嚴格解析模型回應，欄位缺漏、型別錯誤或分數超出 0-10
// 都回傳 ErrEvaluationParse，不接受部分結果。penalties_applied 可省略，視為沒有扣分。
func DecodeEvaluation(content []byte) (*ModelEvaluation, error) {
	var raw rawEvaluation
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, apperr.Wrap(apperr.ErrEvaluationParse, err)
	}
	var problems []string
	if raw.OverallScore == nil {
		problems = append(problems, "overall_score missing")
	} else if !inRange(*raw.OverallScore) {
		problems = append(problems, fmt.Sprintf("overall_score %v out of range", *raw.OverallScore))
	}
	if raw.OverallAssessment == nil {
		problems = append(problems, "overall_assessment missing")
	}
	if raw.PriorityImprovements == nil {
		problems = append(problems, "priority_improvements missing")
	}
	if raw.SectionScores == nil {
		problems = append(problems, "section_scores missing")
	}
	if raw.SectionAnalysis == nil {
		problems = append(problems, "section_analysis missing")
	}

	out := &ModelEvaluation{
		SectionScores:   make(map[string]float64, len(Sections)),
		SectionAnalysis: make(map[string]SectionAnalysis, len(Sections)),
	}
	for _, key := range RequiredKeys() {
		if raw.SectionScores != nil {
			score := raw.SectionScores[key]
			switch {
			case score == nil:
				problems = append(problems, fmt.Sprintf("section_scores.%s missing", key))
			case !inRange(*score):
				problems = append(problems, fmt.Sprintf("section_scores.%s %v out of range", key, *score))
			default:
				out.SectionScores[key] = *score
			}
		}
		if raw.SectionAnalysis != nil {
			a := raw.SectionAnalysis[key]
			if a == nil || a.Strengths == nil || a.Weaknesses == nil || a.Suggestions == nil {
				problems = append(problems, fmt.Sprintf("section_analysis.%s incomplete", key))
			} else {
				out.SectionAnalysis[key] = SectionAnalysis{
					Strengths:   *a.Strengths,
					Weaknesses:  *a.Weaknesses,
					Suggestions: *a.Suggestions,
				}
			}
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", apperr.ErrEvaluationParse, strings.Join(problems, "; "))
	}

	out.OverallScore = *raw.OverallScore
	out.OverallAssessment = *raw.OverallAssessment
	out.PriorityImprovements = *raw.PriorityImprovements
	out.PenaltiesApplied = []string{}
	if raw.PenaltiesApplied != nil {
		out.PenaltiesApplied = *raw.PenaltiesApplied
	}
	return out, nil
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 10
}

// WeightedScore 有權重區段的加權平均，以權重總和正規化回 0-10
func WeightedScore(scores map[string]float64) float64 {
	var sum float64
	for _, s := range Sections {
		sum += s.Weight * scores[s.Key]
	}
	return sum / TotalWeight()
}

// CombineScore 加權分數減去扣分，限制在 0-10 並保留一位小數
func CombineScore(weighted float64, penalties []Penalty) float64 {
	return Round1(clamp(weighted-TotalPoints(penalties), 0, 10))
}

// Round1 四捨五入到一位小數
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Score 結合模型評分與本地扣分偵測，產生最終結果
func Score(doc *PromptDocument, model *ModelEvaluation) *Evaluation {
	penalties := MergePenalties(DetectPenalties(doc), ClassifyReported(model.PenaltiesApplied))
	weighted := WeightedScore(model.SectionScores)
	overall := CombineScore(weighted, penalties)
	tier := Classify(overall)

	applied := make([]string, len(penalties))
	for i, p := range penalties {
		applied[i] = p.Describe()
	}
	return &Evaluation{
		OverallScore:         overall,
		OverallAssessment:    model.OverallAssessment,
		SectionScores:        model.SectionScores,
		SectionAnalysis:      model.SectionAnalysis,
		PriorityImprovements: model.PriorityImprovements,
		PenaltiesApplied:     applied,
		ModelScore:           model.OverallScore,
		WeightedScore:        Round1(weighted),
		Penalties:            penalties,
		Tier:                 tier,
		TierName:             tier.Name(),
		Recommendation:       Recommendation(overall),
		NeedsOptimization:    NeedsOptimization(overall),
		Completeness:         CheckCompleteness(doc),
	}
}
