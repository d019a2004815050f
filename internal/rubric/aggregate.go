package rubric

import "PromptStudio-admin/internal/models"

// ItemResult 批次中單一項目的結果，Index 對應輸入順序
type ItemResult struct {
	Index             int         `json:"index"`
	PromptID          int64       `json:"promptId,omitempty"`
	Title             string      `json:"title"`
	Success           bool        `json:"success"`
	Score             *float64    `json:"score,omitempty"`
	Tier              Tier        `json:"tier,omitempty"`
	NeedsOptimization bool        `json:"needsOptimization"`
	Evaluation        *Evaluation `json:"evaluation,omitempty"`
	Error             string      `json:"error,omitempty"`
	ErrorCode         string      `json:"errorCode,omitempty"`
	MissingSections   []string    `json:"missingSections,omitempty"`
}

// Succeeded 以評分結果填入成功欄位
func (r *ItemResult) Succeeded(eval *Evaluation) {
	score := eval.OverallScore
	r.Success = true
	r.Score = &score
	r.Tier = eval.Tier
	r.NeedsOptimization = eval.NeedsOptimization
	r.Evaluation = eval
}

// Summary 批次統計
type Summary struct {
	Total             int                     `json:"total"`
	Successful        int                     `json:"successful"`
	Failed            int                     `json:"failed"`
	AverageScore      float64                 `json:"averageScore"`
	Distribution      models.TierDistribution `json:"distribution"`
	NeedsOptimization int                     `json:"needsOptimization"`
}

// Summarize 統計批次結果。沒有任何成功項目時平均分數為 0。
func Summarize(items []ItemResult) Summary {
	s := Summary{Total: len(items)}
	var sum float64
	for _, item := range items {
		if !item.Success || item.Score == nil {
			s.Failed++
			continue
		}
		s.Successful++
		score := *item.Score
		sum += score
		CountTier(&s.Distribution, score)
		if NeedsOptimization(score) {
			s.NeedsOptimization++
		}
	}
	if s.Successful > 0 {
		s.AverageScore = Round1(sum / float64(s.Successful))
	}
	return s
}

// CountTier 將分數計入對應等級
func CountTier(d *models.TierDistribution, score float64) {
	switch Classify(score) {
	case TierGold:
		d.Gold++
	case TierSilver:
		d.Silver++
	case TierBronze:
		d.Bronze++
	default:
		d.Poor++
	}
}
