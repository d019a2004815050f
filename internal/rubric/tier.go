package rubric

// Tier 品質等級
type Tier string

const (
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
	TierPoor   Tier = "poor"
)

// OptimizationThreshold 低於此分數的提示詞建議優化
const OptimizationThreshold = 7.0

// Classify 依分數歸類等級：>=9 Gold、>=7 Silver、>=5 Bronze，其餘 Poor
func Classify(score float64) Tier {
	switch {
	case score >= 9:
		return TierGold
	case score >= 7:
		return TierSilver
	case score >= 5:
		return TierBronze
	default:
		return TierPoor
	}
}

// Name 等級的顯示名稱
func (t Tier) Name() string {
	switch t {
	case TierGold:
		return "Cinematic Excellence"
	case TierSilver:
		return "Professional Mastery"
	case TierBronze:
		return "Acceptable"
	default:
		return "Unacceptable"
	}
}

// Recommendation 依分數給出建議標籤
func Recommendation(score float64) string {
	switch Classify(score) {
	case TierGold:
		return "EXCELLENT"
	case TierSilver:
		return "GOOD"
	case TierBronze:
		return "MEDIOCRE"
	default:
		return "POOR"
	}
}

func NeedsOptimization(score float64) bool {
	return score < OptimizationThreshold
}
