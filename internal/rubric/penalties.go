package rubric

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PenaltyCode 自動扣分項目
type PenaltyCode string

const (
	PenaltyGenericLabels               PenaltyCode = "generic_labels"
	PenaltyNarrativeIncoherence        PenaltyCode = "narrative_incoherence"
	PenaltyVagueTerms                  PenaltyCode = "vague_terms"
	PenaltyIncompleteTechnicalSpecs    PenaltyCode = "incomplete_technical_specs"
	PenaltyMissingEmotionalProgression PenaltyCode = "missing_emotional_progression"
	PenaltyImpreciseTiming             PenaltyCode = "imprecise_timing"
	PenaltyCliches                     PenaltyCode = "cliches"
)

// 扣分來源
const (
	SourceDetector = "detector"
	SourceModel    = "model"
)

// PenaltyRule 扣分規則。Deterministic 為 true 的規則由本地偵測決定，
// 其餘需要判斷力的規則採用模型回報的結果。
type PenaltyRule struct {
	Code          PenaltyCode
	Points        float64
	Label         string
	Deterministic bool
	keywords      []string
}

// PenaltyRules 依扣分輕重排列
var PenaltyRules = []PenaltyRule{
	{Code: PenaltyGenericLabels, Points: 5, Label: `Generic sequence labels ("Sequence 1/2/3", "showcase", "display", "demonstrate")`, Deterministic: true},
	{Code: PenaltyNarrativeIncoherence, Points: 3, Label: "Narrative incoherence between sequences", keywords: []string{"incoheren", "coherence", "inconsistent", "contradict"}},
	{Code: PenaltyVagueTerms, Points: 3, Label: `Vague terms ("good", "nice", "professional")`, Deterministic: true},
	{Code: PenaltyIncompleteTechnicalSpecs, Points: 3, Label: "Incomplete technical specifications", Deterministic: true},
	{Code: PenaltyMissingEmotionalProgression, Points: 2, Label: "Missing emotional progression across sequences", keywords: []string{"emotional progression", "emotional arc", "no emotional", "lacks emotional", "missing emotion"}},
	{Code: PenaltyImpreciseTiming, Points: 2, Label: `Imprecise timing (no "0-3s:" style ranges)`, Deterministic: true},
	{Code: PenaltyCliches, Points: 2, Label: "Visual or narrative clichés", keywords: []string{"clich"}},
}

// Rule 依代碼取得規則
func Rule(code PenaltyCode) (PenaltyRule, bool) {
	for _, r := range PenaltyRules {
		if r.Code == code {
			return r, true
		}
	}
	return PenaltyRule{}, false
}

// Penalty 一筆實際套用的扣分
type Penalty struct {
	Code   PenaltyCode `json:"code"`
	Points float64     `json:"points"`
	Reason string      `json:"reason"`
	Source string      `json:"source"`
}

var (
	genericLabelPattern = regexp.MustCompile(`(?i)\bsequence\s*#?\d+\b|\b(showcas(e|es|ed|ing)|display(s|ed|ing)?|demonstrat(e|es|ed|ing))\b`)
	vagueValuePattern   = regexp.MustCompile(`(?i)^(very\s+)?(good|nice|professional)(\s+\w+)?$`)
	timingRangePattern  = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(s|sec|seconds?)?\s*[-–]\s*\d+(\.\d+)?\s*(s|sec|seconds?)\b`)
)

// DetectPenalties 以本地規則偵測可機械判定的扣分
func DetectPenalties(doc *PromptDocument) []Penalty {
	var out []Penalty

	if terms := matchTerms(genericLabelPattern, sectionStrings(doc.Action)); len(terms) > 0 {
		out = append(out, newPenalty(PenaltyGenericLabels, SourceDetector, "generic labels: "+strings.Join(terms, ", ")))
	}
	if values := vagueValues(doc.allStrings()); len(values) > 0 {
		out = append(out, newPenalty(PenaltyVagueTerms, SourceDetector, "vague terms: "+strings.Join(values, ", ")))
	}
	if missing := missingFields(doc.TechnicalSpecifications, TechnicalGateFields); len(missing) > 0 {
		out = append(out, newPenalty(PenaltyIncompleteTechnicalSpecs, SourceDetector, "technical_specifications missing: "+strings.Join(missing, ", ")))
	}
	if !hasTimingRanges(doc) {
		out = append(out, newPenalty(PenaltyImpreciseTiming, SourceDetector, `action has no explicit second ranges such as "0-3s:"`))
	}
	return out
}

func hasTimingRanges(doc *PromptDocument) bool {
	for _, s := range sectionStrings(doc.Action) {
		if timingRangePattern.MatchString(s) {
			return true
		}
	}
	return false
}

// matchTerms 回傳去重後的小寫命中詞，依字母排序
func matchTerms(re *regexp.Regexp, texts []string) []string {
	seen := map[string]bool{}
	for _, t := range texts {
		for _, m := range re.FindAllString(t, -1) {
			seen[strings.ToLower(strings.Join(strings.Fields(m), " "))] = true
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// vagueValues 只挑出整個值就是 "good lighting" 這類空泛描述的欄位
func vagueValues(texts []string) []string {
	seen := map[string]bool{}
	for _, t := range texts {
		v := strings.ToLower(strings.Join(strings.Fields(t), " "))
		if vagueValuePattern.MatchString(v) {
			seen[v] = true
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// ClassifyReported 將模型回報的扣分描述歸類，只接受需要判斷力的項目
func ClassifyReported(reported []string) []Penalty {
	var out []Penalty
	seen := map[PenaltyCode]bool{}
	for _, text := range reported {
		lower := strings.ToLower(text)
		for _, rule := range PenaltyRules {
			if rule.Deterministic || seen[rule.Code] {
				continue
			}
			if containsAny(lower, rule.keywords) {
				seen[rule.Code] = true
				out = append(out, newPenalty(rule.Code, SourceModel, strings.TrimSpace(text)))
				break
			}
		}
	}
	return out
}

// MergePenalties 合併兩組扣分，每個代碼最多一次，依 PenaltyRules 順序排列
func MergePenalties(groups ...[]Penalty) []Penalty {
	byCode := map[PenaltyCode]Penalty{}
	for _, g := range groups {
		for _, p := range g {
			if _, ok := byCode[p.Code]; !ok {
				byCode[p.Code] = p
			}
		}
	}
	out := make([]Penalty, 0, len(byCode))
	for _, rule := range PenaltyRules {
		if p, ok := byCode[rule.Code]; ok {
			out = append(out, p)
		}
	}
	return out
}

// TotalPoints 扣分總和
func TotalPoints(penalties []Penalty) float64 {
	var sum float64
	for _, p := range penalties {
		sum += p.Points
	}
	return sum
}

// Describe 以 "-5: ..." 形式描述扣分
func (p Penalty) Describe() string {
	return fmt.Sprintf("-%g %s (%s)", p.Points, p.Code, p.Reason)
}

func newPenalty(code PenaltyCode, source, reason string) Penalty {
	rule, _ := Rule(code)
	return Penalty{Code: code, Points: rule.Points, Reason: reason, Source: source}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
