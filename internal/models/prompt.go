package models

import (
	"encoding/json"
	"time"
)

// Prompt 對應 prompts 資料表，目錄中的結構化影片提示詞。
// promptJson 與 qualityScore 只能一起更新。
type Prompt struct {
	ID               int64         `json:"id"`
	PromptNumber     int           `json:"promptNumber"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	ScenarioType     string        `json:"scenarioType"`
	IndustrySector   string        `json:"industrySector"`
	VisualStyle      string        `json:"visualStyle"`
	DurationSeconds  int           `json:"durationSeconds"`
	OriginalDuration int           `json:"originalDuration"`
	PromptJSON       string        `json:"promptJson"`
	QualityScore     JsonNullScore `json:"qualityScore"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// PromptFilter 目錄搜尋條件，空字串代表不篩選
type PromptFilter struct {
	Search         string `json:"search"`
	IndustrySector string `json:"industrySector"`
	VisualStyle    string `json:"visualStyle"`
	ScenarioType   string `json:"scenarioType"`
}

// TierDistribution 各等級的數量
type TierDistribution struct {
	Gold   int `json:"gold"`
	Silver int `json:"silver"`
	Bronze int `json:"bronze"`
	Poor   int `json:"poor"`
}

// CatalogStats 目錄統計
type CatalogStats struct {
	Total        int              `json:"total"`
	Scored       int              `json:"scored"`
	AverageScore float64          `json:"averageScore"`
	Distribution TierDistribution `json:"distribution"`
	Sectors      []string         `json:"sectors"`
	Styles       []string         `json:"styles"`
	Scenarios    []string         `json:"scenarios"`
}

// UserPrompt 使用者從目錄複製出來的提示詞，之後與來源不再同步。
type UserPrompt struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"userId"`
	SourcePromptID int64           `json:"sourcePromptId"`
	FolderID       *int64          `json:"folderId"`
	Title          string          `json:"title"`
	Description    JsonNullString  `json:"description"`
	Tags           json.RawMessage `json:"tags"`
	PromptJSON     string          `json:"promptJson"`
	QualityScore   JsonNullScore   `json:"qualityScore"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// PromptVersion 使用者提示詞的歷史版本
type PromptVersion struct {
	ID            int64         `json:"id"`
	UserPromptID  int64         `json:"userPromptId"`
	VersionNumber int           `json:"versionNumber"`
	PromptJSON    string        `json:"promptJson"`
	QualityScore  JsonNullScore `json:"qualityScore"`
	CreatedAt     time.Time     `json:"createdAt"`
}
