package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 伺服器設定
type ServerConfig struct {
	Addr                   string `mapstructure:"addr"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdownTimeoutSeconds"`
}

// LLMConfig 評分、優化與變體產生共用的 LLM 設定
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"` // openai | gemini
	APIKey         string  `mapstructure:"apiKey"`
	BaseURL        string  `mapstructure:"baseURL"`
	Model          string  `mapstructure:"model"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
	MaxRetries     int     `mapstructure:"maxRetries"`
	Temperature    float64 `mapstructure:"temperature"`
}

// CallTimeout 單次 LLM 呼叫的時間上限
func (c LLMConfig) CallTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type GeminiClientConfig struct {
	APIKey string `mapstructure:"apiKey"`
	Model  string `mapstructure:"model"`
}

type EvaluationConfig struct {
	BatchConcurrency int `mapstructure:"batchConcurrency"`
	MaxBatchSize     int `mapstructure:"maxBatchSize"`
}

// SchedulerConfig 排程設定
type SchedulerConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	RecalculateCronSpec string `mapstructure:"recalculateCronSpec"`
}

type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"`
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbName"`
	MaxOpenConns           int    `mapstructure:"maxOpenConns"`
	MaxIdleConns           int    `mapstructure:"maxIdleConns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"connMaxLifetimeMinutes"`
	MigrationsPath         string `mapstructure:"migrationsPath"`
}

// DSN 回傳 go-sql-driver/mysql 使用的連線字串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// MigrateURL 回傳 golang-migrate 使用的連線字串
func (c DatabaseConfig) MigrateURL() string {
	return "mysql://" + c.DSN() + "&multiStatements=true"
}

// ReportsConfig 批次報告的儲存位置
type ReportsConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Mode string `mapstructure:"mode"`
}

// Config 應用程式完整設定
type Config struct {
	AppName      string             `mapstructure:"appName"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	LLM          LLMConfig          `mapstructure:"llm"`
	GeminiClient GeminiClientConfig `mapstructure:"gemini"`
	Evaluation   EvaluationConfig   `mapstructure:"evaluation"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Reports      ReportsConfig      `mapstructure:"reports"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// Load 讀取設定檔與環境變數 (例如 LLM_APIKEY 覆寫 llm.apiKey)
func Load(configPath string, configName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("讀取設定檔時發生錯誤: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("無法解析設定檔到結構: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "PromptStudio-admin")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdownTimeoutSeconds", 30)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetimeMinutes", 5)
	v.SetDefault("database.migrationsPath", "file://scripts/migrate/mysql")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.baseURL", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeoutSeconds", 120)
	v.SetDefault("llm.maxRetries", 3)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("gemini.model", "gemini-1.5-flash-latest")
	v.SetDefault("evaluation.batchConcurrency", 1)
	v.SetDefault("evaluation.maxBatchSize", 50)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.recalculateCronSpec", "0 0 3 * * *")
	v.SetDefault("reports.path", "./data/reports")
	v.SetDefault("logging.mode", "development")
}

// Validate 檢查設定值是否合理
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini":
	default:
		return fmt.Errorf("不支援的 LLM provider: %q", c.LLM.Provider)
	}
	if c.Evaluation.BatchConcurrency < 1 {
		return fmt.Errorf("evaluation.batchConcurrency 必須大於 0 (目前為 %d)", c.Evaluation.BatchConcurrency)
	}
	if c.Evaluation.MaxBatchSize < 1 {
		return fmt.Errorf("evaluation.maxBatchSize 必須大於 0 (目前為 %d)", c.Evaluation.MaxBatchSize)
	}
	return nil
}
