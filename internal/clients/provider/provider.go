package provider

import (
	"context"
	"fmt"
	"strings"

	"PromptStudio-admin/internal/clients/gemini"
	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/clients/openai"
	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"
)

// New 依 llm.provider 建立對應的 llm.Invoker，回傳的 close 函式於關閉服務時呼叫
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (llm.Invoker, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", "openai":
		client, err := openai.NewClient(openai.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, log, openai.WithRetryMaxAttempts(cfg.LLM.MaxRetries))
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	case "gemini":
		apiKey := cfg.GeminiClient.APIKey
		if apiKey == "" {
			apiKey = cfg.LLM.APIKey
		}
		client, err := gemini.NewClient(ctx, apiKey, cfg.GeminiClient.Model, cfg.LLM.Temperature, log)
		if err != nil {
			return nil, noop, err
		}
		return client, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("不支援的 LLM provider: %s", cfg.LLM.Provider)
	}
}
