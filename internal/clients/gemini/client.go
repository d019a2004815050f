package gemini

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-1.5-flash-latest"

// Client 透過 Gemini GenAI SDK 實作 llm.Invoker
type Client struct {
	sdk         *genai.Client
	modelName   string
	temperature float32
	log         *logger.Logger
}

// NewClient 建立一個 Gemini 客戶端實例
func NewClient(ctx context.Context, apiKey string, modelName string, temperature float64, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 不得為空")
	}
	if log == nil {
		return nil, errors.New("gemini client：logger 不得為空")
	}
	log = log.With("component", "GeminiClient")
	if modelName == "" {
		modelName = defaultModel
		log.Warn("未提供模型名稱，使用預設值", "model", modelName)
	}

	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("無法建立 Gemini GenAI SDK 客戶端: %w", err)
	}
	log.Info("Gemini 模型初始化成功", "model", modelName)
	return &Client{sdk: sdk, modelName: modelName, temperature: float32(temperature), log: log}, nil
}

// Close 釋放 SDK 連線
func (c *Client) Close() error {
	if c == nil || c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

// Invoke 將 system 訊息轉為 SystemInstruction，其餘訊息依序作為內容送出
func (c *Client) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := c.sdk.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	applyRequest(model, req)

	parts := userParts(req.Messages)
	if len(parts) == 0 {
		return nil, fmt.Errorf("Gemini 請求內容不得為空")
	}

	c.log.Debug("正在向 Gemini API 發送請求", "model", c.modelName, "parts", len(parts))
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API GenerateContent 失敗: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("Gemini API 回應無效或為空 (nil response or no candidates)")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			for _, rating := range candidate.SafetyRatings {
				c.log.Warn("安全評級", "category", rating.Category.String(), "probability", rating.Probability.String())
			}
			return nil, fmt.Errorf("Gemini API 回應內容被阻止，原因: %s", candidate.FinishReason.String())
		}
		return nil, fmt.Errorf("Gemini API 回應無效或為空 (no content parts, FinishReason: %s)", candidate.FinishReason.String())
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			c.log.Warn("收到非預期的 Part 類型", "type", fmt.Sprintf("%T", part))
		}
	}
	c.log.Debug("收到 Gemini 回應", "length", sb.Len(), "finishReason", candidate.FinishReason.String())

	return &llm.Response{
		Model: c.modelName,
		Choices: []llm.Choice{{
			Message:      llm.Message{Role: llm.RoleAssistant, Content: sb.String()},
			FinishReason: strings.ToLower(candidate.FinishReason.String()),
		}},
	}, nil
}

// applyRequest 設定 SystemInstruction 與 JSON 輸出格式
func applyRequest(model *genai.GenerativeModel, req llm.Request) {
	var system []string
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem && strings.TrimSpace(m.Content) != "" {
			system = append(system, m.Content)
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if req.ResponseFormat == nil {
		return
	}
	model.ResponseMIMEType = "application/json"
	if req.ResponseFormat.Type == llm.FormatJSONSchema && req.ResponseFormat.Schema != nil {
		model.ResponseSchema = toGenaiSchema(req.ResponseFormat.Schema)
	}
}

func userParts(messages []llm.Message) []genai.Part {
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == llm.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return parts
}

// toGenaiSchema 將 JSON Schema map 轉為 genai.Schema；additionalProperties 不被支援，直接略過
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}
	switch schema["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGenaiSchema(items)
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGenaiSchema(child)
			}
		}
	}
	if required, ok := schema["required"].([]string); ok {
		out.Required = append([]string(nil), required...)
	} else if out.Properties != nil {
		for name := range out.Properties {
			out.Required = append(out.Required, name)
		}
		sort.Strings(out.Required)
	}
	return out
}
