package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"PromptStudio-admin/internal/apperr"
)

// 訊息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ResponseFormatType 回應格式
type ResponseFormatType string

const (
	FormatJSONObject ResponseFormatType = "json_object"
	FormatJSONSchema ResponseFormatType = "json_schema"
)

// Message 對話訊息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat 要求模型輸出 JSON；FormatJSONSchema 時附帶 schema
type ResponseFormat struct {
	Type   ResponseFormatType
	Name   string
	Schema map[string]any
	Strict bool
}

// JSONObject 任意 JSON 物件
func JSONObject() *ResponseFormat {
	return &ResponseFormat{Type: FormatJSONObject}
}

// JSONSchema strict 模式的 schema 輸出
func JSONSchema(name string, schema map[string]any) *ResponseFormat {
	return &ResponseFormat{Type: FormatJSONSchema, Name: name, Schema: schema, Strict: true}
}

// Request 一次 LLM 呼叫
type Request struct {
	Messages       []Message
	ResponseFormat *ResponseFormat
}

// Choice 模型回傳的候選
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Response LLM 回應
type Response struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// ErrEmptyContent 回應中沒有任何文字內容
var ErrEmptyContent = errors.New("llm: empty content")

// Content 回傳第一個非空的訊息內容
func (r *Response) Content() (string, error) {
	if r == nil {
		return "", ErrEmptyContent
	}
	for _, c := range r.Choices {
		if s := strings.TrimSpace(c.Message.Content); s != "" {
			return s, nil
		}
	}
	return "", ErrEmptyContent
}

// Invoker 評分、優化與變體產生共用的 LLM 介面
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Complete 以 timeout 限制單次呼叫並取回文字內容，錯誤一律歸類為
// ErrUpstreamTimeout 或 ErrUpstream。
func Complete(ctx context.Context, inv Invoker, timeout time.Duration, req Request) (string, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := inv.Invoke(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return "", apperr.Wrap(apperr.ErrUpstreamTimeout, fmt.Errorf("llm call exceeded %s: %w", timeout, err))
		}
		return "", Classify(err)
	}
	content, err := resp.Content()
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstream, err)
	}
	return content, nil
}

// Classify 將底層錯誤歸類為上游逾時或上游失敗
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrUpstreamTimeout) || errors.Is(err, apperr.ErrUpstream) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(apperr.ErrUpstreamTimeout, err)
	}
	return apperr.Wrap(apperr.ErrUpstream, err)
}

// SystemAndUser 組合最常見的兩段式對話
func SystemAndUser(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}
