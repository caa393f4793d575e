// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"edu-agent-go/internal/config"
	"edu-agent-go/pkg/log"
)

// Client defines the interface for an LLM client.
type Client interface {
	// Generate 以指定模型执行一次非流式对话补全，返回完整文本。
	Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
	// Configured 返回客户端是否配置了可用的提供方凭证。
	Configured() bool
}

// ProviderError 是生成提供方返回的带状态码的错误。
// 状态码用于区分"换下一个模型继续"与"立刻失败"两类错误。
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider returned status %d: %s", e.StatusCode, e.Body)
}

// IsModelSwitchable 判断错误是否属于"可以换下一个候选模型重试"的类别：
// 模型不存在、限流、权限不足、请求不合法。其余错误一律原样上抛。
func IsModelSwitchable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.StatusCode {
	case http.StatusNotFound, http.StatusTooManyRequests,
		http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		return true
	}
	return false
}

type deepseekClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) Client {
	return &deepseekClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Configured 返回是否配置了 API Key。
func (c *deepseekClient) Configured() bool {
	return c.cfg.APIKey != ""
}

// Generate calls the chat completions API and returns the full answer text.
func (c *deepseekClient) Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}
	// 从全局配置注入生成参数（若非零值）
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Warnf("[LLMClient] Chat API 返回非 200 状态码: %s, model: %s", resp.Status, model)
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
