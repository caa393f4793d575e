// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"edu-agent-go/internal/config"
	"edu-agent-go/pkg/log"
)

// Result 携带向量及产生它们的提供方/模型标识，供下游校验兼容性。
type Result struct {
	Vectors  [][]float32
	Provider string
	Model    string
}

// Client defines the interface for an embedding client.
type Client interface {
	// EmbedBatch 一次批量调用返回多段文本的向量，顺序与输入一致。
	EmbedBatch(ctx context.Context, texts []string) (*Result, error)
	// EmbedOne 是单文本便捷形式（查询向量化）。
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates a new embedding client based on the provider in the config.
func NewClient(cfg config.EmbeddingConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch calls the OpenAI-compatible API to get vectors for the given texts.
// 任何失败都原样向上传递，绝不降级为零向量。
func (c *openAICompatibleClient) EmbedBatch(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding input is empty")
	}
	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, batch: %d", c.cfg.Model, len(texts))

	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      texts,
		Dimensions: c.cfg.Dimensions,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[EmbeddingClient] Embedding API 返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("embedding api returned non-200 status: %s", resp.Status)
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		log.Errorf("[EmbeddingClient] 解析 Embedding API 响应失败, error: %v", err)
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(embeddingResp.Data) != len(texts) {
		log.Warnf("[EmbeddingClient] Embedding API 返回的向量数量不匹配: want %d, got %d", len(texts), len(embeddingResp.Data))
		return nil, fmt.Errorf("embedding api returned %d vectors for %d inputs", len(embeddingResp.Data), len(texts))
	}

	vectors := make([][]float32, len(embeddingResp.Data))
	for i, d := range embeddingResp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("received empty embedding from api at index %d", i)
		}
		vectors[i] = d.Embedding
	}

	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取 %d 个向量, 维度: %d", len(vectors), len(vectors[0]))
	return &Result{
		Vectors:  vectors,
		Provider: c.cfg.Provider,
		Model:    c.cfg.Model,
	}, nil
}

// EmbedOne 向量化单段文本。
func (c *openAICompatibleClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	res, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res.Vectors[0], nil
}
