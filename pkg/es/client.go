// Package es 提供了与 Elasticsearch 交互的客户端功能。
// 本服务只把 ES 作为问答洞察事件的分析存储，检索打分在进程内完成。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"edu-agent-go/internal/config"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/tasks"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.InsightIndex)
}

// createIndexIfNotExists 检查洞察索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 如果 res.StatusCode 是 200，说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 问答洞察事件的索引结构，question 使用 ik 中文分词器
	mapping := `{
		"mappings": {
			"properties": {
				"agent_id": { "type": "long" },
				"company_id": { "type": "long" },
				"conversation_id": { "type": "keyword" },
				"question": {
					"type": "text",
					"analyzer": "ik_max_word",
					"search_analyzer": "ik_smart"
				},
				"mode": { "type": "keyword" },
				"confidence": { "type": "float" },
				"top_score": { "type": "float" },
				"ambiguous": { "type": "boolean" },
				"timestamp": { "type": "date" }
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)

	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexInsight 将单个洞察事件索引到 Elasticsearch。
func IndexInsight(ctx context.Context, indexName string, event tasks.InsightEvent) error {
	docBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(docBytes),
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引洞察事件到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index insight event")
	}

	return nil
}

// SearchRecentInsights 查询指定智能体最近的洞察事件，按时间倒序。
// companyID 作为过滤条件一并下推，避免跨租户读取。
func SearchRecentInsights(ctx context.Context, indexName string, agentID, companyID uint, size int) ([]tasks.InsightEvent, error) {
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"agent_id": agentID}},
					{"term": map[string]interface{}{"company_id": companyID}},
				},
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source tasks.InsightEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	events := make([]tasks.InsightEvent, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}
