// Package tasks defines the message payloads exchanged over Kafka.
package tasks

import "time"

// IngestTask 是上传文件后投递到 Kafka 的文档处理任务。
// 原始对象已写入 MinIO，消费方下载后走提取/分块/向量化流水线。
type IngestTask struct {
	DocumentID string `json:"document_id"`
	AgentID    uint   `json:"agent_id"`
	CompanyID  uint   `json:"company_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
}

// InsightEvent 记录一次问答（或歧义）事件，供后续分析使用。
type InsightEvent struct {
	AgentID        uint      `json:"agent_id"`
	CompanyID      uint      `json:"company_id"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Mode           string    `json:"mode"`
	Confidence     float64   `json:"confidence"`
	TopScore       float64   `json:"top_score"`
	Ambiguous      bool      `json:"ambiguous"`
	Timestamp      time.Time `json:"timestamp"`
}
