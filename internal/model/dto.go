// Package model 定义了与数据库表对应的 Go 结构体。
package model

// AskResponseDTO 定义了问答接口返回给前端的结构。
// 歧义回答时 RequiresSourceSelection 为 true，Alternatives 携带候选来源。
type AskResponseDTO struct {
	Mode                    string               `json:"mode"`
	Confidence              float64              `json:"confidence"`
	Answer                  string               `json:"answer"`
	Citations               []Citation           `json:"citations"`
	ConversationID          string               `json:"conversationId"`
	RequiresSourceSelection bool                 `json:"requiresSourceSelection"`
	Alternatives            []AmbiguityCandidate `json:"alternatives,omitempty"`
	AmbiguityEventID        string               `json:"ambiguityEventId,omitempty"`
}

// SourceDocumentDTO 是创建/列出源文档时返回的摘要。
type SourceDocumentDTO struct {
	ID         string    `json:"id"`
	AgentID    uint      `json:"agentId"`
	Title      string    `json:"title"`
	SourceType string    `json:"sourceType"`
	Status     string    `json:"status"`
	FailReason string    `json:"failReason,omitempty"`
	ChunkCount int64     `json:"chunkCount"`
	CreatedAt  LocalTime `json:"createdAt"`
}

// DownloadInfoDTO 封装了文件下载链接所需的信息。
type DownloadInfoDTO struct {
	Title       string `json:"title"`
	DownloadURL string `json:"downloadUrl"`
}
