// Package model 包含了应用的数据模型定义。
package model

import "time"

// 回答模式：三种之一，由证据判定策略产生。
const (
	ModeGrounded  = "grounded"
	ModeAmbiguous = "ambiguous"
	ModeFallback  = "fallback"
)

// Conversation 代表一个用户与某个智能体的会话。
type Conversation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AgentID   uint      `gorm:"index;not null" json:"agentId"`
	CompanyID uint      `gorm:"index;not null" json:"companyId"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Citation 是随回答展示的引用快照。
type Citation struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
	ChunkID    uint    `json:"chunkId"`
}

// Message 代表会话中的一条消息；助手消息附带回答模式、置信度与引用快照。
type Message struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string     `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	Role           string     `gorm:"type:varchar(10);not null" json:"role"` // "user" 或 "assistant"
	Content        string     `gorm:"type:text;not null" json:"content"`
	Mode           string     `gorm:"type:varchar(10)" json:"mode,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	Citations      []Citation `gorm:"serializer:json;type:json" json:"citations,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// AmbiguityCandidate 是歧义回答时提供给用户选择的候选来源。
type AmbiguityCandidate struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
	ChunkID    uint    `json:"chunkId"`
}

// AmbiguityEvent 记录一次证据歧义：创建时未解决，
// 用户明确选择来源后写入 SelectedDocumentID 与 ResolvedAt（至多一次）。
type AmbiguityEvent struct {
	ID                 string               `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID     string               `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	AgentID            uint                 `gorm:"index;not null" json:"agentId"`
	Question           string               `gorm:"type:text;not null" json:"question"`
	Candidates         []AmbiguityCandidate `gorm:"serializer:json;type:json" json:"candidates"`
	SelectedDocumentID *string              `gorm:"type:varchar(36)" json:"selectedDocumentId,omitempty"`
	ResolvedAt         *time.Time           `json:"resolvedAt,omitempty"`
	CreatedAt          time.Time            `gorm:"autoCreateTime" json:"createdAt"`
}

func (AmbiguityEvent) TableName() string {
	return "ambiguity_events"
}
