package model

import "time"

// Chunk 对应于数据库中的 'chunks' 表。
// 每个分块属于一个源文档；AgentID 冗余存储，检索时直接按智能体过滤。
// 分块一经创建不再修改，只随父文档删除。
type Chunk struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID  string `gorm:"type:varchar(36);index;not null" json:"documentId"`
	AgentID     uint   `gorm:"index;not null" json:"agentId"`
	ChunkIndex  int    `gorm:"not null" json:"chunkIndex"`
	TextContent string `gorm:"type:text;not null" json:"textContent"`
	TokenCount  int    `gorm:"not null" json:"tokenCount"`
	// LexicalVector 是归一化的稀疏词项权重映射
	LexicalVector map[string]float64 `gorm:"serializer:json;type:json" json:"-"`
	// Embedding 及其提供方/模型标识；同一智能体内所有分块的维度必须一致
	Embedding         []float32 `gorm:"serializer:json;type:json" json:"-"`
	EmbeddingProvider string    `gorm:"type:varchar(50)" json:"embeddingProvider"`
	EmbeddingModel    string    `gorm:"type:varchar(100)" json:"embeddingModel"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Chunk) TableName() string {
	return "chunks"
}

// RetrievedChunk 是检索阶段的临时结构：分块加上本次查询计算出的综合得分。
// 它不落库，每次查询重新计算。
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}
