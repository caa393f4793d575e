// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 文档处理状态。文档要么 READY 且全部分块可检索，要么 FAILED 且没有有效分块，
// 不存在长期停留在 PROCESSING 的中间态。
const (
	DocStatusProcessing = "PROCESSING"
	DocStatusReady      = "READY"
	DocStatusFailed     = "FAILED"
)

// 文档来源类型：纯文本录入或文件上传。
const (
	SourceTypeText = "text"
	SourceTypeFile = "file"
)

// SourceDocument 对应于数据库中的 'source_documents' 表。
// 它记录一份知识来源（上传文件或录入文本）及其摄取状态。
type SourceDocument struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AgentID   uint   `gorm:"index;not null" json:"agentId"`
	CompanyID uint   `gorm:"index;not null" json:"companyId"`
	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	// SourceType 为 text 或 file
	SourceType string `gorm:"type:varchar(10);not null" json:"sourceType"`
	// RawText 是提取后的原始文本，文件类文档在摄取完成后回填
	RawText    string    `gorm:"type:longtext" json:"-"`
	ObjectName string    `gorm:"type:varchar(512)" json:"-"`
	MimeType   string    `gorm:"type:varchar(100)" json:"mimeType"`
	Status     string    `gorm:"type:varchar(16);not null;default:'PROCESSING'" json:"status"`
	FailReason string    `gorm:"type:varchar(512)" json:"failReason,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SourceDocument) TableName() string {
	return "source_documents"
}
