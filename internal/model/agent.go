// Package model 包含了应用的数据模型定义。
package model

import "time"

// Agent 对应于数据库中的 'agents' 表。
// 每个企业（公司）可以配置多个知识助手，各自挂载独立的文档库。
type Agent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID uint   `gorm:"index;not null" json:"companyId"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	// Color 是前端展示用的主题色
	Color   string `gorm:"type:varchar(20)" json:"color"`
	Enabled bool   `gorm:"not null;default:true" json:"enabled"`
	// Instructions 是管理员配置的自由文本指令，会被拼入生成提示词
	Instructions string    `gorm:"type:text" json:"instructions"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Agent) TableName() string {
	return "agents"
}
