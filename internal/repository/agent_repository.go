// Package repository 提供了数据访问层的实现。
package repository

import (
	"edu-agent-go/internal/model"

	"gorm.io/gorm"
)

// AgentRepository 定义了对 agents 表的数据操作接口。
// 所有查询都带 companyID 条件：跨租户的记录一律表现为不存在。
type AgentRepository interface {
	Create(agent *model.Agent) error
	Update(agent *model.Agent) error
	FindByID(agentID, companyID uint) (*model.Agent, error)
	FindByCompanyID(companyID uint) ([]model.Agent, error)
}

type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建一个新的 AgentRepository 实例。
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

// Create 创建一个新的智能体记录。
func (r *agentRepository) Create(agent *model.Agent) error {
	return r.db.Create(agent).Error
}

// Update 保存智能体配置。
func (r *agentRepository) Update(agent *model.Agent) error {
	return r.db.Save(agent).Error
}

// FindByID 按 ID 查找智能体，限定在指定公司范围内。
func (r *agentRepository) FindByID(agentID, companyID uint) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.Where("id = ? AND company_id = ?", agentID, companyID).First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// FindByCompanyID 返回公司下的全部智能体。
func (r *agentRepository) FindByCompanyID(companyID uint) ([]model.Agent, error) {
	var agents []model.Agent
	err := r.db.Where("company_id = ?", companyID).Order("id asc").Find(&agents).Error
	return agents, err
}
