package service

import (
	"strings"

	"edu-agent-go/internal/model"
	"edu-agent-go/internal/repository"
)

// AgentService 提供智能体配置的轻量 CRUD。
type AgentService interface {
	Create(companyID uint, name, color, instructions string) (*model.Agent, error)
	Update(agentID, companyID uint, name, color, instructions string, enabled bool) (*model.Agent, error)
	List(companyID uint) ([]model.Agent, error)
}

type agentService struct {
	agentRepo repository.AgentRepository
}

// NewAgentService 创建一个新的 AgentService 实例。
func NewAgentService(agentRepo repository.AgentRepository) AgentService {
	return &agentService{agentRepo: agentRepo}
}

// Create 创建一个新的智能体，默认启用。
func (s *agentService) Create(companyID uint, name, color, instructions string) (*model.Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	agent := &model.Agent{
		CompanyID:    companyID,
		Name:         name,
		Color:        color,
		Enabled:      true,
		Instructions: instructions,
	}
	if err := s.agentRepo.Create(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// Update 更新智能体配置。
func (s *agentService) Update(agentID, companyID uint, name, color, instructions string, enabled bool) (*model.Agent, error) {
	agent, err := s.agentRepo.FindByID(agentID, companyID)
	if err != nil {
		return nil, asNotFound(err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	agent.Name = name
	agent.Color = color
	agent.Instructions = instructions
	agent.Enabled = enabled
	if err := s.agentRepo.Update(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// List 返回公司下的全部智能体。
func (s *agentService) List(companyID uint) ([]model.Agent, error) {
	return s.agentRepo.FindByCompanyID(companyID)
}
