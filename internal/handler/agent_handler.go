// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"edu-agent-go/internal/middleware"
	"edu-agent-go/internal/service"
	"edu-agent-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AgentHandler 负责处理智能体管理相关的 API 请求。
type AgentHandler struct {
	agentService service.AgentService
}

// NewAgentHandler 创建一个新的 AgentHandler 实例。
func NewAgentHandler(agentService service.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

type agentRequest struct {
	Name         string `json:"name" binding:"required"`
	Color        string `json:"color"`
	Instructions string `json:"instructions"`
	Enabled      *bool  `json:"enabled"`
}

// CreateAgent 处理创建智能体的请求。
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}
	claims := middleware.GetClaims(c)

	agent, err := h.agentService.Create(claims.CompanyID, req.Name, req.Color, req.Instructions)
	if err != nil {
		respondServiceError(c, "创建智能体失败", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "智能体创建成功",
		"data":    agent,
	})
}

// UpdateAgent 处理更新智能体配置的请求。
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	claims := middleware.GetClaims(c)

	agent, err := h.agentService.Update(agentID, claims.CompanyID, req.Name, req.Color, req.Instructions, enabled)
	if err != nil {
		respondServiceError(c, "更新智能体失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "智能体更新成功",
		"data":    agent,
	})
}

// ListAgents 处理获取智能体列表的请求。
func (h *AgentHandler) ListAgents(c *gin.Context) {
	claims := middleware.GetClaims(c)
	agents, err := h.agentService.List(claims.CompanyID)
	if err != nil {
		respondServiceError(c, "获取智能体列表失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取智能体列表成功",
		"data":    agents,
	})
}

// parseAgentID 从路径参数解析智能体 ID，失败时直接响应 400。
func parseAgentID(c *gin.Context) (uint, bool) {
	agentID, err := strconv.ParseUint(c.Param("agentId"), 10, 64)
	if err != nil || agentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的智能体 ID"})
		return 0, false
	}
	return uint(agentID), true
}

// respondServiceError 把业务层错误映射为 HTTP 响应。
// 越权与不存在统一表现为 404，不泄露跨租户资源的存在性。
func respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "资源不存在"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
	case errors.Is(err, service.ErrUnsupportedMediaType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "不支持的文件类型"})
	case errors.Is(err, service.ErrAgentDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "智能体已停用"})
	default:
		log.Errorf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
