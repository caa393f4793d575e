package handler

import (
	"net/http"

	"edu-agent-go/internal/middleware"
	"edu-agent-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理问答与歧义消解相关的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type askRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversationId"`
}

type resolveRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	EventID        string `json:"eventId"`
	ChunkID        uint   `json:"chunkId" binding:"required"`
	Question       string `json:"question" binding:"required"`
}

// Ask 处理单轮问答请求。
func (h *ChatHandler) Ask(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.chatService.Ask(c.Request.Context(), claims.CompanyID, claims.UserID, agentID, req.Question, req.ConversationID)
	if err != nil {
		respondServiceError(c, "问答处理失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "问答成功",
		"data":    resp,
	})
}

// Resolve 处理歧义消解请求：用户在候选来源中做出明确选择。
func (h *ChatHandler) Resolve(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.chatService.ResolveAmbiguity(c.Request.Context(), claims.CompanyID, claims.UserID, agentID,
		req.ConversationID, req.EventID, req.Question, req.ChunkID)
	if err != nil {
		respondServiceError(c, "歧义消解失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "歧义消解成功",
		"data":    resp,
	})
}
