package handler

import (
	"net/http"
	"strconv"

	"edu-agent-go/internal/middleware"
	"edu-agent-go/internal/service"

	"github.com/gin-gonic/gin"
)

// InsightHandler 负责处理问答洞察查询相关的 API 请求。
type InsightHandler struct {
	insightService service.InsightService
}

// NewInsightHandler 创建一个新的 InsightHandler 实例。
func NewInsightHandler(insightService service.InsightService) *InsightHandler {
	return &InsightHandler{insightService: insightService}
}

// ListRecentInsights 处理查询智能体最近问答洞察的请求。
func (h *InsightHandler) ListRecentInsights(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	claims := middleware.GetClaims(c)

	events, err := h.insightService.RecentInsights(c.Request.Context(), agentID, claims.CompanyID, size)
	if err != nil {
		respondServiceError(c, "查询问答洞察失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "查询问答洞察成功",
		"data":    events,
	})
}
