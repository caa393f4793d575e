package handler

import (
	"net/http"
	"strings"

	"edu-agent-go/internal/middleware"
	"edu-agent-go/internal/service"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理知识来源管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

type textSourceRequest struct {
	Title string `json:"title" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

// CreateSource 处理创建知识来源的请求。
// multipart 表单走文件上传路径（异步摄取），JSON 体走文本录入路径（同步摄取）。
func (h *DocumentHandler) CreateSource(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.createFileSource(c, claims.CompanyID, agentID)
		return
	}
	h.createTextSource(c, claims.CompanyID, agentID)
}

func (h *DocumentHandler) createFileSource(c *gin.Context, companyID, agentID uint) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	title := c.PostForm("title")

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer file.Close()

	dto, err := h.docService.CreateFileSource(c.Request.Context(), companyID, agentID, title, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		respondServiceError(c, "创建文件来源失败", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "文件来源创建成功，正在后台处理",
		"data":    dto,
	})
}

func (h *DocumentHandler) createTextSource(c *gin.Context, companyID, agentID uint) {
	var req textSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}

	dto, err := h.docService.CreateTextSource(c.Request.Context(), companyID, agentID, req.Title, req.Text)
	if err != nil {
		respondServiceError(c, "创建文本来源失败", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "文本来源创建成功",
		"data":    dto,
	})
}

// ListSources 处理获取知识来源列表的请求。
func (h *DocumentHandler) ListSources(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	dtos, err := h.docService.ListSources(agentID, claims.CompanyID)
	if err != nil {
		respondServiceError(c, "获取来源列表失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取来源列表成功",
		"data":    dtos,
	})
}

// GenerateDownloadURL 处理生成文件下载链接的请求。
func (h *DocumentHandler) GenerateDownloadURL(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	docID := c.Param("docId")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文档 ID"})
		return
	}
	claims := middleware.GetClaims(c)

	downloadInfo, err := h.docService.GetDownloadInfo(docID, agentID, claims.CompanyID)
	if err != nil {
		respondServiceError(c, "生成下载链接失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文件下载链接生成成功",
		"data":    downloadInfo,
	})
}

// DeleteSource 处理删除知识来源的请求。
func (h *DocumentHandler) DeleteSource(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	docID := c.Param("docId")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文档 ID"})
		return
	}
	claims := middleware.GetClaims(c)

	if err := h.docService.DeleteSource(c.Request.Context(), docID, agentID, claims.CompanyID); err != nil {
		respondServiceError(c, "删除来源失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "来源删除成功",
	})
}
