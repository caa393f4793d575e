package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
	"edu-agent-go/internal/pipeline"
	"edu-agent-go/internal/repository"
	"edu-agent-go/pkg/kafka"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/storage"
	"edu-agent-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 允许上传的文件类型。Tika 能处理的格式远不止这些，
// 但知识来源只收常见的文档类格式。
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
}

// DocumentService 管理智能体的知识来源：创建（文本/文件）、列表、下载与删除。
type DocumentService interface {
	// CreateTextSource 同步摄取一段录入文本，返回时文档已是 READY 或报错。
	CreateTextSource(ctx context.Context, companyID, agentID uint, title, text string) (*model.SourceDocumentDTO, error)
	// CreateFileSource 把文件写入对象存储并投递摄取任务，返回 PROCESSING 态的文档。
	CreateFileSource(ctx context.Context, companyID, agentID uint, title, fileName string, file io.Reader, size int64) (*model.SourceDocumentDTO, error)
	ListSources(agentID, companyID uint) ([]model.SourceDocumentDTO, error)
	GetDownloadInfo(docID string, agentID, companyID uint) (*model.DownloadInfoDTO, error)
	DeleteSource(ctx context.Context, docID string, agentID, companyID uint) error
}

type documentService struct {
	agentRepo repository.AgentRepository
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	processor *pipeline.Processor
	minioCfg  config.MinIOConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	agentRepo repository.AgentRepository,
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	processor *pipeline.Processor,
	minioCfg config.MinIOConfig,
) DocumentService {
	return &documentService{
		agentRepo: agentRepo,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		processor: processor,
		minioCfg:  minioCfg,
	}
}

// CreateTextSource 创建文本类来源并在请求内完成摄取。
func (s *documentService) CreateTextSource(ctx context.Context, companyID, agentID uint, title, text string) (*model.SourceDocumentDTO, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.agentRepo.FindByID(agentID, companyID); err != nil {
		return nil, asNotFound(err)
	}

	doc := &model.SourceDocument{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		CompanyID:  companyID,
		Title:      title,
		SourceType: model.SourceTypeText,
		RawText:    text,
		Status:     model.DocStatusProcessing,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	// 文本来源体量小，同步走完整摄取流水线
	if err := s.processor.Ingest(ctx, doc); err != nil {
		return nil, err
	}

	fresh, err := s.docRepo.FindByID(doc.ID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(fresh)
}

// CreateFileSource 创建文件类来源：对象入 MinIO，摄取任务入 Kafka。
// 返回时文档处于 PROCESSING，后台消费者负责推进到 READY/FAILED。
func (s *documentService) CreateFileSource(ctx context.Context, companyID, agentID uint, title, fileName string, file io.Reader, size int64) (*model.SourceDocumentDTO, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = fileName
	}
	if title == "" || fileName == "" {
		return nil, ErrInvalidInput
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	mimeType, ok := allowedExtensions[ext]
	if !ok {
		return nil, ErrUnsupportedMediaType
	}
	if _, err := s.agentRepo.FindByID(agentID, companyID); err != nil {
		return nil, asNotFound(err)
	}

	docID := uuid.NewString()
	objectName := fmt.Sprintf("sources/%d/%s%s", agentID, docID, ext)
	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName, file, size, mimeType); err != nil {
		log.Errorf("[DocumentService] 上传文件到 MinIO 失败, objectName: %s, error: %v", objectName, err)
		return nil, fmt.Errorf("上传文件失败: %w", err)
	}

	doc := &model.SourceDocument{
		ID:         docID,
		AgentID:    agentID,
		CompanyID:  companyID,
		Title:      title,
		SourceType: model.SourceTypeFile,
		ObjectName: objectName,
		MimeType:   mimeType,
		Status:     model.DocStatusProcessing,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	task := tasks.IngestTask{
		DocumentID: docID,
		AgentID:    agentID,
		CompanyID:  companyID,
		ObjectName: objectName,
		FileName:   fileName,
		MimeType:   mimeType,
	}
	if err := kafka.ProduceIngestTask(task); err != nil {
		// 任务没发出去文档会卡在 PROCESSING，直接标记失败
		if markErr := s.docRepo.UpdateStatus(docID, model.DocStatusFailed, "投递摄取任务失败"); markErr != nil {
			log.Errorf("[DocumentService] 标记文档失败状态时出错 (doc=%s): %v", docID, markErr)
		}
		return nil, fmt.Errorf("投递摄取任务失败: %w", err)
	}

	log.Infof("[DocumentService] 文件来源已创建并投递摄取任务, DocumentID: %s, FileName: %s", docID, fileName)
	return s.toDTO(doc)
}

// ListSources 返回智能体的全部来源摘要，附带各自的分块数。
func (s *documentService) ListSources(agentID, companyID uint) ([]model.SourceDocumentDTO, error) {
	if _, err := s.agentRepo.FindByID(agentID, companyID); err != nil {
		return nil, asNotFound(err)
	}
	docs, err := s.docRepo.FindByAgentID(agentID)
	if err != nil {
		return nil, err
	}

	docIDs := make([]string, len(docs))
	for i, d := range docs {
		docIDs[i] = d.ID
	}
	counts, err := s.chunkRepo.CountByDocumentIDs(docIDs)
	if err != nil {
		return nil, err
	}

	dtos := make([]model.SourceDocumentDTO, 0, len(docs))
	for _, d := range docs {
		dtos = append(dtos, model.SourceDocumentDTO{
			ID:         d.ID,
			AgentID:    d.AgentID,
			Title:      d.Title,
			SourceType: d.SourceType,
			Status:     d.Status,
			FailReason: d.FailReason,
			ChunkCount: counts[d.ID],
			CreatedAt:  model.LocalTime(d.CreatedAt),
		})
	}
	return dtos, nil
}

// GetDownloadInfo 为文件类来源生成限时下载链接。
func (s *documentService) GetDownloadInfo(docID string, agentID, companyID uint) (*model.DownloadInfoDTO, error) {
	doc, err := s.docRepo.FindByIDScoped(docID, agentID, companyID)
	if err != nil {
		return nil, asNotFound(err)
	}
	if doc.SourceType != model.SourceTypeFile || doc.ObjectName == "" {
		return nil, ErrInvalidInput
	}
	url, err := storage.GetPresignedURL(s.minioCfg.BucketName, doc.ObjectName, 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("生成下载链接失败: %w", err)
	}
	return &model.DownloadInfoDTO{Title: doc.Title, DownloadURL: url}, nil
}

// DeleteSource 级联删除来源：对象存储里的文件、全部分块与文档记录。
func (s *documentService) DeleteSource(ctx context.Context, docID string, agentID, companyID uint) error {
	doc, err := s.docRepo.FindByIDScoped(docID, agentID, companyID)
	if err != nil {
		return asNotFound(err)
	}

	if doc.ObjectName != "" {
		if err := storage.RemoveObject(ctx, s.minioCfg.BucketName, doc.ObjectName); err != nil {
			// 对象删除失败不阻断数据库清理，留给存储侧的生命周期策略兜底
			log.Warnf("[DocumentService] 删除 MinIO 对象失败, objectName: %s, error: %v", doc.ObjectName, err)
		}
	}

	if err := s.docRepo.Delete(doc.ID); err != nil {
		return fmt.Errorf("删除文档失败: %w", err)
	}
	log.Infof("[DocumentService] 来源已删除, DocumentID: %s, Title: %s", doc.ID, doc.Title)
	return nil
}

// toDTO 把文档记录转换为摘要 DTO。
func (s *documentService) toDTO(doc *model.SourceDocument) (*model.SourceDocumentDTO, error) {
	counts, err := s.chunkRepo.CountByDocumentIDs([]string{doc.ID})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &model.SourceDocumentDTO{
		ID:         doc.ID,
		AgentID:    doc.AgentID,
		Title:      doc.Title,
		SourceType: doc.SourceType,
		Status:     doc.Status,
		FailReason: doc.FailReason,
		ChunkCount: counts[doc.ID],
		CreatedAt:  model.LocalTime(doc.CreatedAt),
	}, nil
}
