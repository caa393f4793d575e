package repository

import (
	"edu-agent-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 定义了对 source_documents 表的数据操作接口。
type DocumentRepository interface {
	Create(doc *model.SourceDocument) error
	FindByID(docID string) (*model.SourceDocument, error)
	FindByIDScoped(docID string, agentID, companyID uint) (*model.SourceDocument, error)
	FindByAgentID(agentID uint) ([]model.SourceDocument, error)
	UpdateStatus(docID, status, failReason string) error
	UpdateRawText(docID, rawText string) error
	// Delete 删除文档及其全部分块（单事务，级联）。
	Delete(docID string) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 创建一条新的源文档记录（初始状态由调用方设置，通常为 PROCESSING）。
func (r *documentRepository) Create(doc *model.SourceDocument) error {
	return r.db.Create(doc).Error
}

// FindByID 按 ID 查找源文档（内部流水线使用，不做租户过滤）。
func (r *documentRepository) FindByID(docID string) (*model.SourceDocument, error) {
	var doc model.SourceDocument
	err := r.db.Where("id = ?", docID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByIDScoped 按 ID 查找源文档，限定智能体与公司范围。
func (r *documentRepository) FindByIDScoped(docID string, agentID, companyID uint) (*model.SourceDocument, error) {
	var doc model.SourceDocument
	err := r.db.Where("id = ? AND agent_id = ? AND company_id = ?", docID, agentID, companyID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByAgentID 返回智能体下的全部源文档，按创建时间倒序。
func (r *documentRepository) FindByAgentID(agentID uint) ([]model.SourceDocument, error) {
	var docs []model.SourceDocument
	err := r.db.Where("agent_id = ?", agentID).Order("created_at desc").Find(&docs).Error
	return docs, err
}

// UpdateStatus 更新文档的处理状态与失败原因。
func (r *documentRepository) UpdateStatus(docID, status, failReason string) error {
	return r.db.Model(&model.SourceDocument{}).Where("id = ?", docID).
		Updates(map[string]interface{}{"status": status, "fail_reason": failReason}).Error
}

// UpdateRawText 回填文件类文档提取出的原始文本。
func (r *documentRepository) UpdateRawText(docID, rawText string) error {
	return r.db.Model(&model.SourceDocument{}).Where("id = ?", docID).Update("raw_text", rawText).Error
}

// Delete 在一个事务内删除文档记录与其全部分块。
func (r *documentRepository) Delete(docID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", docID).Delete(&model.SourceDocument{}).Error
	})
}
