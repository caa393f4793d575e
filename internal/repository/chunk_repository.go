package repository

import (
	"edu-agent-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 chunks 表的数据操作接口。
type ChunkRepository interface {
	// ReplaceForDocument 在单个事务内清理并批量写入一个文档的全部分块。
	// 读者不会看到 READY 文档只带着一部分分块的中间态。
	ReplaceForDocument(docID string, chunks []*model.Chunk) error
	FindByAgentID(agentID uint) ([]*model.Chunk, error)
	// FindByIDScopedToAgent 按分块 ID 查找，限定智能体范围；跨智能体按不存在处理。
	FindByIDScopedToAgent(chunkID, agentID uint) (*model.Chunk, error)
	CountByDocumentIDs(docIDs []string) (map[string]int64, error)
	DeleteByDocumentID(docID string) error
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// ReplaceForDocument 原子性地写入一个文档的全部分块。
func (r *chunkRepository) ReplaceForDocument(docID string, chunks []*model.Chunk) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error // 每100条记录一批
	})
}

// FindByAgentID 返回智能体的全部分块（含向量），按创建顺序。
func (r *chunkRepository) FindByAgentID(agentID uint) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	err := r.db.Where("agent_id = ?", agentID).Order("id asc").Find(&chunks).Error
	return chunks, err
}

// FindByIDScopedToAgent 按分块 ID 查找，并校验归属智能体。
func (r *chunkRepository) FindByIDScopedToAgent(chunkID, agentID uint) (*model.Chunk, error) {
	var chunk model.Chunk
	err := r.db.Where("id = ? AND agent_id = ?", chunkID, agentID).First(&chunk).Error
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// CountByDocumentIDs 批量统计每个文档的分块数。
func (r *chunkRepository) CountByDocumentIDs(docIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(docIDs))
	if len(docIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		DocumentID string
		Cnt        int64
	}
	err := r.db.Model(&model.Chunk{}).
		Select("document_id, count(*) as cnt").
		Where("document_id IN ?", docIDs).
		Group("document_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.DocumentID] = row.Cnt
	}
	return counts, nil
}

// DeleteByDocumentID 删除一个文档的全部分块。
func (r *chunkRepository) DeleteByDocumentID(docID string) error {
	return r.db.Where("document_id = ?", docID).Delete(&model.Chunk{}).Error
}
