package repository

import (
	"time"

	"edu-agent-go/internal/model"

	"gorm.io/gorm"
)

// AmbiguityRepository 定义了歧义事件的持久化操作。
type AmbiguityRepository interface {
	Create(event *model.AmbiguityEvent) error
	FindByIDScoped(eventID string, agentID uint) (*model.AmbiguityEvent, error)
	// Resolve 写入用户选择的来源与解决时间。
	// WHERE resolved_at IS NULL 保证重复调用不会改写首次选择。
	Resolve(eventID, selectedDocumentID string) error
}

type ambiguityRepository struct {
	db *gorm.DB
}

// NewAmbiguityRepository 创建一个新的 AmbiguityRepository 实例。
func NewAmbiguityRepository(db *gorm.DB) AmbiguityRepository {
	return &ambiguityRepository{db: db}
}

// Create 创建一条未解决的歧义事件。
func (r *ambiguityRepository) Create(event *model.AmbiguityEvent) error {
	return r.db.Create(event).Error
}

// FindByIDScoped 按 ID 查找歧义事件，限定智能体范围。
func (r *ambiguityRepository) FindByIDScoped(eventID string, agentID uint) (*model.AmbiguityEvent, error) {
	var event model.AmbiguityEvent
	err := r.db.Where("id = ? AND agent_id = ?", eventID, agentID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Resolve 将事件标记为已解决（幂等）。
func (r *ambiguityRepository) Resolve(eventID, selectedDocumentID string) error {
	now := time.Now()
	return r.db.Model(&model.AmbiguityEvent{}).
		Where("id = ? AND resolved_at IS NULL", eventID).
		Updates(map[string]interface{}{
			"selected_document_id": selectedDocumentID,
			"resolved_at":          &now,
		}).Error
}
