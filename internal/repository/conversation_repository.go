// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"
	"time"

	"edu-agent-go/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationRepository 定义了会话与消息的持久化操作。
// 会话与消息落 MySQL；"用户在某智能体下的当前会话"映射放在 Redis，
// 与上游聊天模块保持一致的键结构。
type ConversationRepository interface {
	GetOrCreateConversation(ctx context.Context, agentID, companyID, userID uint) (*model.Conversation, error)
	FindByIDScoped(conversationID string, agentID, companyID uint) (*model.Conversation, error)
	AppendMessage(msg *model.Message) error
	FindMessages(conversationID string) ([]model.Message, error)
}

type conversationRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB, redisClient *redis.Client) ConversationRepository {
	return &conversationRepository{db: db, redisClient: redisClient}
}

// currentConversationKey 生成 Redis 中当前会话映射的键。
func currentConversationKey(agentID, userID uint) string {
	return fmt.Sprintf("agent:%d:user:%d:current_conversation", agentID, userID)
}

// GetOrCreateConversation 获取用户在该智能体下的当前会话，不存在则创建。
// Redis 映射 7 天过期，过期后自然开启新会话。
func (r *conversationRepository) GetOrCreateConversation(ctx context.Context, agentID, companyID, userID uint) (*model.Conversation, error) {
	key := currentConversationKey(agentID, userID)
	convID, err := r.redisClient.Get(ctx, key).Result()
	if err == nil && convID != "" {
		var conv model.Conversation
		if dbErr := r.db.Where("id = ?", convID).First(&conv).Error; dbErr == nil {
			return &conv, nil
		}
		// Redis 里的会话在库中不存在（被清理），走新建
	} else if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get current conversation id: %w", err)
	}

	conv := &model.Conversation{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		CompanyID: companyID,
		UserID:    userID,
	}
	if err := r.db.Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, conv.ID, 7*24*time.Hour).Err(); err != nil {
		return nil, fmt.Errorf("failed to set current conversation id: %w", err)
	}
	return conv, nil
}

// FindByIDScoped 按 ID 查找会话，限定智能体与公司范围。
func (r *conversationRepository) FindByIDScoped(conversationID string, agentID, companyID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("id = ? AND agent_id = ? AND company_id = ?", conversationID, agentID, companyID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendMessage 追加一条会话消息。
func (r *conversationRepository) AppendMessage(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// FindMessages 返回会话的全部消息，按时间顺序。
func (r *conversationRepository) FindMessages(conversationID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.Where("conversation_id = ?", conversationID).Order("id asc").Find(&messages).Error
	return messages, err
}
