package service

import (
	"context"

	"edu-agent-go/pkg/es"
	"edu-agent-go/pkg/kafka"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/tasks"
)

// InsightService 记录问答洞察事件并提供查询。
// 写路径是发后不管：事件进 Kafka，后台消费者落 Elasticsearch；
// 任何一步失败都不影响问答主流程。
type InsightService interface {
	Record(event tasks.InsightEvent)
	RecentInsights(ctx context.Context, agentID, companyID uint, size int) ([]tasks.InsightEvent, error)
}

type insightService struct {
	insightIndex string
}

// NewInsightService 创建一个新的 InsightService 实例。
func NewInsightService(insightIndex string) InsightService {
	return &insightService{insightIndex: insightIndex}
}

// Record 把洞察事件发往 Kafka，失败只记日志。
func (s *insightService) Record(event tasks.InsightEvent) {
	if err := kafka.ProduceInsightEvent(event); err != nil {
		log.Errorf("[InsightService] 发送洞察事件失败: conversation=%s, err=%v", event.ConversationID, err)
	}
}

// RecentInsights 从 Elasticsearch 查询指定智能体最近的洞察事件。
func (s *insightService) RecentInsights(ctx context.Context, agentID, companyID uint, size int) ([]tasks.InsightEvent, error) {
	if size <= 0 || size > 100 {
		size = 20
	}
	return es.SearchRecentInsights(ctx, s.insightIndex, agentID, companyID, size)
}

// ESInsightSink 把洞察事件写入 Elasticsearch，供 Kafka 洞察消费者使用。
type ESInsightSink struct {
	IndexName string
}

// Index 实现 kafka.InsightSink。
func (s *ESInsightSink) Index(ctx context.Context, event tasks.InsightEvent) error {
	return es.IndexInsight(ctx, s.IndexName, event)
}
