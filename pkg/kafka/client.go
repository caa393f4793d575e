// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"

	"edu-agent-go/internal/config"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process an ingest task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// InsightSink 接收洞察事件并写入分析存储（当前实现为 Elasticsearch）。
type InsightSink interface {
	Index(ctx context.Context, event tasks.InsightEvent) error
}

var (
	ingestProducer  *kafka.Writer
	insightProducer *kafka.Writer
)

// InitProducers 初始化 Kafka 生产者。
func InitProducers(cfg config.KafkaConfig) {
	ingestProducer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.IngestTopic,
		Balancer: &kafka.LeastBytes{},
	}
	insightProducer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.InsightTopic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceIngestTask 发送一个文档处理任务到 Kafka。
func ProduceIngestTask(task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return ingestProducer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(task.DocumentID),
			Value: taskBytes,
		},
	)
}

// ProduceInsightEvent 发送一个问答洞察事件到 Kafka。
func ProduceInsightEvent(event tasks.InsightEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return insightProducer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.ConversationID),
			Value: eventBytes,
		},
	)
}

// StartIngestConsumer 启动一个 Kafka 消费者来处理文档摄取任务。
// 摄取失败不做自动重试：Processor 已把文档标记为 FAILED，重新上传即新文档，
// 所以无论成败都提交 offset，避免同一文档反复走流水线。
func StartIngestConsumer(cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.IngestTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 摄取消费者已启动，正在监听主题 '%s'", cfg.IngestTopic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var task tasks.IngestTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("开始处理摄取任务: DocumentID=%s, FileName=%s", task.DocumentID, task.FileName)
		if err := processor.Process(context.Background(), task); err != nil {
			log.Errorf("摄取任务处理失败: DocumentID=%s, Error: %v", task.DocumentID, err)
		} else {
			log.Infof("摄取任务处理成功: DocumentID=%s", task.DocumentID)
		}
		if err := r.CommitMessages(context.Background(), m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 摄取消费者失败: %v", err)
	}
}

// StartInsightConsumer 启动一个 Kafka 消费者，把洞察事件写入分析存储。
func StartInsightConsumer(cfg config.KafkaConfig, sink InsightSink) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.InsightTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	log.Infof("Kafka 洞察消费者已启动，正在监听主题 '%s'", cfg.InsightTopic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var event tasks.InsightEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("无法解析洞察事件: %v, value: %s", err, string(m.Value))
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		// 洞察数据非关键路径，写入失败只记日志并提交 offset
		if err := sink.Index(context.Background(), event); err != nil {
			log.Errorf("写入洞察事件失败: conversation=%s, err=%v", event.ConversationID, err)
		}
		if err := r.CommitMessages(context.Background(), m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 洞察消费者失败: %v", err)
	}
}
