package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
	"edu-agent-go/internal/repository"
	"edu-agent-go/pkg/embedding"
	"edu-agent-go/pkg/lexical"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/storage"
	"edu-agent-go/pkg/tasks"
	"edu-agent-go/pkg/tika"
)

// ErrEmptyDocument 表示文档文本为空或提取不出任何可用分块。
var ErrEmptyDocument = errors.New("文档内容为空或无法提取有效分块")

// Processor 封装了文档摄取的所有依赖和逻辑。
// 摄取对单个文档是全有或全无的：要么 READY 且全部分块入库，
// 要么 FAILED 且没有任何分块可被检索到。
type Processor struct {
	tikaClient      *tika.Client
	embeddingClient embedding.Client
	minioCfg        config.MinIOConfig
	ingestCfg       config.IngestConfig
	docRepo         repository.DocumentRepository
	chunkRepo       repository.ChunkRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	minioCfg config.MinIOConfig,
	ingestCfg config.IngestConfig,
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		minioCfg:        minioCfg,
		ingestCfg:       ingestCfg,
		docRepo:         docRepo,
		chunkRepo:       chunkRepo,
	}
}

// Process 处理一个来自 Kafka 的文件摄取任务：
// 从 MinIO 下载原始对象，经 Tika 提取文本后走统一的 Ingest 流程。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理文件文档, DocumentID: %s, FileName: %s", task.DocumentID, task.FileName)

	doc, err := p.docRepo.FindByID(task.DocumentID)
	if err != nil {
		return fmt.Errorf("查找文档记录失败: %w", err)
	}

	// 1. 从 MinIO 下载文件
	object, err := storage.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		p.markFailed(doc.ID, "从对象存储下载文件失败")
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		p.markFailed(doc.ID, "读取对象流失败")
		return fmt.Errorf("读取 MinIO 对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)
	if size == 0 {
		p.markFailed(doc.ID, "文件内容为空")
		return ErrEmptyDocument
	}

	// 2. 使用 Tika 提取文本
	textContent, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		p.markFailed(doc.ID, "文本提取失败")
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 回填原始文本，方便后续排查与重新导入
	if err := p.docRepo.UpdateRawText(doc.ID, textContent); err != nil {
		log.Warnf("[Processor] 回填原始文本失败 (doc=%s): %v", doc.ID, err)
	}
	doc.RawText = textContent

	return p.Ingest(ctx, doc)
}

// Ingest 执行核心摄取流水线：分块 → 词法向量 → 批量嵌入 → 原子入库。
// 任何一步失败都会把文档标记为 FAILED 并把错误抛给调用方，
// 文档不会停留在 PROCESSING 状态。
func (p *Processor) Ingest(ctx context.Context, doc *model.SourceDocument) error {
	log.Infof("[Processor] 开始摄取文档, DocumentID: %s, Title: %s", doc.ID, doc.Title)

	// 1. 文本分块
	textChunks := SplitText(doc.RawText, p.ingestCfg.ChunkSize, p.ingestCfg.ChunkOverlap)
	if len(textChunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 摄取中止, DocumentID: %s", doc.ID)
		p.markFailed(doc.ID, "未提取出任何有效文本分块")
		return ErrEmptyDocument
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(textChunks))

	// 2. 批量向量化：一次提供方调用覆盖全部分块
	texts := make([]string, len(textChunks))
	for i, c := range textChunks {
		texts[i] = c.Content
	}
	embedResult, err := p.embeddingClient.EmbedBatch(ctx, texts)
	if err != nil {
		p.markFailed(doc.ID, "向量化失败")
		return fmt.Errorf("分块向量化失败: %w", err)
	}
	log.Infof("[Processor] 步骤4: 批量向量化成功, 向量维度: %d, 模型: %s", len(embedResult.Vectors[0]), embedResult.Model)

	// 3. 计算词法向量并组装分块记录
	chunks := make([]*model.Chunk, 0, len(textChunks))
	for i, c := range textChunks {
		chunks = append(chunks, &model.Chunk{
			DocumentID:        doc.ID,
			AgentID:           doc.AgentID,
			ChunkIndex:        c.Index,
			TextContent:       c.Content,
			TokenCount:        c.TokenCount,
			LexicalVector:     lexical.Vectorize(c.Content),
			Embedding:         embedResult.Vectors[i],
			EmbeddingProvider: embedResult.Provider,
			EmbeddingModel:    embedResult.Model,
		})
	}

	// 4. 单事务写入全部分块
	if err := p.chunkRepo.ReplaceForDocument(doc.ID, chunks); err != nil {
		p.markFailed(doc.ID, "分块入库失败")
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}

	// 5. 标记 READY
	if err := p.docRepo.UpdateStatus(doc.ID, model.DocStatusReady, ""); err != nil {
		return fmt.Errorf("更新文档状态失败: %w", err)
	}

	log.Infof("[Processor] 文档摄取成功完成, DocumentID: %s, 分块数: %d", doc.ID, len(chunks))
	return nil
}

// markFailed 尽力把文档标记为 FAILED，失败只记日志。
func (p *Processor) markFailed(docID, reason string) {
	if err := p.docRepo.UpdateStatus(docID, model.DocStatusFailed, reason); err != nil {
		log.Errorf("[Processor] 标记文档失败状态时出错 (doc=%s): %v", docID, err)
	}
}
