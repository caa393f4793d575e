package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"edu-agent-go/internal/model"
	"edu-agent-go/internal/repository"
	"edu-agent-go/pkg/embedding"
	"edu-agent-go/pkg/lexical"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 用户明确选定来源后歧义已被外部消解，置信度固定为高位常量。
const resolvedConfidence = 0.96

// 引用摘录的最大长度（按 rune 计）。
const excerptLimit = 200

// ChatService 编排单轮"检索-判定-生成"问答流程与歧义消解流程。
type ChatService interface {
	Ask(ctx context.Context, companyID, userID, agentID uint, question, conversationID string) (*model.AskResponseDTO, error)
	ResolveAmbiguity(ctx context.Context, companyID, userID, agentID uint, conversationID, eventID, question string, chunkID uint) (*model.AskResponseDTO, error)
}

type chatService struct {
	agentRepo        repository.AgentRepository
	docRepo          repository.DocumentRepository
	chunkRepo        repository.ChunkRepository
	conversationRepo repository.ConversationRepository
	ambiguityRepo    repository.AmbiguityRepository
	embeddingClient  embedding.Client
	retrievalService RetrievalService
	answerService    AnswerService
	insightService   InsightService
	thresholds       Thresholds
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	agentRepo repository.AgentRepository,
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	conversationRepo repository.ConversationRepository,
	ambiguityRepo repository.AmbiguityRepository,
	embeddingClient embedding.Client,
	retrievalService RetrievalService,
	answerService AnswerService,
	insightService InsightService,
	thresholds Thresholds,
) ChatService {
	return &chatService{
		agentRepo:        agentRepo,
		docRepo:          docRepo,
		chunkRepo:        chunkRepo,
		conversationRepo: conversationRepo,
		ambiguityRepo:    ambiguityRepo,
		embeddingClient:  embeddingClient,
		retrievalService: retrievalService,
		answerService:    answerService,
		insightService:   insightService,
		thresholds:       thresholds,
	}
}

// Ask 处理一个用户问题：检索 → 证据判定 → 生成 → 持久化 → 洞察上报。
func (s *chatService) Ask(ctx context.Context, companyID, userID, agentID uint, question, conversationID string) (*model.AskResponseDTO, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	agent, err := s.findEnabledAgent(agentID, companyID)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, agentID, companyID, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.conversationRepo.AppendMessage(&model.Message{
		ConversationID: conv.ID,
		Role:           "user",
		Content:        question,
	}); err != nil {
		return nil, fmt.Errorf("保存用户消息失败: %w", err)
	}

	// 1. 查询向量化：语义向量 + 词法向量
	queryVec, err := s.embeddingClient.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	queryLex := lexical.Vectorize(question)

	// 2. 混合检索（仅限本智能体的分块）
	ranked, err := s.retrievalService.Retrieve(agentID, queryVec, queryLex)
	if err != nil {
		return nil, fmt.Errorf("检索分块失败: %w", err)
	}

	// 3. 证据判定
	decision := DecideEvidence(ranked, s.thresholds)
	log.Infof("[ChatService] 证据判定完成, AgentID: %d, mode: %s, confidence: %.2f, 证据数: %d",
		agentID, decision.Mode, decision.Confidence, len(decision.Selected))

	citations, passages, err := s.buildCitations(decision.Selected)
	if err != nil {
		return nil, err
	}

	// 4. 生成回答
	answer, err := s.answerService.Generate(ctx, question, decision.Mode, agent.Instructions, passages)
	if err != nil {
		return nil, err
	}

	// 5. 歧义模式下创建未解决的歧义事件，供后续消解
	var eventID string
	if decision.Mode == model.ModeAmbiguous {
		event := &model.AmbiguityEvent{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			AgentID:        agentID,
			Question:       question,
			Candidates:     toCandidates(citations),
		}
		if err := s.ambiguityRepo.Create(event); err != nil {
			return nil, fmt.Errorf("创建歧义事件失败: %w", err)
		}
		eventID = event.ID
	}

	// 6. 持久化助手消息（含模式、置信度与引用快照）
	if err := s.conversationRepo.AppendMessage(&model.Message{
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        answer,
		Mode:           decision.Mode,
		Confidence:     decision.Confidence,
		Citations:      citations,
	}); err != nil {
		return nil, fmt.Errorf("保存助手消息失败: %w", err)
	}

	// 7. 上报洞察事件（发后不管）
	topScore := 0.0
	if len(ranked) > 0 {
		topScore = ranked[0].Score
	}
	s.insightService.Record(tasks.InsightEvent{
		AgentID:        agentID,
		CompanyID:      companyID,
		ConversationID: conv.ID,
		Question:       question,
		Mode:           decision.Mode,
		Confidence:     decision.Confidence,
		TopScore:       topScore,
		Ambiguous:      decision.Mode == model.ModeAmbiguous,
		Timestamp:      time.Now(),
	})

	resp := &model.AskResponseDTO{
		Mode:                    decision.Mode,
		Confidence:              decision.Confidence,
		Answer:                  answer,
		Citations:               citations,
		ConversationID:          conv.ID,
		RequiresSourceSelection: decision.Mode == model.ModeAmbiguous,
		AmbiguityEventID:        eventID,
	}
	if resp.RequiresSourceSelection {
		resp.Alternatives = toCandidates(citations)
	}
	return resp, nil
}

// ResolveAmbiguity 处理用户对歧义回答的来源选择：
// 校验会话与分块的归属后，仅以选定分块为证据重新生成一个 grounded 回答，
// 并把歧义事件标记为已解决（至多一次）。
func (s *chatService) ResolveAmbiguity(ctx context.Context, companyID, userID, agentID uint, conversationID, eventID, question string, chunkID uint) (*model.AskResponseDTO, error) {
	question = strings.TrimSpace(question)
	if question == "" || conversationID == "" || chunkID == 0 {
		return nil, ErrInvalidInput
	}

	agent, err := s.findEnabledAgent(agentID, companyID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversationRepo.FindByIDScoped(conversationID, agentID, companyID)
	if err != nil {
		return nil, asNotFound(err)
	}

	// 选定分块必须属于同一智能体，越权一律按不存在处理
	chunk, err := s.chunkRepo.FindByIDScopedToAgent(chunkID, agentID)
	if err != nil {
		return nil, asNotFound(err)
	}

	doc, err := s.docRepo.FindByID(chunk.DocumentID)
	if err != nil {
		return nil, asNotFound(err)
	}

	answer, err := s.answerService.Generate(ctx, question, model.ModeGrounded, agent.Instructions,
		[]EvidencePassage{{Title: doc.Title, Content: chunk.TextContent}})
	if err != nil {
		return nil, err
	}

	// 标记歧义事件已解决；重复调用不会改写首次选择
	if eventID != "" {
		if _, err := s.ambiguityRepo.FindByIDScoped(eventID, agentID); err != nil {
			return nil, asNotFound(err)
		}
		if err := s.ambiguityRepo.Resolve(eventID, chunk.DocumentID); err != nil {
			return nil, fmt.Errorf("标记歧义事件失败: %w", err)
		}
	}

	citation := model.Citation{
		DocumentID: chunk.DocumentID,
		Title:      doc.Title,
		Excerpt:    excerpt(chunk.TextContent),
		Score:      resolvedConfidence,
		ChunkID:    chunk.ID,
	}

	if err := s.conversationRepo.AppendMessage(&model.Message{
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        answer,
		Mode:           model.ModeGrounded,
		Confidence:     resolvedConfidence,
		Citations:      []model.Citation{citation},
	}); err != nil {
		return nil, fmt.Errorf("保存助手消息失败: %w", err)
	}

	s.insightService.Record(tasks.InsightEvent{
		AgentID:        agentID,
		CompanyID:      companyID,
		ConversationID: conv.ID,
		Question:       question,
		Mode:           model.ModeGrounded,
		Confidence:     resolvedConfidence,
		TopScore:       resolvedConfidence,
		Ambiguous:      false,
		Timestamp:      time.Now(),
	})

	return &model.AskResponseDTO{
		Mode:                    model.ModeGrounded,
		Confidence:              resolvedConfidence,
		Answer:                  answer,
		Citations:               []model.Citation{citation},
		ConversationID:          conv.ID,
		RequiresSourceSelection: false,
	}, nil
}

// findEnabledAgent 查找智能体并校验启用状态。
func (s *chatService) findEnabledAgent(agentID, companyID uint) (*model.Agent, error) {
	agent, err := s.agentRepo.FindByID(agentID, companyID)
	if err != nil {
		return nil, asNotFound(err)
	}
	if !agent.Enabled {
		return nil, ErrAgentDisabled
	}
	return agent, nil
}

// resolveConversation 使用显式传入的会话，否则取（或创建）用户的当前会话。
func (s *chatService) resolveConversation(ctx context.Context, agentID, companyID, userID uint, conversationID string) (*model.Conversation, error) {
	if conversationID != "" {
		conv, err := s.conversationRepo.FindByIDScoped(conversationID, agentID, companyID)
		if err != nil {
			return nil, asNotFound(err)
		}
		return conv, nil
	}
	conv, err := s.conversationRepo.GetOrCreateConversation(ctx, agentID, companyID, userID)
	if err != nil {
		return nil, fmt.Errorf("获取会话失败: %w", err)
	}
	return conv, nil
}

// buildCitations 把选中的证据分块转换为引用快照和生成用的证据段落。
// 文档标题按需查询并做本地去重。
func (s *chatService) buildCitations(selected []model.RetrievedChunk) ([]model.Citation, []EvidencePassage, error) {
	if len(selected) == 0 {
		return nil, nil, nil
	}
	titles := make(map[string]string, len(selected))
	citations := make([]model.Citation, 0, len(selected))
	passages := make([]EvidencePassage, 0, len(selected))
	for _, rc := range selected {
		title, ok := titles[rc.Chunk.DocumentID]
		if !ok {
			doc, err := s.docRepo.FindByID(rc.Chunk.DocumentID)
			if err != nil {
				return nil, nil, fmt.Errorf("查找引用文档失败: %w", err)
			}
			title = doc.Title
			titles[rc.Chunk.DocumentID] = title
		}
		citations = append(citations, model.Citation{
			DocumentID: rc.Chunk.DocumentID,
			Title:      title,
			Excerpt:    excerpt(rc.Chunk.TextContent),
			Score:      roundScore(rc.Score),
			ChunkID:    rc.Chunk.ID,
		})
		passages = append(passages, EvidencePassage{Title: title, Content: rc.Chunk.TextContent})
	}
	return citations, passages, nil
}

// toCandidates 把引用快照转换为歧义候选列表。
func toCandidates(citations []model.Citation) []model.AmbiguityCandidate {
	candidates := make([]model.AmbiguityCandidate, 0, len(citations))
	for _, c := range citations {
		candidates = append(candidates, model.AmbiguityCandidate(c))
	}
	return candidates
}

// excerpt 截取分块开头作为引用摘录。
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + "…"
}

// roundScore 把得分保留四位小数，避免引用里出现冗长浮点尾巴。
func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// asNotFound 把记录不存在类错误折叠为业务层的 ErrNotFound。
func asNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
