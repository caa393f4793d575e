package service

import (
	"context"
	"testing"
	"time"

	"edu-agent-go/internal/model"
	"edu-agent-go/pkg/embedding"
	"edu-agent-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAgentStore struct {
	agents map[uint]*model.Agent
}

func (s *fakeAgentStore) Create(agent *model.Agent) error { return nil }
func (s *fakeAgentStore) Update(agent *model.Agent) error { return nil }

func (s *fakeAgentStore) FindByID(agentID, companyID uint) (*model.Agent, error) {
	agent, ok := s.agents[agentID]
	if !ok || agent.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return agent, nil
}

func (s *fakeAgentStore) FindByCompanyID(companyID uint) ([]model.Agent, error) { return nil, nil }

type fakeDocStore struct {
	docs map[string]*model.SourceDocument
}

func (s *fakeDocStore) Create(doc *model.SourceDocument) error { return nil }

func (s *fakeDocStore) FindByID(docID string) (*model.SourceDocument, error) {
	doc, ok := s.docs[docID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return doc, nil
}

func (s *fakeDocStore) FindByIDScoped(docID string, agentID, companyID uint) (*model.SourceDocument, error) {
	doc, err := s.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc.AgentID != agentID || doc.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return doc, nil
}

func (s *fakeDocStore) FindByAgentID(agentID uint) ([]model.SourceDocument, error) { return nil, nil }
func (s *fakeDocStore) UpdateStatus(docID, status, failReason string) error        { return nil }
func (s *fakeDocStore) UpdateRawText(docID, rawText string) error                  { return nil }
func (s *fakeDocStore) Delete(docID string) error                                  { return nil }

type fakeConvStore struct {
	conversations map[string]*model.Conversation
	messages      []model.Message
}

func (s *fakeConvStore) GetOrCreateConversation(ctx context.Context, agentID, companyID, userID uint) (*model.Conversation, error) {
	for _, conv := range s.conversations {
		if conv.AgentID == agentID && conv.UserID == userID {
			return conv, nil
		}
	}
	conv := &model.Conversation{ID: "conv-new", AgentID: agentID, CompanyID: companyID, UserID: userID}
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *fakeConvStore) FindByIDScoped(conversationID string, agentID, companyID uint) (*model.Conversation, error) {
	conv, ok := s.conversations[conversationID]
	if !ok || conv.AgentID != agentID || conv.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return conv, nil
}

func (s *fakeConvStore) AppendMessage(msg *model.Message) error {
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeConvStore) FindMessages(conversationID string) ([]model.Message, error) {
	return s.messages, nil
}

type fakeAmbiguityStore struct {
	events map[string]*model.AmbiguityEvent
}

func (s *fakeAmbiguityStore) Create(event *model.AmbiguityEvent) error {
	s.events[event.ID] = event
	return nil
}

func (s *fakeAmbiguityStore) FindByIDScoped(eventID string, agentID uint) (*model.AmbiguityEvent, error) {
	event, ok := s.events[eventID]
	if !ok || event.AgentID != agentID {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}

func (s *fakeAmbiguityStore) Resolve(eventID, selectedDocumentID string) error {
	event, ok := s.events[eventID]
	if !ok || event.ResolvedAt != nil {
		// 与 SQL 的 WHERE resolved_at IS NULL 行为一致：已解决则不改写
		return nil
	}
	now := time.Now()
	event.SelectedDocumentID = &selectedDocumentID
	event.ResolvedAt = &now
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) (*embedding.Result, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return &embedding.Result{Vectors: vectors, Provider: "test", Model: "test"}, nil
}

func (s stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubRetrieval struct {
	ranked []model.RetrievedChunk
}

func (s *stubRetrieval) Retrieve(agentID uint, queryVec []float32, queryLex map[string]float64) ([]model.RetrievedChunk, error) {
	return s.ranked, nil
}

type stubAnswer struct {
	answer    string
	modes     []string
	passages  [][]EvidencePassage
	questions []string
}

func (s *stubAnswer) Generate(ctx context.Context, question, mode, instructions string, passages []EvidencePassage) (string, error) {
	s.modes = append(s.modes, mode)
	s.passages = append(s.passages, passages)
	s.questions = append(s.questions, question)
	return s.answer, nil
}

type recordingInsight struct {
	events []tasks.InsightEvent
}

func (r *recordingInsight) Record(event tasks.InsightEvent) {
	r.events = append(r.events, event)
}

func (r *recordingInsight) RecentInsights(ctx context.Context, agentID, companyID uint, size int) ([]tasks.InsightEvent, error) {
	return r.events, nil
}

type chatFixture struct {
	svc       ChatService
	agents    *fakeAgentStore
	docs      *fakeDocStore
	chunks    *fakeChunkStore
	convs     *fakeConvStore
	events    *fakeAmbiguityStore
	retrieval *stubRetrieval
	answer    *stubAnswer
	insights  *recordingInsight
}

func newChatFixture(ranked []model.RetrievedChunk) *chatFixture {
	f := &chatFixture{
		agents: &fakeAgentStore{agents: map[uint]*model.Agent{
			1: {ID: 1, CompanyID: 10, Name: "知识助手", Enabled: true, Instructions: "简短回答"},
		}},
		docs: &fakeDocStore{docs: map[string]*model.SourceDocument{
			"d1": {ID: "d1", AgentID: 1, CompanyID: 10, Title: "员工手册", Status: model.DocStatusReady},
			"d2": {ID: "d2", AgentID: 1, CompanyID: 10, Title: "考勤制度", Status: model.DocStatusReady},
		}},
		chunks: &fakeChunkStore{chunks: []*model.Chunk{
			{ID: 7, AgentID: 1, DocumentID: "d2", TextContent: "病假需要提交证明。"},
			{ID: 9, AgentID: 2, DocumentID: "d9", TextContent: "其他智能体的分块"},
		}},
		convs:     &fakeConvStore{conversations: map[string]*model.Conversation{}},
		events:    &fakeAmbiguityStore{events: map[string]*model.AmbiguityEvent{}},
		retrieval: &stubRetrieval{ranked: ranked},
		answer:    &stubAnswer{answer: "生成的回答"},
		insights:  &recordingInsight{},
	}
	f.svc = NewChatService(f.agents, f.docs, f.chunks, f.convs, f.events,
		stubEmbedder{}, f.retrieval, f.answer, f.insights, defaultThresholds())
	return f
}

func TestAskGroundedFlow(t *testing.T) {
	f := newChatFixture([]model.RetrievedChunk{
		{Chunk: model.Chunk{ID: 7, DocumentID: "d2", AgentID: 1, TextContent: "病假需要提交证明。"}, Score: 0.60},
	})

	resp, err := f.svc.Ask(context.Background(), 10, 100, 1, "病假需要什么材料？", "")
	require.NoError(t, err)

	assert.Equal(t, model.ModeGrounded, resp.Mode)
	assert.GreaterOrEqual(t, resp.Confidence, 0.90)
	assert.Equal(t, "生成的回答", resp.Answer)
	assert.False(t, resp.RequiresSourceSelection)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "d2", resp.Citations[0].DocumentID)
	assert.Equal(t, "考勤制度", resp.Citations[0].Title)
	assert.Equal(t, uint(7), resp.Citations[0].ChunkID)

	// 用户消息与带引用快照的助手消息都已持久化
	require.Len(t, f.convs.messages, 2)
	assert.Equal(t, "user", f.convs.messages[0].Role)
	assistant := f.convs.messages[1]
	assert.Equal(t, "assistant", assistant.Role)
	assert.Equal(t, model.ModeGrounded, assistant.Mode)
	require.Len(t, assistant.Citations, 1)

	// 洞察事件已上报
	require.Len(t, f.insights.events, 1)
	assert.Equal(t, model.ModeGrounded, f.insights.events[0].Mode)
	assert.False(t, f.insights.events[0].Ambiguous)
	assert.InDelta(t, 0.60, f.insights.events[0].TopScore, 1e-9)

	// 生成器收到了 grounded 模式与管理员指令下的证据
	require.Len(t, f.answer.modes, 1)
	assert.Equal(t, model.ModeGrounded, f.answer.modes[0])
	require.Len(t, f.answer.passages[0], 1)
	assert.Equal(t, "考勤制度", f.answer.passages[0][0].Title)
}

func TestAskAmbiguousCreatesEventAndAlternatives(t *testing.T) {
	f := newChatFixture([]model.RetrievedChunk{
		{Chunk: model.Chunk{ID: 1, DocumentID: "d1", AgentID: 1, TextContent: "甲文档内容"}, Score: 0.50},
		{Chunk: model.Chunk{ID: 7, DocumentID: "d2", AgentID: 1, TextContent: "乙文档内容"}, Score: 0.47},
	})

	resp, err := f.svc.Ask(context.Background(), 10, 100, 1, "报销流程是什么？", "")
	require.NoError(t, err)

	assert.Equal(t, model.ModeAmbiguous, resp.Mode)
	assert.True(t, resp.RequiresSourceSelection)
	require.Len(t, resp.Alternatives, 2)
	require.NotEmpty(t, resp.AmbiguityEventID)

	event, ok := f.events.events[resp.AmbiguityEventID]
	require.True(t, ok)
	assert.Nil(t, event.ResolvedAt)
	assert.Len(t, event.Candidates, 2)
	assert.Equal(t, "报销流程是什么？", event.Question)
}

func TestAskFallbackHasNoCitations(t *testing.T) {
	f := newChatFixture([]model.RetrievedChunk{
		{Chunk: model.Chunk{ID: 1, DocumentID: "d1", AgentID: 1}, Score: 0.10},
	})

	resp, err := f.svc.Ask(context.Background(), 10, 100, 1, "今天天气怎么样？", "")
	require.NoError(t, err)

	assert.Equal(t, model.ModeFallback, resp.Mode)
	assert.LessOrEqual(t, resp.Confidence, 0.45)
	assert.Empty(t, resp.Citations)
	assert.False(t, resp.RequiresSourceSelection)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newChatFixture(nil)
	_, err := f.svc.Ask(context.Background(), 10, 100, 1, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAskRejectsForeignAgent(t *testing.T) {
	f := newChatFixture(nil)
	// 公司 99 无权访问公司 10 的智能体
	_, err := f.svc.Ask(context.Background(), 99, 100, 1, "问题", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAskRejectsDisabledAgent(t *testing.T) {
	f := newChatFixture(nil)
	f.agents.agents[1].Enabled = false
	_, err := f.svc.Ask(context.Background(), 10, 100, 1, "问题", "")
	assert.ErrorIs(t, err, ErrAgentDisabled)
}

func TestResolveAmbiguityPinsSingleChunk(t *testing.T) {
	f := newChatFixture(nil)
	f.convs.conversations["conv-1"] = &model.Conversation{ID: "conv-1", AgentID: 1, CompanyID: 10, UserID: 100}
	f.events.events["evt-1"] = &model.AmbiguityEvent{
		ID: "evt-1", ConversationID: "conv-1", AgentID: 1, Question: "报销流程是什么？",
	}

	resp, err := f.svc.ResolveAmbiguity(context.Background(), 10, 100, 1, "conv-1", "evt-1", "报销流程是什么？", 7)
	require.NoError(t, err)

	assert.Equal(t, model.ModeGrounded, resp.Mode)
	assert.Equal(t, 0.96, resp.Confidence)
	assert.False(t, resp.RequiresSourceSelection)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, uint(7), resp.Citations[0].ChunkID)
	assert.Equal(t, "d2", resp.Citations[0].DocumentID)

	// 歧义事件被标记为已解决并记录所选来源
	event := f.events.events["evt-1"]
	require.NotNil(t, event.ResolvedAt)
	require.NotNil(t, event.SelectedDocumentID)
	assert.Equal(t, "d2", *event.SelectedDocumentID)

	// 生成器只收到被选中的那一个分块
	require.Len(t, f.answer.passages, 1)
	require.Len(t, f.answer.passages[0], 1)
	assert.Equal(t, "病假需要提交证明。", f.answer.passages[0][0].Content)
}

func TestResolveAmbiguityIsIdempotent(t *testing.T) {
	f := newChatFixture(nil)
	f.convs.conversations["conv-1"] = &model.Conversation{ID: "conv-1", AgentID: 1, CompanyID: 10, UserID: 100}
	f.events.events["evt-1"] = &model.AmbiguityEvent{ID: "evt-1", ConversationID: "conv-1", AgentID: 1}

	_, err := f.svc.ResolveAmbiguity(context.Background(), 10, 100, 1, "conv-1", "evt-1", "问题", 7)
	require.NoError(t, err)
	firstResolvedAt := f.events.events["evt-1"].ResolvedAt

	_, err = f.svc.ResolveAmbiguity(context.Background(), 10, 100, 1, "conv-1", "evt-1", "问题", 7)
	require.NoError(t, err)
	assert.Equal(t, firstResolvedAt, f.events.events["evt-1"].ResolvedAt)
}

func TestResolveAmbiguityRejectsForeignChunk(t *testing.T) {
	f := newChatFixture(nil)
	f.convs.conversations["conv-1"] = &model.Conversation{ID: "conv-1", AgentID: 1, CompanyID: 10, UserID: 100}

	// 分块 9 属于智能体 2，对智能体 1 的请求必须表现为不存在
	_, err := f.svc.ResolveAmbiguity(context.Background(), 10, 100, 1, "conv-1", "", "问题", 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAmbiguityRejectsForeignConversation(t *testing.T) {
	f := newChatFixture(nil)
	f.convs.conversations["conv-other"] = &model.Conversation{ID: "conv-other", AgentID: 2, CompanyID: 10, UserID: 100}

	_, err := f.svc.ResolveAmbiguity(context.Background(), 10, 100, 1, "conv-other", "", "问题", 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
