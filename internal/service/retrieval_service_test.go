package service

import (
	"testing"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
	"edu-agent-go/pkg/lexical"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeChunkStore 按智能体隔离存放分块，模拟仓储层的强制范围过滤。
type fakeChunkStore struct {
	chunks []*model.Chunk
}

func (s *fakeChunkStore) ReplaceForDocument(docID string, chunks []*model.Chunk) error { return nil }

func (s *fakeChunkStore) FindByAgentID(agentID uint) ([]*model.Chunk, error) {
	var out []*model.Chunk
	for _, c := range s.chunks {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeChunkStore) FindByIDScopedToAgent(chunkID, agentID uint) (*model.Chunk, error) {
	for _, c := range s.chunks {
		if c.ID == chunkID && c.AgentID == agentID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeChunkStore) CountByDocumentIDs(docIDs []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (s *fakeChunkStore) DeleteByDocumentID(docID string) error { return nil }

func retrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK:           10,
		SemanticWeight: 0.65,
		LexicalWeight:  0.35,
	}
}

func chunkOf(id, agentID uint, docID string, embedding []float32, text string) *model.Chunk {
	return &model.Chunk{
		ID:            id,
		AgentID:       agentID,
		DocumentID:    docID,
		TextContent:   text,
		Embedding:     embedding,
		LexicalVector: lexical.Vectorize(text),
	}
}

func TestRetrieveOnlyReturnsRequestedAgentChunks(t *testing.T) {
	// 两个智能体挂载措辞相近的文档，检索结果必须只含请求方的分块
	store := &fakeChunkStore{chunks: []*model.Chunk{
		chunkOf(1, 1, "d1", []float32{1, 0}, "年假申请流程说明"),
		chunkOf(2, 1, "d2", []float32{0.9, 0.1}, "病假申请流程说明"),
		chunkOf(3, 2, "d3", []float32{1, 0}, "年假申请流程说明"),
		chunkOf(4, 2, "d4", []float32{0.9, 0.1}, "病假申请流程说明"),
	}}
	svc := NewRetrievalService(store, retrievalConfig())

	ranked, err := svc.Retrieve(1, []float32{1, 0}, lexical.Vectorize("年假申请流程"))
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	for _, rc := range ranked {
		assert.Equal(t, uint(1), rc.Chunk.AgentID)
	}
}

func TestRetrieveOrdersByScoreDescending(t *testing.T) {
	store := &fakeChunkStore{chunks: []*model.Chunk{
		chunkOf(1, 1, "d1", []float32{0, 1}, "完全无关的内容"),
		chunkOf(2, 1, "d2", []float32{1, 0}, "年假申请流程说明"),
	}}
	svc := NewRetrievalService(store, retrievalConfig())

	ranked, err := svc.Retrieve(1, []float32{1, 0}, lexical.Vectorize("年假申请"))
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, uint(2), ranked[0].Chunk.ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRetrieveBreaksTiesByChunkIDAscending(t *testing.T) {
	// 向量与文本完全一致的两个分块得分相同，按 ID 升序（创建顺序）排列
	store := &fakeChunkStore{chunks: []*model.Chunk{
		chunkOf(5, 1, "d1", []float32{1, 0}, "相同内容"),
		chunkOf(2, 1, "d2", []float32{1, 0}, "相同内容"),
	}}
	svc := NewRetrievalService(store, retrievalConfig())

	ranked, err := svc.Retrieve(1, []float32{1, 0}, lexical.Vectorize("相同内容"))
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, uint(2), ranked[0].Chunk.ID)
	assert.Equal(t, uint(5), ranked[1].Chunk.ID)
}

func TestRetrieveScoresStayInUnitRange(t *testing.T) {
	store := &fakeChunkStore{chunks: []*model.Chunk{
		chunkOf(1, 1, "d1", []float32{1, 0}, "年假申请流程说明"),
		chunkOf(2, 1, "d2", []float32{-1, 0}, "负相关向量"),
	}}
	svc := NewRetrievalService(store, retrievalConfig())

	ranked, err := svc.Retrieve(1, []float32{1, 0}, lexical.Vectorize("年假申请流程说明"))
	require.NoError(t, err)
	for _, rc := range ranked {
		assert.GreaterOrEqual(t, rc.Score, 0.0)
		assert.LessOrEqual(t, rc.Score, 1.0)
	}
}

func TestRetrieveTopKLimit(t *testing.T) {
	store := &fakeChunkStore{}
	for i := uint(1); i <= 20; i++ {
		store.chunks = append(store.chunks, chunkOf(i, 1, "d1", []float32{1, 0}, "内容"))
	}
	cfg := retrievalConfig()
	cfg.TopK = 5
	svc := NewRetrievalService(store, cfg)

	ranked, err := svc.Retrieve(1, []float32{1, 0}, lexical.Vectorize("内容"))
	require.NoError(t, err)
	assert.Len(t, ranked, 5)
}

func TestRetrieveNoChunks(t *testing.T) {
	svc := NewRetrievalService(&fakeChunkStore{}, retrievalConfig())
	ranked, err := svc.Retrieve(1, []float32{1, 0}, map[string]float64{})
	require.NoError(t, err)
	assert.Empty(t, ranked)
}
