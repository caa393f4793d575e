package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
	"edu-agent-go/pkg/embedding"
	"edu-agent-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

type fakeDocRepo struct {
	docs     map[string]*model.SourceDocument
	statuses []string
	reasons  []string
}

func newFakeDocRepo(docs ...*model.SourceDocument) *fakeDocRepo {
	m := make(map[string]*model.SourceDocument)
	for _, d := range docs {
		m[d.ID] = d
	}
	return &fakeDocRepo{docs: m}
}

func (r *fakeDocRepo) Create(doc *model.SourceDocument) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocRepo) FindByID(docID string) (*model.SourceDocument, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return doc, nil
}

func (r *fakeDocRepo) FindByIDScoped(docID string, agentID, companyID uint) (*model.SourceDocument, error) {
	return r.FindByID(docID)
}

func (r *fakeDocRepo) FindByAgentID(agentID uint) ([]model.SourceDocument, error) {
	return nil, nil
}

func (r *fakeDocRepo) UpdateStatus(docID, status, failReason string) error {
	r.statuses = append(r.statuses, status)
	r.reasons = append(r.reasons, failReason)
	if doc, ok := r.docs[docID]; ok {
		doc.Status = status
		doc.FailReason = failReason
	}
	return nil
}

func (r *fakeDocRepo) UpdateRawText(docID, rawText string) error {
	if doc, ok := r.docs[docID]; ok {
		doc.RawText = rawText
	}
	return nil
}

func (r *fakeDocRepo) Delete(docID string) error {
	delete(r.docs, docID)
	return nil
}

type fakeChunkRepo struct {
	replaced map[string][]*model.Chunk
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{replaced: make(map[string][]*model.Chunk)}
}

func (r *fakeChunkRepo) ReplaceForDocument(docID string, chunks []*model.Chunk) error {
	r.replaced[docID] = chunks
	return nil
}

func (r *fakeChunkRepo) FindByAgentID(agentID uint) ([]*model.Chunk, error) { return nil, nil }

func (r *fakeChunkRepo) FindByIDScopedToAgent(chunkID, agentID uint) (*model.Chunk, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChunkRepo) CountByDocumentIDs(docIDs []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (r *fakeChunkRepo) DeleteByDocumentID(docID string) error { return nil }

type fakeEmbeddingClient struct {
	err   error
	calls int
}

func (c *fakeEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) (*embedding.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return &embedding.Result{Vectors: vectors, Provider: "test", Model: "test-embed"}, nil
}

func (c *fakeEmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	res, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res.Vectors[0], nil
}

func newTestProcessor(docRepo *fakeDocRepo, chunkRepo *fakeChunkRepo, embedder *fakeEmbeddingClient) *Processor {
	return NewProcessor(nil, embedder, config.MinIOConfig{}, config.IngestConfig{ChunkSize: 100, ChunkOverlap: 10}, docRepo, chunkRepo)
}

func TestIngestSuccessMarksReadyWithAllChunks(t *testing.T) {
	doc := &model.SourceDocument{
		ID:      "doc-1",
		AgentID: 1,
		Title:   "员工手册",
		RawText: strings.Repeat("第一章 总则。\n\n", 30),
		Status:  model.DocStatusProcessing,
	}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	embedder := &fakeEmbeddingClient{}
	p := newTestProcessor(docRepo, chunkRepo, embedder)

	err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusReady, doc.Status)

	expected := SplitText(doc.RawText, 100, 10)
	chunks := chunkRepo.replaced["doc-1"]
	require.Len(t, chunks, len(expected))
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, uint(1), c.AgentID)
		assert.NotEmpty(t, c.Embedding)
		assert.NotEmpty(t, c.LexicalVector)
		assert.Equal(t, "test-embed", c.EmbeddingModel)
	}
	// 一次摄取只发一次批量向量化调用
	assert.Equal(t, 1, embedder.calls)
}

func TestIngestEmptyTextMarksFailedWithZeroChunks(t *testing.T) {
	doc := &model.SourceDocument{ID: "doc-2", AgentID: 1, RawText: "   ", Status: model.DocStatusProcessing}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	p := newTestProcessor(docRepo, chunkRepo, &fakeEmbeddingClient{})

	err := p.Ingest(context.Background(), doc)
	require.ErrorIs(t, err, ErrEmptyDocument)

	assert.Equal(t, model.DocStatusFailed, doc.Status)
	assert.Empty(t, chunkRepo.replaced)
}

func TestIngestEmbeddingFailureMarksFailed(t *testing.T) {
	doc := &model.SourceDocument{ID: "doc-3", AgentID: 1, RawText: "一段可以分块的正文内容。", Status: model.DocStatusProcessing}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	p := newTestProcessor(docRepo, chunkRepo, &fakeEmbeddingClient{err: errors.New("quota exceeded")})

	err := p.Ingest(context.Background(), doc)
	require.Error(t, err)

	assert.Equal(t, model.DocStatusFailed, doc.Status)
	assert.Empty(t, chunkRepo.replaced)
}
