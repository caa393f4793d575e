package service

import (
	"math"
	"sort"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
	"edu-agent-go/internal/repository"
	"edu-agent-go/pkg/lexical"
	"edu-agent-go/pkg/log"
)

// RetrievalService 对单个智能体的分块做混合检索打分。
type RetrievalService interface {
	// Retrieve 返回按综合得分降序排列的分块，得分相同时按分块 ID 升序。
	// 只会返回属于该智能体的分块，跨智能体不泄露是硬性不变量。
	Retrieve(agentID uint, queryVec []float32, queryLex map[string]float64) ([]model.RetrievedChunk, error)
}

type retrievalService struct {
	chunkRepo repository.ChunkRepository
	cfg       config.RetrievalConfig
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(chunkRepo repository.ChunkRepository, cfg config.RetrievalConfig) RetrievalService {
	return &retrievalService{chunkRepo: chunkRepo, cfg: cfg}
}

// Retrieve 对智能体的全部分块计算 语义*0.65 + 词法*0.35 的加权综合得分。
// 余弦相似度截断到 [0,1]，词法重叠本身就在 [0,1]，综合得分因此也落在 [0,1]，
// 与证据判定的阈值处于同一量纲。
func (s *retrievalService) Retrieve(agentID uint, queryVec []float32, queryLex map[string]float64) ([]model.RetrievedChunk, error) {
	chunks, err := s.chunkRepo.FindByAgentID(agentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	ranked := make([]model.RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		semantic := clamp01(cosineSimilarity(queryVec, chunk.Embedding))
		lexicalScore := lexical.Overlap(queryLex, chunk.LexicalVector)
		score := s.cfg.SemanticWeight*semantic + s.cfg.LexicalWeight*lexicalScore
		ranked = append(ranked, model.RetrievedChunk{Chunk: *chunk, Score: score})
	}

	// 严格降序；平分时按分块 ID 升序（创建顺序），保证排序稳定可复现
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})

	if s.cfg.TopK > 0 && len(ranked) > s.cfg.TopK {
		ranked = ranked[:s.cfg.TopK]
	}

	log.Infof("[RetrievalService] 检索完成, AgentID: %d, 候选分块: %d, 返回: %d, 最高分: %.4f",
		agentID, len(chunks), len(ranked), ranked[0].Score)
	return ranked, nil
}

// cosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致或任一向量为零向量时返回 0。
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
