// Package service 实现了应用的核心业务逻辑。
package service

import (
	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
)

// Thresholds 是证据判定策略的阈值集合。
// 默认值（0.20 / 0.35 / 0.45 / 0.04）是针对当前混合打分的输出分布调过的，
// 分支顺序与阈值一起决定回答模式的分布。
type Thresholds struct {
	MinEvidence     float64
	StrongEvidence  float64
	Ambiguous       float64
	AmbiguityMaxGap float64
}

// ThresholdsFromConfig 从检索配置构造阈值集合。
func ThresholdsFromConfig(cfg config.RetrievalConfig) Thresholds {
	return Thresholds{
		MinEvidence:     cfg.MinEvidence,
		StrongEvidence:  cfg.StrongEvidence,
		Ambiguous:       cfg.Ambiguous,
		AmbiguityMaxGap: cfg.AmbiguityMaxGap,
	}
}

// EvidenceDecision 是一次查询的终态判定结果：
// 回答模式、标定后的置信度，以及要作为证据暴露给生成器和引用的分块。
type EvidenceDecision struct {
	Mode       string
	Confidence float64
	Selected   []model.RetrievedChunk
}

// DecideEvidence 根据排好序的检索结果判定回答模式。
// 入参必须已按综合得分降序排列。纯函数，不触达任何外部状态。
//
// 判定顺序不可调整：歧义检查必须先于强/中证据的划分，
// 两个高分近平分块意味着来源冲突，和单一主导来源是两种性质不同的局面。
func DecideEvidence(ranked []model.RetrievedChunk, th Thresholds) EvidenceDecision {
	// 1. 无证据：没有分块，或最高分低于下限
	if len(ranked) == 0 || ranked[0].Score < th.MinEvidence {
		top := 0.0
		if len(ranked) > 0 {
			top = ranked[0].Score
		}
		confidence := 0.0
		if th.MinEvidence > 0 {
			confidence = 0.45 * top / th.MinEvidence
		}
		if confidence > 0.45 {
			confidence = 0.45
		}
		return EvidenceDecision{
			Mode:       model.ModeFallback,
			Confidence: confidence,
		}
	}

	top := ranked[0].Score

	// 2. 歧义检查：两个分块同时越过高分线且近乎平分
	if len(ranked) >= 2 {
		second := ranked[1].Score
		gap := top - second
		if top >= th.Ambiguous && second >= th.Ambiguous && gap <= th.AmbiguityMaxGap {
			// 越过高分线越多、两者越接近，"确实存在歧义"的把握越大
			elevation := clamp01((top - th.Ambiguous) / (1 - th.Ambiguous))
			closeness := 1.0
			if th.AmbiguityMaxGap > 0 {
				closeness = clamp01(1 - gap/th.AmbiguityMaxGap)
			}
			confidence := 0.58 + 0.28*(0.5*elevation+0.5*closeness)
			return EvidenceDecision{
				Mode:       model.ModeAmbiguous,
				Confidence: confidence,
				Selected:   []model.RetrievedChunk{ranked[0], ranked[1]},
			}
		}
	}

	// 3. 强证据：最高分越过 StrongEvidence，带上得分不低于最高分 72% 的同伴，至多 3 个
	if top >= th.StrongEvidence {
		selected := []model.RetrievedChunk{ranked[0]}
		for _, rc := range ranked[1:] {
			if len(selected) >= 3 {
				break
			}
			if rc.Score >= 0.72*top {
				selected = append(selected, rc)
			}
		}
		margin := clamp01((top - th.StrongEvidence) / (1 - th.StrongEvidence))
		return EvidenceDecision{
			Mode:       model.ModeGrounded,
			Confidence: 0.90 + 0.09*margin,
			Selected:   selected,
		}
	}

	// 4/5. 中等证据：最高分在 [Min, Strong) 区间；
	// 有合格的第二个分块就取前两个拓宽上下文，没有就只带最高分这一个
	selected := []model.RetrievedChunk{ranked[0]}
	if len(ranked) >= 2 && ranked[1].Score >= th.MinEvidence {
		selected = append(selected, ranked[1])
	}
	ratio := 0.0
	if th.StrongEvidence > th.MinEvidence {
		ratio = clamp01((top - th.MinEvidence) / (th.StrongEvidence - th.MinEvidence))
	}
	return EvidenceDecision{
		Mode:       model.ModeGrounded,
		Confidence: 0.72 + 0.18*ratio,
		Selected:   selected,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
