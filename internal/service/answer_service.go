package service

import (
	"context"
	"fmt"
	"strings"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/model"
	"edu-agent-go/pkg/llm"
	"edu-agent-go/pkg/log"
)

// EvidencePassage 是喂给生成器的一段证据：来源标题加分块全文。
type EvidencePassage struct {
	Title   string
	Content string
}

// AnswerService 负责构建模式感知的提示词并调用生成模型。
// 本组件无副作用，消息与引用的持久化由调用方负责。
type AnswerService interface {
	Generate(ctx context.Context, question, mode, instructions string, passages []EvidencePassage) (string, error)
}

type answerService struct {
	llmClient llm.Client
	cfg       config.LLMConfig
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(llmClient llm.Client, cfg config.LLMConfig) AnswerService {
	return &answerService{llmClient: llmClient, cfg: cfg}
}

// 证据块的包裹符，与提示词规则里对 "参考资料" 的指代保持一致。
const (
	refStart = "<<REF>>"
	refEnd   = "<<END>>"
)

// 主模型与配置的候选都不可用时兜底的模型标识。
var defaultModels = []string{"deepseek-chat", "deepseek-reasoner"}

// 未配置任何生成提供方时按模式返回的固定回答。
var cannedAnswers = map[string]string{
	model.ModeGrounded:  "根据知识库中的相关资料可以回答该问题，但当前未配置生成模型，请联系管理员启用后重试。",
	model.ModeAmbiguous: "知识库中存在多份相关度接近的资料，无法确定您指的是哪一份。当前未配置生成模型，请先选择一个来源。",
	model.ModeFallback:  "知识库中没有找到与该问题足够相关的资料，且当前未配置生成模型，无法给出一般性建议。",
}

// Generate 构建系统提示词后按候选模型列表依次尝试生成。
// 只有"可换模型"类错误（404/429/401/403/400）才推进到下一个候选，
// 其余错误立即上抛；未配置提供方时直接返回模式对应的固定回答。
func (s *answerService) Generate(ctx context.Context, question, mode, instructions string, passages []EvidencePassage) (string, error) {
	if !s.llmClient.Configured() {
		log.Warnf("[AnswerService] 未配置生成提供方, 返回固定回答, mode: %s", mode)
		return cannedAnswers[mode], nil
	}

	systemPrompt := s.buildSystemPrompt(mode, instructions, passages)

	var lastErr error
	for _, candidate := range s.modelCandidates() {
		answer, err := s.llmClient.Generate(ctx, systemPrompt, question, candidate)
		if err == nil {
			log.Infof("[AnswerService] 生成成功, model: %s, mode: %s", candidate, mode)
			return answer, nil
		}
		if !llm.IsModelSwitchable(err) {
			return "", fmt.Errorf("生成回答失败 (model=%s): %w", candidate, err)
		}
		log.Warnf("[AnswerService] 模型 %s 不可用, 尝试下一个候选: %v", candidate, err)
		lastErr = err
	}
	return "", fmt.Errorf("所有候选模型均不可用: %w", lastErr)
}

// modelCandidates 返回去重后的有序候选列表：主模型 → 配置的候补 → 内置兜底。
func (s *answerService) modelCandidates() []string {
	seen := make(map[string]bool)
	var candidates []string
	add := func(m string) {
		if m != "" && !seen[m] {
			seen[m] = true
			candidates = append(candidates, m)
		}
	}
	add(s.cfg.Model)
	for _, m := range s.cfg.FallbackModels {
		add(m)
	}
	for _, m := range defaultModels {
		add(m)
	}
	return candidates
}

// buildSystemPrompt 组装系统提示词：输出语言、模式行为规则、
// 引用纪律、管理员自定义指令，最后是包裹符内的编号证据块。
func (s *answerService) buildSystemPrompt(mode, instructions string, passages []EvidencePassage) string {
	var sys strings.Builder
	sys.WriteString("你是企业知识库问答助手，所有回答使用中文。\n")
	sys.WriteString(modeRule(mode))
	sys.WriteString("\n不得编造参考资料中不存在的引用或出处。\n")
	if instructions != "" {
		sys.WriteString("\n管理员补充指令：\n")
		sys.WriteString(instructions)
		sys.WriteString("\n")
	}
	sys.WriteString("\n")
	sys.WriteString(refStart)
	sys.WriteString("\n")
	if len(passages) > 0 {
		sys.WriteString(buildEvidenceBlock(passages))
	} else {
		sys.WriteString("（本轮无检索结果）\n")
	}
	sys.WriteString(refEnd)
	return sys.String()
}

// modeRule 返回当前证据模式对应的行为规则。
func modeRule(mode string) string {
	switch mode {
	case model.ModeAmbiguous:
		return "当前检索到多份相关度接近的资料。请向用户说明存在歧义，分别概述各候选来源的内容并列出可选项，不要擅自替用户二选一。"
	case model.ModeFallback:
		return "当前没有检索到足够相关的资料。请先明确告知用户知识库中没有直接依据，再基于常识给出一般性建议。"
	default:
		return "请严格依据参考资料回答，资料中没有的内容不要展开推测。"
	}
}

// buildEvidenceBlock 把证据段落渲染成编号上下文。
func buildEvidenceBlock(passages []EvidencePassage) string {
	var b strings.Builder
	for i, p := range passages {
		title := p.Title
		if title == "" {
			title = "unknown"
		}
		b.WriteString(fmt.Sprintf("[%d] (%s) %s\n", i+1, title, p.Content))
	}
	return b.String()
}
