// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import "strings"

// TextChunk 是切分出的一个文本分块：序号、内容与估算的 token 数。
type TextChunk struct {
	Index      int
	Content    string
	TokenCount int
}

// SplitText 把长文本切分为有界大小、轻度重叠的分块序列。
// 先按空行切出段落，再把段落装填到 chunkSize（按 rune 计）以内的分块里，
// 相邻分块之间携带 chunkOverlap 长度的尾部重叠；超长段落按固定步长硬切。
// 空文本或全空白文本返回空切片，调用方应视为摄取错误。
func SplitText(text string, chunkSize, chunkOverlap int) []TextChunk {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}

	segments := splitSegments(text)
	if len(segments) == 0 {
		return nil
	}

	var chunks []TextChunk
	var cur []rune
	carried := 0 // cur 开头来自上一分块的重叠 rune 数

	emit := func(content []rune) {
		chunks = append(chunks, TextChunk{
			Index:      len(chunks),
			Content:    string(content),
			TokenCount: estimateTokens(content),
		})
	}

	flush := func() {
		if len(cur) <= carried {
			// 只剩重叠携带内容，没有新增文本，不产出分块
			return
		}
		emit(cur)
		if chunkOverlap > 0 && len(cur) > chunkOverlap {
			tail := make([]rune, chunkOverlap)
			copy(tail, cur[len(cur)-chunkOverlap:])
			cur = tail
			carried = chunkOverlap
		} else {
			cur = cur[:0]
			carried = 0
		}
	}

	for _, seg := range segments {
		runes := []rune(seg)

		// 超长段落：先封存当前分块，再按步长硬切
		if len(runes) > chunkSize {
			flush()
			cur = cur[:0]
			carried = 0
			step := chunkSize - chunkOverlap
			for i := 0; i < len(runes); i += step {
				end := i + chunkSize
				if end > len(runes) {
					end = len(runes)
				}
				emit(runes[i:end])
				if end == len(runes) {
					break
				}
			}
			continue
		}

		if len(cur) > 0 && len(cur)+1+len(runes) > chunkSize {
			flush()
			// 重叠携带加上该段仍超限时放弃携带，保证分块不超过 chunkSize
			if len(cur) > 0 && len(cur)+1+len(runes) > chunkSize {
				cur = cur[:0]
				carried = 0
			}
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		cur = append(cur, runes...)
	}
	flush()

	return chunks
}

// splitSegments 按空行切出非空段落。
func splitSegments(text string) []string {
	var segments []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			segments = append(segments, para)
		}
	}
	return segments
}

// estimateTokens 粗略估算 token 数（约 4 rune 一个 token），至少为 1。
func estimateTokens(runes []rune) int {
	n := (len(runes) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
