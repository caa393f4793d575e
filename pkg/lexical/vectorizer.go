// Package lexical 构建文本的稀疏词项权重表示，用于关键词层面的相似度计算。
// 同一文本的向量化结果是确定的：摄取侧与查询侧共用同一实现。
package lexical

import (
	"math"
	"regexp"
	"strings"
)

// 仅保留中文、英文、数字与空白，其余字符一律折算为空格
var (
	reKeep  = regexp.MustCompile(`[^\p{Han}a-z0-9\s]+`)
	reSpace = regexp.MustCompile(`\s+`)
)

// Vectorize 把文本转换为归一化的 词项 -> 权重 映射。
// 权重为词频除以向量的 L2 范数，因此两个向量的点积落在 [0,1] 区间。
// 空文本（或去噪后为空）返回空映射。
func Vectorize(text string) map[string]float64 {
	terms := Tokenize(text)
	if len(terms) == 0 {
		return map[string]float64{}
	}

	freq := make(map[string]float64, len(terms))
	for _, t := range terms {
		freq[t]++
	}

	var norm float64
	for _, f := range freq {
		norm += f * f
	}
	norm = math.Sqrt(norm)

	vec := make(map[string]float64, len(freq))
	for t, f := range freq {
		vec[t] = f / norm
	}
	return vec
}

// Overlap 计算两个归一化稀疏向量的点积。
// 两边都由 Vectorize 产生时结果落在 [0,1]。
func Overlap(a, b map[string]float64) float64 {
	// 遍历较小的一侧
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for t, wa := range a {
		if wb, ok := b[t]; ok {
			dot += wa * wb
		}
	}
	if dot > 1 {
		return 1
	}
	return dot
}

// Tokenize 把文本切分为规范化词项：
// 英文/数字按空白切词，连续中文按双字滑窗切分（退化为单字）。
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	kept := reKeep.ReplaceAllString(lower, " ")
	kept = strings.TrimSpace(reSpace.ReplaceAllString(kept, " "))
	if kept == "" {
		return nil
	}

	var terms []string
	for _, field := range strings.Fields(kept) {
		runes := []rune(field)
		// 纯 ASCII 词直接作为一个词项
		if !containsHan(runes) {
			terms = append(terms, field)
			continue
		}
		terms = append(terms, splitHanRun(runes)...)
	}
	return terms
}

// splitHanRun 对包含中文的片段做双字滑窗切分；
// 混排片段中的连续拉丁/数字子串保持为整词。
func splitHanRun(runes []rune) []string {
	var terms []string
	var latin []rune
	var hanRun []rune

	flushLatin := func() {
		if len(latin) > 0 {
			terms = append(terms, string(latin))
			latin = latin[:0]
		}
	}
	flushHan := func() {
		if len(hanRun) == 1 {
			terms = append(terms, string(hanRun))
		} else {
			for i := 0; i+1 < len(hanRun); i++ {
				terms = append(terms, string(hanRun[i:i+2]))
			}
		}
		hanRun = hanRun[:0]
	}

	for _, r := range runes {
		if isHan(r) {
			flushLatin()
			hanRun = append(hanRun, r)
		} else {
			if len(hanRun) > 0 {
				flushHan()
			}
			latin = append(latin, r)
		}
	}
	if len(hanRun) > 0 {
		flushHan()
	}
	flushLatin()
	return terms
}

func containsHan(runes []rune) bool {
	for _, r := range runes {
		if isHan(r) {
			return true
		}
	}
	return false
}

func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}
