package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorizeDeterministic(t *testing.T) {
	text := "请假流程：员工需提前 3 天在 OA 系统提交申请。"
	first := Vectorize(text)
	second := Vectorize(text)
	assert.Equal(t, first, second)
}

func TestVectorizeEmptyText(t *testing.T) {
	assert.Empty(t, Vectorize(""))
	assert.Empty(t, Vectorize("！？。，"))
}

func TestVectorizeNormalized(t *testing.T) {
	vec := Vectorize("annual leave policy annual leave")
	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestOverlapIdenticalTextIsOne(t *testing.T) {
	a := Vectorize("年假申请流程说明")
	assert.InDelta(t, 1.0, Overlap(a, a), 1e-9)
}

func TestOverlapDisjointTextIsZero(t *testing.T) {
	a := Vectorize("annual leave policy")
	b := Vectorize("数据库索引优化")
	assert.Zero(t, Overlap(a, b))
}

func TestOverlapPartialInUnitRange(t *testing.T) {
	a := Vectorize("年假申请流程")
	b := Vectorize("病假申请流程")
	score := Overlap(a, b)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestTokenizeHanBigrams(t *testing.T) {
	terms := Tokenize("年假申请")
	assert.Equal(t, []string{"年假", "假申", "申请"}, terms)
}

func TestTokenizeSingleHanRune(t *testing.T) {
	terms := Tokenize("假")
	assert.Equal(t, []string{"假"}, terms)
}

func TestTokenizeMixedScript(t *testing.T) {
	terms := Tokenize("OA系统 提交 Application")
	// 大写折为小写，混排中的拉丁子串保持整词
	assert.Contains(t, terms, "oa")
	assert.Contains(t, terms, "系统")
	assert.Contains(t, terms, "提交")
	assert.Contains(t, terms, "application")
}

func TestTokenizeStripsPunctuation(t *testing.T) {
	terms := Tokenize("leave, policy!")
	require.Equal(t, []string{"leave", "policy"}, terms)
}
