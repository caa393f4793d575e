package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextEmptyInput(t *testing.T) {
	assert.Nil(t, SplitText("", 1000, 100))
	assert.Nil(t, SplitText("   \n\n  \t ", 1000, 100))
}

func TestSplitTextShortText(t *testing.T) {
	chunks := SplitText("操作系统的进程调度策略。", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "操作系统的进程调度策略。", chunks[0].Content)
	assert.GreaterOrEqual(t, chunks[0].TokenCount, 1)
}

func TestSplitTextPacksParagraphs(t *testing.T) {
	// 三个小段落应被装进同一个分块，段落间以换行连接
	text := "第一段内容。\n\n第二段内容。\n\n第三段内容。"
	chunks := SplitText(text, 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "第一段内容。\n第二段内容。\n第三段内容。", chunks[0].Content)
}

func TestSplitTextBoundedSizeAndOrdinalIndex(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString(strings.Repeat("知", 80))
		sb.WriteString("\n\n")
	}
	chunks := SplitText(sb.String(), 300, 50)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, len([]rune(c.Content)), 300)
		assert.GreaterOrEqual(t, c.TokenCount, 1)
	}
}

func TestSplitTextHardSplitsOversizedSegment(t *testing.T) {
	// 2500 个 rune 的单段落，chunkSize=1000 overlap=100 时步长 900：
	// [0,1000) [900,1900) [1800,2500)
	text := strings.Repeat("数", 2500)
	chunks := SplitText(text, 1000, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0].Content), 1000)
	assert.Len(t, []rune(chunks[1].Content), 1000)
	assert.Len(t, []rune(chunks[2].Content), 700)
}

func TestSplitTextOverlapCarriesTail(t *testing.T) {
	para1 := strings.Repeat("a", 280)
	para2 := strings.Repeat("b", 200)
	chunks := SplitText(para1+"\n\n"+para2, 300, 50)
	require.Len(t, chunks, 2)

	first := []rune(chunks[0].Content)
	tail := string(first[len(first)-50:])
	// 第二个分块应以上一个分块的尾部重叠开头，且仍不超过 chunkSize
	assert.True(t, strings.HasPrefix(chunks[1].Content, tail))
	assert.LessOrEqual(t, len([]rune(chunks[1].Content)), 300)
}

func TestSplitTextInvalidConfigFallsBackToDefaults(t *testing.T) {
	chunks := SplitText("hello world", 0, -1)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Content)
}
