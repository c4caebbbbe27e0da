package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentenceOf(n int, letter string) string {
	return strings.Repeat(letter, n-1) + "."
}

func TestSplitPacksGreedily(t *testing.T) {
	s1 := sentenceOf(45, "a")
	s2 := sentenceOf(45, "b")
	s3 := sentenceOf(148, "c")
	text := s1 + " " + s2 + " " + s3
	require.Equal(t, 240, utf8.RuneCountInString(text))

	chunks := Split(text, 100)

	assert.Equal(t, []string{s1 + " " + s2, s3}, chunks)
}

func TestSplitThreeEvenSentences(t *testing.T) {
	s1 := sentenceOf(79, "a")
	s2 := sentenceOf(79, "b")
	s3 := sentenceOf(80, "c")
	text := s1 + " " + s2 + " " + s3
	require.Equal(t, 240, utf8.RuneCountInString(text))

	assert.Equal(t, []string{s1, s2, s3}, Split(text, 100))
}

func TestSplitNeverExceedsBudgetUnlessSingleSentence(t *testing.T) {
	text := "첫 번째 문장입니다. 두 번째 문장은 조금 더 깁니다! 세 번째는 질문인가요? " +
		"네 번째。다섯 번째！여섯 번째？\n일곱 번째 줄은 줄바꿈으로 끝납니다\n마지막."

	for _, budget := range []int{5, 12, 20, 40, 200} {
		chunks := Split(text, budget)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.NotEmpty(t, strings.TrimSpace(c))
			if utf8.RuneCountInString(c) > budget {
				assert.Len(t, sentences(c), 1, "oversize chunk %q holds more than one sentence", c)
			}
		}
	}
}

func TestSplitPreservesOrder(t *testing.T) {
	text := "One. Two? Three! Four. Five."
	chunks := Split(text, 10)
	assert.Equal(t, []string{"One. Two?", "Three!", "Four.", "Five."}, chunks)
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplitFullWidthAndLineBreaks(t *testing.T) {
	chunks := Split("今日は晴れ。明日は雨！\n\n  あさっては？", 1)
	assert.Equal(t, []string{"今日は晴れ。", "明日は雨！", "あさっては？"}, chunks)
}

func TestSplitKeepsTrailingMarksAndQuotes(t *testing.T) {
	chunks := Split(`He said "Stop!" Then... silence?!`, 1)
	assert.Equal(t, []string{`He said "Stop!"`, "Then...", "silence?!"}, chunks)
}

func TestSplitKeepsDecimalTogetherInOneChunk(t *testing.T) {
	assert.Equal(t, []string{"Pi is 3.14 exactly."}, Split("Pi is 3.14 exactly.", 100))
}

func TestSplitLineBreakBecomesSpace(t *testing.T) {
	assert.Equal(t, []string{"first line second line"}, Split("first line\nsecond line", 100))
}

func TestSplitBlankAndBoundaryless(t *testing.T) {
	assert.Nil(t, Split("", 100))
	assert.Nil(t, Split("  \n\t \n", 100))

	long := strings.Repeat("word ", 50)
	assert.Equal(t, []string{strings.TrimSpace(long)}, Split(long, 10))
}

func TestBudgetFor(t *testing.T) {
	assert.Equal(t, 160, BudgetFor(20, 8))
	assert.Equal(t, 160, BudgetFor(0, 0))
	assert.Equal(t, 300, BudgetFor(30, 10))
}

func TestSplitPackedChunkStaysUnderBudget(t *testing.T) {
	s1 := sentenceOf(3, "a")
	s2 := sentenceOf(3, "b")

	assert.Equal(t, []string{s1, s2}, Split(s1+" "+s2, 7))
	assert.Equal(t, []string{s1 + " " + s2}, Split(s1+" "+s2, 8))
}
