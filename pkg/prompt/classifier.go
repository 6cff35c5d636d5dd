package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// Classify は1つの節をキーワード表に基づいて分類します。
// どのキーワードにも一致しない場合は other を返すのだ。
func Classify(clause string) domain.SegmentKind {
	lower := strings.ToLower(clause)
	for _, t := range classificationTiers {
		if kind, ok := t.match(lower); ok {
			return kind
		}
	}
	return domain.SegmentOther
}

// match は tier 内で最長一致したカテゴリを返します。同長の場合は先勝ちです。
func (t tier) match(text string) (domain.SegmentKind, bool) {
	var (
		best    domain.SegmentKind
		bestLen int
	)
	for _, c := range t {
		if n := longestMatch(text, c.keywords); n > bestLen {
			best, bestLen = c.kind, n
		}
	}
	return best, bestLen > 0
}

// longestMatch は text に部分一致するキーワードのうち最長の文字数を返します。
func longestMatch(text string, keywords []string) int {
	longest := 0
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			continue
		}
		if n := utf8.RuneCountInString(kw); n > longest {
			longest = n
		}
	}
	return longest
}
