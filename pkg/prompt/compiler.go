package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// clauseSeparators は節の区切りとなる句読点（全角・半角）です。
const clauseSeparators = "，。！？；,.!?;"

// Compile は生のプロンプトを解析して ParsedPrompt を組み立てます。
// 空文字列の場合は domain.ErrEmptyInput を返すのだ。
func Compile(raw string) (*domain.ParsedPrompt, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: プロンプトが空です", domain.ErrEmptyInput)
	}

	cleaned := strings.TrimSpace(StripMarkers(raw))
	return &domain.ParsedPrompt{
		Original:   raw,
		Cleaned:    cleaned,
		Segments:   Segment(cleaned),
		Characters: ExtractCharacters(raw),
	}, nil
}

// Segment は整形済みプロンプトを節に分割し、それぞれ分類します。
// オフセットは節の間で区切り文字を1文字消費したものとして累積するのだ。
func Segment(cleaned string) []domain.PromptSegment {
	segments := []domain.PromptSegment{}
	if cleaned == "" {
		return segments
	}

	pos := 0
	for _, clause := range splitClauses(cleaned) {
		n := utf8.RuneCountInString(clause)
		segments = append(segments, domain.PromptSegment{
			Kind:        Classify(clause),
			Text:        clause,
			StartOffset: pos,
			EndOffset:   pos + n,
		})
		pos += n + 1
	}

	// 区切りだけの入力は節を持たないため、全体を1節にするのは区切りが無い場合に限るのだ。
	if len(segments) == 0 && !strings.ContainsAny(cleaned, clauseSeparators) {
		segments = append(segments, domain.PromptSegment{
			Kind:        Classify(cleaned),
			Text:        cleaned,
			StartOffset: 0,
			EndOffset:   utf8.RuneCountInString(cleaned),
		})
	}
	return segments
}

// splitClauses は句読点で分割し、空白を除去して空の節を捨てます。
func splitClauses(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(clauseSeparators, r)
	})
	clauses := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			clauses = append(clauses, c)
		}
	}
	return clauses
}
