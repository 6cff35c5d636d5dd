package prompt

import (
	"regexp"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// characterPattern は "@" に続く単語文字列（非ASCII文字を含む）に一致します。
var characterPattern = regexp.MustCompile(`@([\p{L}\p{M}\p{Nd}\p{Pc}]+)`)

// ExtractCharacters はテキストを左から走査し、参照されたキャラクターを初出順・重複なしで返します。
func ExtractCharacters(text string) []domain.CharacterReference {
	matches := characterPattern.FindAllStringSubmatch(text, -1)
	refs := make([]domain.CharacterReference, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		refs = append(refs, domain.CharacterReference{Name: name})
	}
	return refs
}

// ExtractNames はキャラクター名だけを返す簡易版なのだ。
func ExtractNames(text string) []string {
	refs := ExtractCharacters(text)
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

// StripMarkers はキャラクターマーカーをすべて取り除きます。前後の空白はそのままです。
func StripMarkers(text string) string {
	return characterPattern.ReplaceAllString(text, "")
}
