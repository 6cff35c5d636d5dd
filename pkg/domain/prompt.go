package domain

// SegmentKind はプロンプト節の分類なのだ。
type SegmentKind string

const (
	SegmentScene      SegmentKind = "scene"
	SegmentAction     SegmentKind = "action"
	SegmentCharacter  SegmentKind = "character"
	SegmentBackground SegmentKind = "background"
	SegmentTime       SegmentKind = "time"
	SegmentWeather    SegmentKind = "weather"
	SegmentStyle      SegmentKind = "style"
	SegmentOther      SegmentKind = "other"
)

// CharacterReference はプロンプト中の @名前 マーカー1つ分です。
type CharacterReference struct {
	Name                string  `json:"name"`
	BoundReferenceImage *string `json:"boundReferenceImage"`
	Bound               bool    `json:"bound"`
}

// PromptSegment は整形済みプロンプトの1節です。
// オフセットはマーカー除去後の文字列に対する文字（rune）位置です。
type PromptSegment struct {
	Kind        SegmentKind `json:"kind"`
	Text        string      `json:"text"`
	StartOffset int         `json:"startOffset"`
	EndOffset   int         `json:"endOffset"`
}

// ParsedPrompt はプロンプト解析の結果です。
type ParsedPrompt struct {
	Original   string               `json:"original"`
	Cleaned    string               `json:"cleaned"`
	Segments   []PromptSegment      `json:"segments"`
	Characters []CharacterReference `json:"characters"`
}
