package domain

// DefaultImageType は紐付けが見つからない場合の画像種別です。
const DefaultImageType = "人物"

// Binding はキャラクター名と参照画像の永続化された紐付けです。
type Binding struct {
	CharacterName      string  `json:"character_name"`
	ReferenceImagePath *string `json:"reference_image_path"`
	ImageType          string  `json:"image_type"`
	CreatedAt          string  `json:"created_at"`
	Bound              bool    `json:"bound"`
}
