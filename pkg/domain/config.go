package domain

// ProviderConfig は1プロバイダ分の接続情報です。
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// APIConfig は暗号化して保存される認証情報一式です。
type APIConfig struct {
	Seedream  ProviderConfig `json:"seedream"`
	BananaPro ProviderConfig `json:"banana_pro"`
}

// For は Provider に対応する設定を返します。
func (c APIConfig) For(p Provider) (ProviderConfig, bool) {
	switch p {
	case ProviderSeedream:
		return c.Seedream, true
	case ProviderBananaPro:
		return c.BananaPro, true
	default:
		return ProviderConfig{}, false
	}
}

// Empty はどのプロバイダにもキーが設定されていない場合 true なのだ。
func (c APIConfig) Empty() bool {
	return c.Seedream.APIKey == "" && c.BananaPro.APIKey == ""
}

// GenerationConfig は平文で保存される生成設定です。
type GenerationConfig struct {
	Model                     string  `json:"model"`
	Width                     int     `json:"width"`
	Height                    int     `json:"height"`
	Count                     int     `json:"count"`
	Quality                   string  `json:"quality"`
	Size                      *string `json:"size,omitempty"`
	SequentialImageGeneration *string `json:"sequentialImageGeneration,omitempty"`
	ResponseFormat            *string `json:"responseFormat,omitempty"`
	Watermark                 *bool   `json:"watermark,omitempty"`
}
