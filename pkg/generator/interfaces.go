package generator

import (
	"context"

	"github.com/shouni/prompt-image-kit/pkg/adapters"
	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/imgutil"
)

// ConfigLoader は復号済みの API 設定を返します。
type ConfigLoader interface {
	LoadAPIConfig() (domain.APIConfig, error)
}

// BindingResolver はキャラクター参照を紐付け情報に解決します。
type BindingResolver interface {
	Resolve(ctx context.Context, characters []domain.CharacterReference) ([]domain.CharacterBindingInfo, error)
}

// ImagePreparer は参照画像ファイルを送信可能な base64 に整えます。
type ImagePreparer interface {
	Prepare(ctx context.Context, path string) imgutil.Payload
}

// ProviderClient はプロバイダへの生成呼び出しと疎通確認を行います。
type ProviderClient interface {
	Generate(ctx context.Context, p domain.Provider, cfg domain.ProviderConfig, in adapters.Input) ([]string, error)
	CheckConnectivity(ctx context.Context, baseURL, apiKey string) bool
}
