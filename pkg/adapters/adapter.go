package adapters

import (
	"context"
	"net/http"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// Input はプロバイダに依存しない、アダプタ向けに整えた生成要求です。
type Input struct {
	Prompt         string
	Width          int
	Height         int
	Count          int
	Quality        string
	Size           *string
	SequentialMode *string
	ResponseFormat *string
	Watermark      *bool
	// Images は http(s) URL、data URI、または素の base64。無い場合は nil。
	Images []string
}

// Adapter は1つのバックエンドのワイヤ形式への変換を担当します。
type Adapter interface {
	Provider() domain.Provider
	// BuildRequest は送信する HTTP リクエストを組み立てます。
	BuildRequest(ctx context.Context, cfg domain.ProviderConfig, in Input) (*http.Request, error)
	// ParseResponse は 2xx のレスポンスボディから画像参照（URL または data URI）を取り出します。
	ParseResponse(body []byte) ([]string, error)
}

// Doer は HTTP リクエストを実行します。*http.Client がこれを満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
