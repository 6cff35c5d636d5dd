package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const (
	SeedreamModel           = "doubao-seedream-4-0-250828"
	seedreamPath            = "/v1/images/generations"
	seedreamDefaultSize     = "2K"
	seedreamSequentialAuto  = "auto"
	seedreamDefaultMaxImage = 3
)

// seedreamBody は SDK のリクエスト型に、参照画像の配列を重ねたものです。
// 外側の Image フィールドが SDK 側の image より優先してシリアライズされます。
type seedreamBody struct {
	model.GenerateImagesRequest
	Image []string `json:"image,omitempty"`
}

// SeedreamAdapter はサイズ指定と連続生成モードを持つバックエンド用のアダプタです。
type SeedreamAdapter struct{}

func NewSeedreamAdapter() *SeedreamAdapter { return &SeedreamAdapter{} }

func (a *SeedreamAdapter) Provider() domain.Provider { return domain.ProviderSeedream }

// BuildRequest は Bearer 認証付きの POST {base}/v1/images/generations を組み立てます。
func (a *SeedreamAdapter) BuildRequest(ctx context.Context, cfg domain.ProviderConfig, in Input) (*http.Request, error) {
	body := seedreamBody{GenerateImagesRequest: a.buildPayload(in), Image: formatSeedreamImages(in.Images)}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストのシリアライズに失敗しました: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(cfg.BaseURL, seedreamPath), bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

func (a *SeedreamAdapter) buildPayload(in Input) model.GenerateImagesRequest {
	size := seedreamDefaultSize
	if in.Size != nil {
		size = *in.Size
	}
	watermark := false
	if in.Watermark != nil {
		watermark = *in.Watermark
	}

	mode := model.SequentialImageGeneration(seedreamSequentialAuto)
	if in.SequentialMode != nil {
		mode = model.SequentialImageGeneration(*in.SequentialMode)
	}

	req := model.GenerateImagesRequest{
		Model:                     SeedreamModel,
		Prompt:                    in.Prompt,
		Size:                      volcengine.String(size),
		Watermark:                 volcengine.Bool(watermark),
		SequentialImageGeneration: &mode,
	}
	if mode == seedreamSequentialAuto {
		maxImages := seedreamDefaultMaxImage
		req.SequentialImageGenerationOptions = &model.SequentialImageGenerationOptions{MaxImages: &maxImages}
	}
	if in.ResponseFormat != nil {
		req.ResponseFormat = volcengine.String(*in.ResponseFormat)
	}
	return req
}

// ParseResponse は data[].url を取り出します。空でもエラーにはしないのだ。
func (a *SeedreamAdapter) ParseResponse(body []byte) ([]string, error) {
	var resp model.ImagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResponseParseFailed, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %v - %v", domain.ErrRequestFailed, resp.Error.Code, resp.Error.Message)
	}

	images := make([]string, 0, len(resp.Data))
	for _, image := range resp.Data {
		if image.Url != nil && *image.Url != "" {
			images = append(images, *image.Url)
		}
	}
	return images, nil
}

// formatSeedreamImages は素の base64 を data URI に包みます。URL と data URI はそのままです。
func formatSeedreamImages(images []string) []string {
	if len(images) == 0 {
		return nil
	}
	out := make([]string, len(images))
	for i, img := range images {
		switch {
		case strings.HasPrefix(img, "data:"), isHTTPURL(img):
			out[i] = img
		default:
			out[i] = "data:image/png;base64," + img
		}
	}
	return out
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
