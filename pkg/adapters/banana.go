package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const (
	BananaProModel  = "gemini-3.1-flash-image-preview"
	defaultMIMEType = "image/png"
)

// bananaRequest は generateContent のリクエストボディです。
type bananaRequest struct {
	Contents         []*genai.Content       `json:"contents"`
	GenerationConfig bananaGenerationConfig `json:"generationConfig"`
}

type bananaGenerationConfig struct {
	ResponseModalities []string          `json:"responseModalities"`
	ImageConfig        bananaImageConfig `json:"imageConfig"`
}

type bananaImageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize"`
}

// BananaProAdapter はアスペクト比とサイズ階層を持つバックエンド用のアダプタです。
type BananaProAdapter struct {
	fetcher *ImageFetcher
}

// NewBananaProAdapter は生成します。fetcher が nil の場合、URL の参照画像は送信されません。
func NewBananaProAdapter(fetcher *ImageFetcher) *BananaProAdapter {
	return &BananaProAdapter{fetcher: fetcher}
}

func (a *BananaProAdapter) Provider() domain.Provider { return domain.ProviderBananaPro }

// BuildRequest は API キーをクエリに付けた POST を組み立てます。
// parts は参照画像が先、最後にプロンプトのテキストです。
func (a *BananaProAdapter) BuildRequest(ctx context.Context, cfg domain.ProviderConfig, in Input) (*http.Request, error) {
	parts := make([]*genai.Part, 0, len(in.Images)+1)
	for _, img := range in.Images {
		if part := a.imagePart(ctx, img); part != nil {
			parts = append(parts, part)
		}
	}
	parts = append(parts, genai.NewPartFromText(in.Prompt))

	body := bananaRequest{
		Contents: []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		GenerationConfig: bananaGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig: bananaImageConfig{
				AspectRatio: CalculateAspectRatio(in.Width, in.Height),
				ImageSize:   SizeTier(in.Width),
			},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストのシリアライズに失敗しました: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(cfg.BaseURL, "/"), BananaProModel, url.QueryEscape(cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ParseResponse は各候補の最初の inlineData を data URI にします。1枚も無ければ ErrNoImagesGenerated です。
func (a *BananaProAdapter) ParseResponse(body []byte) ([]string, error) {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResponseParseFailed, err)
	}
	if len(probe.Error) > 0 && string(probe.Error) != "null" {
		return nil, fmt.Errorf("%w: APIがエラーを返しました: %s", domain.ErrRequestFailed, truncate(string(probe.Error), maxErrorBodyLength))
	}

	var raw genai.GenerateContentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResponseParseFailed, err)
	}

	images := collectInlineImages(&raw)
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: レスポンスに画像が含まれていません", domain.ErrNoImagesGenerated)
	}
	return images, nil
}

// collectInlineImages はすべての候補を走査し、候補ごとに最初の画像パーツを取り出すのだ。
func collectInlineImages(resp *genai.GenerateContentResponse) []string {
	if resp == nil {
		return nil
	}
	var images []string
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = defaultMIMEType
			}
			images = append(images, "data:"+mime+";base64,"+base64.StdEncoding.EncodeToString(part.InlineData.Data))
			break
		}
	}
	return images
}

// imagePart は参照画像1件を inlineData パーツに変換します。変換できないものは nil でスキップします。
func (a *BananaProAdapter) imagePart(ctx context.Context, img string) *genai.Part {
	if isHTTPURL(img) {
		if a.fetcher == nil {
			slog.WarnContext(ctx, "URLの参照画像は取得できないためスキップします", "url", img)
			return nil
		}
		data, err := a.fetcher.Fetch(ctx, img)
		if err != nil {
			slog.WarnContext(ctx, "参照画像の取得に失敗しました。テキストのみで続行します", "url", img, "error", err)
			return nil
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			slog.WarnContext(ctx, "MIMEタイプが画像ではないためPartに変換できませんでした", "url", img, "detected_mime_type", mime)
			return nil
		}
		return genai.NewPartFromBytes(data, mime)
	}

	mime, payload := splitDataURI(img)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		slog.WarnContext(ctx, "参照画像の base64 が不正なためスキップします", "error", err)
		return nil
	}
	if mime == "" {
		mime = sniffMIME(data)
	}
	return genai.NewPartFromBytes(data, mime)
}

// splitDataURI は "data:<mime>;base64,<data>" を分解します。data URI でなければ mime は空です。
func splitDataURI(s string) (mime, payload string) {
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	header, data, ok := strings.Cut(s, ",")
	if !ok {
		return "", s
	}
	mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	return mime, data
}

// sniffMIME はバイト列から画像の MIME を推定し、判別できなければ image/png とします。
func sniffMIME(data []byte) string {
	if mime := http.DetectContentType(data); strings.HasPrefix(mime, "image/") {
		return mime
	}
	return defaultMIMEType
}

// CalculateAspectRatio は width:height を最大公約数で約分した文字列を返します。
func CalculateAspectRatio(width, height int) string {
	g := gcd(width, height)
	if g == 0 {
		return "1:1"
	}
	return fmt.Sprintf("%d:%d", width/g, height/g)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// SizeTier は幅から画像サイズの階層を決めます。
func SizeTier(width int) string {
	switch {
	case width <= 576:
		return "256k"
	case width <= 1024:
		return "1K"
	case width <= 2048:
		return "2K"
	default:
		return "4K"
	}
}
