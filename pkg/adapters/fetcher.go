package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

// HTTPClient は URL からデータを取得するためのインターフェースです。
// httpkit.ClientInterface がこれを満たします。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ImageCacher は、画像をキャッシュするためのインターフェースです。
// github.com/patrickmn/go-cache の *cache.Cache がこれを満たします。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// URLValidator は取得してよい URL かどうかを判定します。
type URLValidator func(rawURL string) (bool, error)

// ImageFetcher は http(s) の参照画像をダウンロードしてキャッシュします。
type ImageFetcher struct {
	httpClient HTTPClient
	cache      ImageCacher
	cacheTTL   time.Duration
	validate   URLValidator
	group      singleflight.Group
}

// NewImageFetcher は依存関係を注入して ImageFetcher を生成します。
func NewImageFetcher(httpClient HTTPClient, cache ImageCacher, cacheTTL time.Duration) *ImageFetcher {
	return &ImageFetcher{
		httpClient: httpClient,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validate:   isSafeURL,
	}
}

// Fetch は URL の画像を返します。同じ URL への同時取得は1回にまとめるのだ。
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if cached, found := f.cache.Get(rawURL); found {
		if data, ok := cached.([]byte); ok {
			return data, nil
		}
		slog.WarnContext(ctx, "キャッシュデータが不正な型です", "url", rawURL, "type", fmt.Sprintf("%T", cached))
	}

	// SSRF対策のバリデーション
	if safe, err := f.validate(rawURL); !safe || err != nil {
		return nil, fmt.Errorf("取得を許可されていないURLです (%s): %w", rawURL, err)
	}

	v, err, _ := f.group.Do(rawURL, func() (any, error) {
		data, err := f.httpClient.FetchBytes(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		f.cache.Set(rawURL, data, f.cacheTTL)
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("参照画像のダウンロードに失敗しました (%s): %w", rawURL, err)
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", v)
	}
	return data, nil
}

// isSafeURL は SSRF 対策として URL を検証します。
// 名前解決されたすべての IP アドレスに対してプライベート IP チェックを行います。
func isSafeURL(rawURL string) (bool, error) {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLパース失敗: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, fmt.Errorf("不許可スキーム: %s", parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolvedIPs, err := net.LookupIP(host)
		if err != nil {
			return false, fmt.Errorf("名前解決失敗: %w", err)
		}
		ips = resolvedIPs
	}

	if len(ips) == 0 {
		return false, fmt.Errorf("IPが見つかりません")
	}

	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return false, fmt.Errorf("制限されたネットワークへのアクセスを検知: %s", ip.String())
		}
	}

	return true, nil
}
