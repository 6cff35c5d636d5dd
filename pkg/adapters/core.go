package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const (
	// ConnectivityTimeout は疎通確認だけに使う固定タイムアウトです。
	ConnectivityTimeout = 10 * time.Second
	maxErrorBodyLength  = 512
)

// Client は登録されたアダプタを使って生成リクエストを1回だけ実行します。再試行はしないのだ。
type Client struct {
	doer     Doer
	adapters map[domain.Provider]Adapter
}

// NewClient は Doer とアダプタ群から Client を生成します。
func NewClient(doer Doer, adapters ...Adapter) *Client {
	m := make(map[domain.Provider]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Provider()] = a
	}
	return &Client{doer: doer, adapters: m}
}

// Generate は指定プロバイダで画像を生成し、画像参照のリストを返します。
func (c *Client) Generate(ctx context.Context, p domain.Provider, cfg domain.ProviderConfig, in Input) ([]string, error) {
	a, ok := c.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, p)
	}

	req, err := a.BuildRequest(ctx, cfg, in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.execute(req)
	if err != nil {
		slog.WarnContext(ctx, "画像生成リクエストに失敗しました", "provider", p, "error", err)
		return nil, err
	}
	slog.InfoContext(ctx, "画像生成リクエストが完了しました", "provider", p, "elapsed", time.Since(start))

	return a.ParseResponse(body)
}

// CheckConnectivity は GET {baseURL}/v1/models で疎通を確認します。
// 2xx に加えて 401（認証情報は誤りだがエンドポイントは生きている）も到達可能とみなすのだ。
func (c *Client) CheckConnectivity(ctx context.Context, baseURL, apiKey string) bool {
	ctx, cancel := context.WithTimeout(ctx, ConnectivityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, "/v1/models"), nil)
	if err != nil {
		slog.WarnContext(ctx, "疎通確認リクエストの作成に失敗しました", "base_url", baseURL, "error", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.doer.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "疎通確認に失敗しました", "base_url", baseURL, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return isSuccess(resp.StatusCode) || resp.StatusCode == http.StatusUnauthorized
}

// execute はリクエストを送り、2xx のボディを返します。それ以外は ErrRequestFailed です。
func (c *Client) execute(req *http.Request) ([]byte, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: レスポンスの読み込みに失敗しました: %v", domain.ErrRequestFailed, err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrRequestFailed, resp.Status, truncate(string(body), maxErrorBodyLength))
	}
	return body, nil
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
