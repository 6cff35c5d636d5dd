package adapters

import (
	"context"
	"time"
)

// --- Mocks ---

// mockHTTPClient は HTTPClient を実装します。
type mockHTTPClient struct {
	calls     int
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	return m.fetchFunc(ctx, url)
}

// mockCache は ImageCacher インターフェースを実装するのだ。
type mockCache struct {
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	if m.data == nil {
		m.data = make(map[string]any)
	}
	m.data[key] = value
}

func allowAll(string) (bool, error) { return true, nil }

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
