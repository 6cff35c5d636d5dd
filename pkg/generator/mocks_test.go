package generator

import (
	"context"

	"github.com/shouni/prompt-image-kit/pkg/adapters"
	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/imgutil"
)

// --- Mocks ---

type mockConfig struct {
	cfg domain.APIConfig
	err error
}

func (m *mockConfig) LoadAPIConfig() (domain.APIConfig, error) { return m.cfg, m.err }

type mockResolver struct {
	resolveFunc func(ctx context.Context, chars []domain.CharacterReference) ([]domain.CharacterBindingInfo, error)
}

func (m *mockResolver) Resolve(ctx context.Context, chars []domain.CharacterReference) ([]domain.CharacterBindingInfo, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, chars)
	}
	out := make([]domain.CharacterBindingInfo, len(chars))
	for i, c := range chars {
		out[i] = domain.CharacterBindingInfo{CharacterName: c.Name, ImageType: domain.DefaultImageType}
	}
	return out, nil
}

type mockPreparer struct {
	payloads map[string]imgutil.Payload
	calls    []string
}

func (m *mockPreparer) Prepare(ctx context.Context, path string) imgutil.Payload {
	m.calls = append(m.calls, path)
	if p, ok := m.payloads[path]; ok {
		return p
	}
	return imgutil.Payload{Outcome: imgutil.OutcomeSkipped}
}

type mockClient struct {
	generateFunc func(ctx context.Context, p domain.Provider, cfg domain.ProviderConfig, in adapters.Input) ([]string, error)
	lastProvider domain.Provider
	lastConfig   domain.ProviderConfig
	lastInput    adapters.Input
	connected    bool
	lastBaseURL  string
	lastAPIKey   string
}

func (m *mockClient) Generate(ctx context.Context, p domain.Provider, cfg domain.ProviderConfig, in adapters.Input) ([]string, error) {
	m.lastProvider, m.lastConfig, m.lastInput = p, cfg, in
	if m.generateFunc != nil {
		return m.generateFunc(ctx, p, cfg, in)
	}
	return []string{"https://cdn/out.png"}, nil
}

func (m *mockClient) CheckConnectivity(ctx context.Context, baseURL, apiKey string) bool {
	m.lastBaseURL, m.lastAPIKey = baseURL, apiKey
	return m.connected
}

func strPtr(s string) *string { return &s }

func fullConfig() domain.APIConfig {
	return domain.APIConfig{
		Seedream:  domain.ProviderConfig{BaseURL: "https://seedream", APIKey: "sk-s"},
		BananaPro: domain.ProviderConfig{BaseURL: "https://banana", APIKey: "sk-b"},
	}
}
