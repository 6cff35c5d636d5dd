package server

import (
	"context"
	"fmt"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// Generation は生成・ポーリング・疎通確認の窓口です。*generator.Generator がこれを満たします。
type Generation interface {
	Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult
	PollTask(id string) (domain.GenerationTask, error)
	TestConnectivity(ctx context.Context, providerName string, baseURL, apiKey *string) (bool, error)
	InFlight() int64
}

// Settings は API 設定と生成設定の永続化を行います。*settings.Store がこれを満たします。
type Settings interface {
	LoadAPIConfig() (domain.APIConfig, error)
	SaveAPIConfig(cfg domain.APIConfig) error
	LoadGenerationConfig() (domain.GenerationConfig, error)
	SaveGenerationConfig(cfg domain.GenerationConfig) error
}

// Bindings は参照画像と紐付けの管理です。*binding.Manager がこれを満たします。
type Bindings interface {
	ImageDir() string
	SaveReferenceImage(ctx context.Context, name, data, imageType string) (domain.Binding, error)
	Bind(ctx context.Context, name, path, imageType string) (domain.Binding, error)
	Unbind(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Binding, error)
	ListByType(ctx context.Context, imageType string) ([]domain.Binding, error)
	Search(ctx context.Context, query, tag string) ([]domain.Binding, error)
	ForPrompt(ctx context.Context, names []string) ([]domain.CharacterBindingInfo, error)
	Tags(ctx context.Context, name string) ([]string, error)
	AddTag(ctx context.Context, name, tag string) error
	RemoveTag(ctx context.Context, name, tag string) error
	AllTags(ctx context.Context) ([]string, error)
}

// Handler は JSON API の各エンドポイントを実装します。
type Handler struct {
	gen      Generation
	settings Settings
	bindings Bindings
}

// NewHandler は依存関係を注入して Handler を初期化します。
func NewHandler(gen Generation, settings Settings, bindings Bindings) (*Handler, error) {
	if gen == nil || settings == nil || bindings == nil {
		return nil, fmt.Errorf("generation, settings and bindings are required")
	}
	return &Handler{gen: gen, settings: settings, bindings: bindings}, nil
}
