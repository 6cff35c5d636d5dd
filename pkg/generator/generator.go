package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/shouni/prompt-image-kit/pkg/adapters"
	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/prompt"
)

const (
	progressConfigLoading = 10
	progressGenerating    = 30
	progressDone          = 100
)

// Generator はタスク管理・紐付け解決・画像準備・プロバイダ呼び出しをまとめる統合窓口です。
type Generator struct {
	config   ConfigLoader
	resolver BindingResolver
	images   ImagePreparer
	client   ProviderClient
	tasks    *TaskTable

	inFlight atomic.Int64
	newID    func() string
}

// New は依存関係を注入して Generator を初期化します。
func New(config ConfigLoader, resolver BindingResolver, images ImagePreparer, client ProviderClient) (*Generator, error) {
	if config == nil {
		return nil, fmt.Errorf("config loader is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("binding resolver is required")
	}
	if images == nil {
		return nil, fmt.Errorf("image preparer is required")
	}
	if client == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	return &Generator{
		config:   config,
		resolver: resolver,
		images:   images,
		client:   client,
		tasks:    NewTaskTable(),
		newID:    func() string { return "task_" + uuid.NewString() },
	}, nil
}

// Generate は1回の生成呼び出しを実行します。
// 失敗はすべて GenerationResult.Error に変換され、この境界より外にエラーは返さないのだ。
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	g.inFlight.Inc()
	defer g.inFlight.Dec()

	id := g.newID()
	g.tasks.Create(id)
	start := time.Now()
	slog.InfoContext(ctx, "画像生成を開始します", "task_id", id, "model", req.Provider)

	images, err := g.run(ctx, id, req)
	if err != nil {
		g.tasks.Update(id, domain.TaskFailed, 0, err.Error())
		slog.WarnContext(ctx, "画像生成に失敗しました", "task_id", id, "error", err, "elapsed", time.Since(start))
		msg := err.Error()
		return domain.GenerationResult{Success: false, Images: []string{}, Error: &msg, TaskID: id}
	}

	g.tasks.Update(id, domain.TaskCompleted, progressDone, "完了しました")
	slog.InfoContext(ctx, "画像生成が完了しました", "task_id", id, "images", len(images), "elapsed", time.Since(start))
	return domain.GenerationResult{Success: true, Images: images, TaskID: id}
}

func (g *Generator) run(ctx context.Context, id string, req domain.GenerationRequest) ([]string, error) {
	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	g.tasks.Update(id, domain.TaskProcessing, progressConfigLoading, "設定を読み込んでいます")
	cfg, err := g.config.LoadAPIConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Empty() {
		return nil, fmt.Errorf("%w: どのプロバイダにもAPIキーが設定されていません", domain.ErrConfigMissing)
	}

	g.tasks.Update(id, domain.TaskProcessing, progressGenerating, "画像を生成しています")
	pc, _ := cfg.For(provider)
	if strings.TrimSpace(pc.APIKey) == "" {
		return nil, fmt.Errorf("%w: %s のAPIキーが設定されていません", domain.ErrMissingCredential, provider)
	}

	in := adapters.Input{
		Prompt:         annotatePrompt(req.Prompt, req.CharacterBindings),
		Width:          req.Width,
		Height:         req.Height,
		Count:          req.Count,
		Quality:        req.Quality,
		Size:           req.Size,
		SequentialMode: req.SequentialMode,
		ResponseFormat: req.ResponseFormat,
		Watermark:      req.Watermark,
		Images:         g.collectImages(ctx, req),
	}
	return g.client.Generate(ctx, provider, pc, in)
}

// collectImages は明示的な参照画像の後ろに紐付け済みキャラクターの画像を続けます。空なら nil なのだ。
func (g *Generator) collectImages(ctx context.Context, req domain.GenerationRequest) []string {
	merged := append([]string(nil), req.InlineImages...)
	for _, b := range req.CharacterBindings {
		path := boundPath(b)
		if path == "" {
			continue
		}
		payload := g.images.Prepare(ctx, path)
		if !payload.OK() {
			continue
		}
		slog.DebugContext(ctx, "参照画像を追加しました", "character", b.CharacterName, "outcome", payload.Outcome.String())
		merged = append(merged, payload.Data)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// annotatePrompt は紐付け済みキャラクターごとに " [名前: パス]" を末尾に追加します。
func annotatePrompt(base string, bindings []domain.CharacterBindingInfo) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, b := range bindings {
		if path := boundPath(b); path != "" {
			fmt.Fprintf(&sb, " [%s: %s]", b.CharacterName, path)
		}
	}
	return sb.String()
}

func boundPath(b domain.CharacterBindingInfo) string {
	if b.ReferenceImagePath == nil {
		return ""
	}
	return *b.ReferenceImagePath
}

// GenerateFromPrompt は生のプロンプトを解析し、紐付けを解決してから生成します。
// 解析と解決のエラーはそのまま返し、生成の失敗は結果の中に入るのだ。
func (g *Generator) GenerateFromPrompt(ctx context.Context, raw string, opts domain.GenerationRequest) (*domain.ParsedPrompt, domain.GenerationResult, error) {
	parsed, err := prompt.Compile(raw)
	if err != nil {
		return nil, domain.GenerationResult{}, err
	}
	bindings, err := g.resolver.Resolve(ctx, parsed.Characters)
	if err != nil {
		return parsed, domain.GenerationResult{}, err
	}

	req := opts
	req.Prompt = parsed.Cleaned
	req.CharacterBindings = bindings
	return parsed, g.Generate(ctx, req), nil
}

// PollTask は実行中タスクの状態を返します。完了済み・未作成の場合は TaskNotFound です。
func (g *Generator) PollTask(id string) (domain.GenerationTask, error) {
	return g.tasks.Get(id)
}

// TestConnectivity はプロバイダへの疎通を確認します。
// baseURL と apiKey の両方が与えられた場合はそれを使い、そうでなければ保存済みの設定で補うのだ。
// キーが空のままなら接続は試さず MissingCredential です。
func (g *Generator) TestConnectivity(ctx context.Context, providerName string, baseURL, apiKey *string) (bool, error) {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return false, err
	}

	var pc domain.ProviderConfig
	if baseURL == nil || apiKey == nil {
		cfg, err := g.config.LoadAPIConfig()
		if err != nil {
			return false, err
		}
		pc, _ = cfg.For(provider)
	}
	if baseURL != nil {
		pc.BaseURL = *baseURL
	}
	if apiKey != nil {
		pc.APIKey = *apiKey
	}
	if strings.TrimSpace(pc.BaseURL) == "" {
		return false, fmt.Errorf("%w: %s の接続先が設定されていません", domain.ErrConfigMissing, provider)
	}
	if strings.TrimSpace(pc.APIKey) == "" {
		return false, fmt.Errorf("%w: %s のAPIキーが設定されていません", domain.ErrMissingCredential, provider)
	}

	return g.client.CheckConnectivity(ctx, pc.BaseURL, pc.APIKey), nil
}

// InFlight は実行中の生成呼び出しの数です。
func (g *Generator) InFlight() int64 {
	return g.inFlight.Load()
}
