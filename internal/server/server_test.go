package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/prompt-image-kit/pkg/binding"
	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/settings"
)

// --- Mocks ---

type mockGeneration struct {
	generateFunc func(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult
	pollFunc     func(id string) (domain.GenerationTask, error)
	connectFunc  func(ctx context.Context, name string, baseURL, apiKey *string) (bool, error)
	lastRequest  domain.GenerationRequest
}

func (m *mockGeneration) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	m.lastRequest = req
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return domain.GenerationResult{Success: true, Images: []string{"https://cdn/1.png"}, TaskID: "task_1"}
}

func (m *mockGeneration) PollTask(id string) (domain.GenerationTask, error) {
	if m.pollFunc != nil {
		return m.pollFunc(id)
	}
	return domain.GenerationTask{}, domain.ErrTaskNotFound
}

func (m *mockGeneration) TestConnectivity(ctx context.Context, name string, baseURL, apiKey *string) (bool, error) {
	if m.connectFunc != nil {
		return m.connectFunc(ctx, name, baseURL, apiKey)
	}
	return true, nil
}

func (m *mockGeneration) InFlight() int64 { return 2 }

type mockSettings struct {
	api     *domain.APIConfig
	gen     *domain.GenerationConfig
	saveErr error
}

func (m *mockSettings) LoadAPIConfig() (domain.APIConfig, error) {
	if m.api == nil {
		return domain.APIConfig{}, domain.ErrConfigMissing
	}
	return *m.api, nil
}

func (m *mockSettings) SaveAPIConfig(cfg domain.APIConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.api = &cfg
	return nil
}

func (m *mockSettings) LoadGenerationConfig() (domain.GenerationConfig, error) {
	if m.gen == nil {
		return settings.DefaultGenerationConfig(), nil
	}
	return *m.gen, nil
}

func (m *mockSettings) SaveGenerationConfig(cfg domain.GenerationConfig) error {
	m.gen = &cfg
	return nil
}

// --- Helpers ---

type testEnv struct {
	router   http.Handler
	gen      *mockGeneration
	settings *mockSettings
	bindings *binding.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := binding.NewFileStore(dir)
	require.NoError(t, err)
	tags, err := binding.NewFileTagStore(dir)
	require.NoError(t, err)

	env := &testEnv{
		gen:      &mockGeneration{},
		settings: &mockSettings{},
		bindings: binding.NewManager(store, tags, filepath.Join(dir, "reference_images")),
	}
	h, err := NewHandler(env.gen, env.settings, env.bindings)
	require.NoError(t, err)
	env.router = NewRouter(h)
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- Tests ---

func TestNewHandler_RequiresDependencies(t *testing.T) {
	_, err := NewHandler(nil, &mockSettings{}, nil)
	assert.Error(t, err)
}

func TestParsePrompt(t *testing.T) {
	env := newTestEnv(t)

	t.Run("解析結果を返す", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/parse", `{"prompt":"在森林里，@小明 正在跑步"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		parsed := decode[domain.ParsedPrompt](t, rec)
		require.Len(t, parsed.Characters, 1)
		assert.Equal(t, "小明", parsed.Characters[0].Name)
		assert.NotContains(t, parsed.Cleaned, "@")
	})

	t.Run("空のプロンプトは 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/parse", `{"prompt":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "EmptyInput")
	})

	t.Run("壊れた JSON は 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/parse", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenerate(t *testing.T) {
	t.Run("省略したフィールドには既定値が入る", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/generate",
			`{"prompt":"cat","characterBindings":[{"characterName":"A","referenceImagePath":"/a.png"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		req := env.gen.lastRequest
		assert.Equal(t, "seedream", req.Provider)
		assert.Equal(t, 1024, req.Width)
		assert.Equal(t, 1024, req.Height)
		assert.Equal(t, 1, req.Count)
		assert.Equal(t, "standard", req.Quality)
		require.Len(t, req.CharacterBindings, 1)
		assert.Equal(t, "人物", req.CharacterBindings[0].ImageType)

		res := decode[domain.GenerationResult](t, rec)
		assert.True(t, res.Success)
		assert.Equal(t, "task_1", res.TaskID)
	})

	t.Run("生成の失敗も 200 で結果を返すのだ", func(t *testing.T) {
		env := newTestEnv(t)
		msg := "UnsupportedProvider: \"dalle\""
		env.gen.generateFunc = func(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
			return domain.GenerationResult{Success: false, Images: []string{}, Error: &msg, TaskID: "task_x"}
		}
		rec := env.do(t, http.MethodPost, "/api/generate", `{"model":"dalle","prompt":"x"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[domain.GenerationResult](t, rec)
		assert.False(t, res.Success)
		assert.Contains(t, *res.Error, "UnsupportedProvider")
		assert.Equal(t, "dalle", env.gen.lastRequest.Provider)
	})

	t.Run("クライアントが切断しても生成呼び出しはキャンセルされない", func(t *testing.T) {
		env := newTestEnv(t)
		type ctxKey struct{}
		var (
			callErr error
			value   any
		)
		env.gen.generateFunc = func(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
			callErr = ctx.Err()
			value = ctx.Value(ctxKey{})
			return domain.GenerationResult{Success: true, Images: []string{"u"}, TaskID: "task_1"}
		}

		ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"cat"}`)).WithContext(ctx)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, callErr)
		assert.Equal(t, "req-1", value)
	})
}

func TestPollTask(t *testing.T) {
	env := newTestEnv(t)

	t.Run("実行中なら進捗を返す", func(t *testing.T) {
		env.gen.pollFunc = func(id string) (domain.GenerationTask, error) {
			return domain.GenerationTask{ID: id, Status: domain.TaskProcessing, Progress: 30}, nil
		}
		rec := env.do(t, http.MethodGet, "/api/tasks/task_abc", "")
		require.Equal(t, http.StatusOK, rec.Code)
		task := decode[domain.GenerationTask](t, rec)
		assert.Equal(t, "task_abc", task.ID)
		assert.Equal(t, 30, task.Progress)
	})

	t.Run("存在しなければ 404", func(t *testing.T) {
		env.gen.pollFunc = nil
		rec := env.do(t, http.MethodGet, "/api/tasks/task_gone", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTestConnection(t *testing.T) {
	env := newTestEnv(t)
	var gotBase *string
	env.gen.connectFunc = func(ctx context.Context, name string, baseURL, apiKey *string) (bool, error) {
		gotBase = baseURL
		switch name {
		case "seedream":
			return true, nil
		case "banana_pro":
			return false, fmt.Errorf("%w: banana_pro", domain.ErrMissingCredential)
		}
		return false, domain.ErrUnsupportedProvider
	}

	rec := env.do(t, http.MethodPost, "/api/test-connection", `{"model":"seedream","baseUrl":"https://x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true\n", rec.Body.String())
	require.NotNil(t, gotBase)
	assert.Equal(t, "https://x", *gotBase)

	rec = env.do(t, http.MethodPost, "/api/test-connection", `{"model":"dalle"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/test-connection", `{"model":"banana_pro"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MissingCredential")
}

func TestAPIConfig(t *testing.T) {
	env := newTestEnv(t)

	t.Run("未保存なら 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/config/load", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("省略した項目は既定値で保存される", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/config/save", `{"seedream":{"apiKey":"sk-1"}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, env.settings.api)
		assert.Equal(t, "sk-1", env.settings.api.Seedream.APIKey)
		assert.Equal(t, settings.DefaultSeedreamBaseURL, env.settings.api.Seedream.BaseURL)
		assert.Equal(t, settings.DefaultBananaProBaseURL, env.settings.api.BananaPro.BaseURL)

		rec = env.do(t, http.MethodGet, "/api/config/load", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[apiConfigBody](t, rec)
		assert.Equal(t, "sk-1", *body.Seedream.APIKey)
	})

	t.Run("既定値", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/config/default", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[apiConfigBody](t, rec)
		assert.Equal(t, settings.DefaultBananaProBaseURL, *body.BananaPro.BaseURL)
		assert.Equal(t, "", *body.BananaPro.APIKey)
	})
}

func TestGenerationConfig(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/generation-config/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, settings.DefaultGenerationConfig(), decode[domain.GenerationConfig](t, rec))

	rec = env.do(t, http.MethodPost, "/api/generation-config/save", `{"model":"banana_pro","width":16,"height":9,"count":1,"quality":"hd"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/generation-config/load", "")
	cfg := decode[domain.GenerationConfig](t, rec)
	assert.Equal(t, "banana_pro", cfg.Model)
	assert.Equal(t, 16, cfg.Width)
}

func TestBindingsFlow(t *testing.T) {
	env := newTestEnv(t)
	img := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))

	rec := env.do(t, http.MethodPost, "/api/save-image",
		`{"characterName":"Alice","imageData":"data:image/png;base64,`+img+`","imageType":"人物"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[domain.Binding](t, rec)
	require.NotNil(t, saved.ReferenceImagePath)

	t.Run("一覧に含まれる", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/bindings", "")
		list := decode[[]domain.Binding](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, "Alice", list[0].CharacterName)
	})

	t.Run("for-prompt はカンマ区切りを解決する", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/bindings/for-prompt", `{"characters":"Alice, Bob"}`)
		infos := decode[[]domain.CharacterBindingInfo](t, rec)
		require.Len(t, infos, 2)
		assert.NotNil(t, infos[0].ReferenceImagePath)
		assert.Nil(t, infos[1].ReferenceImagePath)
	})

	t.Run("画像を配信する", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/image?path="+url.QueryEscape(*saved.ReferenceImagePath), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	})

	t.Run("ディレクトリ外は 403", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "secret.png")
		require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
		rec := env.do(t, http.MethodGet, "/api/image?path="+url.QueryEscape(outside), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/image?path="+url.QueryEscape(env.bindings.ImageDir()+"/../character_bindings.json"), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("タグの追加・取得・検索・削除", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/reference-images/tags", `{"characterName":"Alice","tag":"hero"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/reference-images/tags", "")
		assert.Equal(t, []string{"hero"}, decode[[]string](t, rec))

		rec = env.do(t, http.MethodGet, "/api/reference-images/search?q=ali&tag=hero", "")
		assert.Len(t, decode[[]domain.Binding](t, rec), 1)

		rec = env.do(t, http.MethodDelete, "/api/reference-images/tags", `{"characterName":"Alice","tag":"hero"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = env.do(t, http.MethodGet, "/api/reference-images/tags?name=Alice", "")
		assert.Equal(t, []string{}, decode[[]string](t, rec))
	})

	t.Run("種別で絞り込む", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/reference-images?type="+url.QueryEscape("背景"), "")
		assert.Equal(t, []domain.Binding{}, decode[[]domain.Binding](t, rec))
	})

	t.Run("解除と削除", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/unbind", `{"characterName":"Alice"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/bind", `{"characterName":"Alice","referenceImagePath":"`+*saved.ReferenceImagePath+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/reference-images/delete", `{"characterName":"Alice"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		_, err := os.Stat(*saved.ReferenceImagePath)
		assert.True(t, os.IsNotExist(err))

		rec = env.do(t, http.MethodPost, "/api/unbind", `{"characterName":"Alice"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthAndCORS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), decode[healthBody](t, rec).InFlight)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodOptions, "/api/generate", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
