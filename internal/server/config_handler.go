package server

import (
	"log/slog"
	"net/http"

	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/settings"
)

// providerConfigBody は画面とやり取りする camelCase の形式です。
type providerConfigBody struct {
	BaseURL *string `json:"baseUrl,omitempty"`
	APIKey  *string `json:"apiKey,omitempty"`
}

type apiConfigBody struct {
	Seedream  *providerConfigBody `json:"seedream,omitempty"`
	BananaPro *providerConfigBody `json:"bananaPro,omitempty"`
}

func toBody(cfg domain.APIConfig) apiConfigBody {
	conv := func(pc domain.ProviderConfig) *providerConfigBody {
		return &providerConfigBody{BaseURL: &pc.BaseURL, APIKey: &pc.APIKey}
	}
	return apiConfigBody{Seedream: conv(cfg.Seedream), BananaPro: conv(cfg.BananaPro)}
}

// toConfig は省略された項目を既定値で埋めて domain.APIConfig に変換します。
func (b apiConfigBody) toConfig() domain.APIConfig {
	cfg := settings.DefaultAPIConfig()
	merge := func(dst *domain.ProviderConfig, src *providerConfigBody) {
		if src == nil {
			return
		}
		if src.BaseURL != nil {
			dst.BaseURL = *src.BaseURL
		}
		if src.APIKey != nil {
			dst.APIKey = *src.APIKey
		}
	}
	merge(&cfg.Seedream, b.Seedream)
	merge(&cfg.BananaPro, b.BananaPro)
	return cfg
}

func (h *Handler) SaveAPIConfig(w http.ResponseWriter, r *http.Request) {
	var body apiConfigBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.settings.SaveAPIConfig(body.toConfig()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

// LoadAPIConfig は保存済みの設定を返します。未保存なら 404 なのだ。
func (h *Handler) LoadAPIConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.LoadAPIConfig()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBody(cfg))
}

func (h *Handler) DefaultAPIConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toBody(settings.DefaultAPIConfig()))
}

func (h *Handler) SaveGenerationConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.GenerationConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.settings.SaveGenerationConfig(cfg); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

// LoadGenerationConfig は読み込みに失敗しても既定値を返します。
func (h *Handler) LoadGenerationConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.LoadGenerationConfig()
	if err != nil {
		slog.WarnContext(r.Context(), "生成設定の読み込みに失敗したため既定値を返します", "error", err)
		cfg = settings.DefaultGenerationConfig()
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) DefaultGenerationConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settings.DefaultGenerationConfig())
}
