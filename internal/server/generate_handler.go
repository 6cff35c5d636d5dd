package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/prompt"
)

type parseBody struct {
	Prompt string `json:"prompt"`
}

// ParsePrompt はプロンプトを解析して ParsedPrompt を返します。
func (h *Handler) ParsePrompt(w http.ResponseWriter, r *http.Request) {
	var body parseBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	parsed, err := prompt.Compile(body.Prompt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// newGenerationRequest は省略されたフィールドの既定値を埋めた要求を返します。
func newGenerationRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Provider: string(domain.ProviderSeedream),
		Width:    1024,
		Height:   1024,
		Count:    1,
		Quality:  "standard",
	}
}

// Generate は生成を同期的に実行します。生成の失敗も 200 で GenerationResult として返すのだ。
// クライアントが切断してもプロバイダ呼び出しは完了かタイムアウトまで続けます。
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	req := newGenerationRequest()
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	for i := range req.CharacterBindings {
		if strings.TrimSpace(req.CharacterBindings[i].ImageType) == "" {
			req.CharacterBindings[i].ImageType = domain.DefaultImageType
		}
	}
	writeJSON(w, http.StatusOK, h.gen.Generate(context.WithoutCancel(r.Context()), req))
}

// PollTask は実行中タスクの進捗を返します。
func (h *Handler) PollTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.gen.PollTask(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type testConnectionBody struct {
	Model   string  `json:"model"`
	BaseURL *string `json:"baseUrl"`
	APIKey  *string `json:"apiKey"`
}

// TestConnection はプロバイダへの疎通を確認し、bool を返します。
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var body testConnectionBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.gen.TestConnectivity(r.Context(), body.Model, body.BaseURL, body.APIKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

type healthBody struct {
	Status   string `json:"status"`
	InFlight int64  `json:"inFlight"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", InFlight: h.gen.InFlight()})
}
