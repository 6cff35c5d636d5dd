package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter は、ミドルウェアとルーティングを統合した http.Handler を構築します。
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	setupCommonMiddleware(r)
	setupRoutes(r, h)

	return r
}

func setupCommonMiddleware(r *chi.Mux) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(allowAllOrigins)
}

func setupRoutes(r chi.Router, h *Handler) {
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// --- プロンプト解析と生成 ---
		r.Post("/parse", h.ParsePrompt)
		r.Post("/generate", h.Generate)
		r.Get("/tasks/{id}", h.PollTask)
		r.Post("/test-connection", h.TestConnection)

		// --- 紐付け ---
		r.Get("/bindings", h.ListBindings)
		r.Post("/bindings/for-prompt", h.BindingsForPrompt)
		r.Post("/save-image", h.SaveImage)
		r.Post("/bind", h.Bind)
		r.Post("/unbind", h.Unbind)
		r.Get("/image", h.ServeImage)

		// --- 設定 ---
		r.Route("/config", func(r chi.Router) {
			r.Post("/save", h.SaveAPIConfig)
			r.Get("/load", h.LoadAPIConfig)
			r.Get("/default", h.DefaultAPIConfig)
		})
		r.Route("/generation-config", func(r chi.Router) {
			r.Post("/save", h.SaveGenerationConfig)
			r.Get("/load", h.LoadGenerationConfig)
			r.Get("/default", h.DefaultGenerationConfig)
		})

		// --- 参照画像の管理 ---
		r.Route("/reference-images", func(r chi.Router) {
			r.Get("/", h.ListReferenceImages)
			r.Get("/search", h.SearchReferenceImages)
			r.Get("/tags", h.GetTags)
			r.Post("/tags", h.AddTag)
			r.Delete("/tags", h.RemoveTag)
			r.Post("/delete", h.DeleteReferenceImage)
		})
	})
}

// allowAllOrigins はどのオリジンからの呼び出しも許可する CORS ミドルウェアです。
func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
