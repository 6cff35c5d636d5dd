package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shouni/prompt-image-kit/pkg/binding"
	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const maxBodyBytes = 32 << 20 // 参照画像の base64 を含むため大きめ

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("レスポンスの書き込みに失敗しました", "error", err)
	}
}

// writeError はエラーの種類に応じたステータスで {"error": "..."} を返します。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "リクエストの処理に失敗しました", "path", r.URL.Path, "error", err)
	} else {
		slog.WarnContext(r.Context(), "不正なリクエストです", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrUnsupportedProvider),
		errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, binding.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrConfigMissing),
		errors.Is(err, binding.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// decodeJSON はリクエストボディを v に読み込みます。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
