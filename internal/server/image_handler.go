package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var errOutsideImageDir = errors.New("参照画像ディレクトリ外のパスです")

// ServeImage は参照画像ディレクトリ配下のファイルだけを返します。
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolveImagePath(r.URL.Query().Get("path"))
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, errOutsideImageDir) {
			status = http.StatusForbidden
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	info, err := os.Stat(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		writeError(w, r, err)
		return
	}
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (h *Handler) resolveImagePath(raw string) (string, error) {
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "file://"), "file:")
	if raw == "" {
		return "", fmt.Errorf("path が空です")
	}

	base, err := filepath.Abs(h.bindings.ImageDir())
	if err != nil {
		return "", err
	}
	target, err := filepath.Abs(raw)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideImageDir, raw)
	}
	return target, nil
}
