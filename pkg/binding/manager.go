package binding

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

var (
	// ErrNotFound は指定したキャラクターの紐付けが存在しない場合のエラーです。
	ErrNotFound = errors.New("紐付けが見つかりません")
	// ErrInvalidName はキャラクター名が空、またはパス区切りを含む場合のエラーです。
	ErrInvalidName = errors.New("キャラクター名が不正です")
)

// Manager は参照画像の保存と紐付けの CRUD をまとめます。
type Manager struct {
	store    Store
	tags     TagStore
	imageDir string
	now      func() time.Time
}

func NewManager(store Store, tags TagStore, imageDir string) *Manager {
	return &Manager{store: store, tags: tags, imageDir: imageDir, now: time.Now}
}

// ImageDir は参照画像の保存先ディレクトリです。
func (m *Manager) ImageDir() string { return m.imageDir }

// SaveReferenceImage は base64（data URI 可）の画像を <name>_<millis>.png として保存し、紐付けます。
func (m *Manager) SaveReferenceImage(ctx context.Context, name, data, imageType string) (domain.Binding, error) {
	if err := validateName(name); err != nil {
		return domain.Binding{}, err
	}

	payload := data
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		payload = data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.Binding{}, fmt.Errorf("画像データのデコードに失敗しました: %w", err)
	}

	if err := os.MkdirAll(m.imageDir, 0o755); err != nil {
		return domain.Binding{}, fmt.Errorf("画像ディレクトリの作成に失敗しました: %w", err)
	}
	path := filepath.Join(m.imageDir, fmt.Sprintf("%s_%d.png", name, m.now().UnixMilli()))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return domain.Binding{}, fmt.Errorf("画像の保存に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "参照画像を保存しました", "character", name, "path", path, "size", len(raw))
	return m.upsert(ctx, name, path, imageType)
}

// Bind は既存のファイルをキャラクターに紐付けます。ファイルが存在しない場合はエラーです。
func (m *Manager) Bind(ctx context.Context, name, path, imageType string) (domain.Binding, error) {
	if err := validateName(name); err != nil {
		return domain.Binding{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return domain.Binding{}, fmt.Errorf("参照画像ファイルが存在しません (%s): %w", path, err)
	}
	return m.upsert(ctx, name, path, imageType)
}

// Unbind は紐付けを解除します。レコードは残し、パスだけを消すのだ。
func (m *Manager) Unbind(ctx context.Context, name string) error {
	b, err := m.mustGet(ctx, name)
	if err != nil {
		return err
	}
	b.Bound = false
	b.ReferenceImagePath = nil
	return m.store.Put(ctx, *b)
}

// Delete は紐付けとタグ、参照画像ファイルを削除します。
func (m *Manager) Delete(ctx context.Context, name string) error {
	b, err := m.mustGet(ctx, name)
	if err != nil {
		return err
	}
	if b.ReferenceImagePath != nil {
		if err := os.Remove(*b.ReferenceImagePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.WarnContext(ctx, "参照画像ファイルの削除に失敗しました", "path", *b.ReferenceImagePath, "error", err)
		}
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	return m.tags.Delete(ctx, name)
}

// Get は紐付けを返します。存在しない場合は ErrNotFound です。
func (m *Manager) Get(ctx context.Context, name string) (domain.Binding, error) {
	b, err := m.mustGet(ctx, name)
	if err != nil {
		return domain.Binding{}, err
	}
	return *b, nil
}

func (m *Manager) List(ctx context.Context) ([]domain.Binding, error) {
	return m.store.List(ctx)
}

// ListByType は画像種別で絞り込みます。空文字なら全件です。
func (m *Manager) ListByType(ctx context.Context, imageType string) ([]domain.Binding, error) {
	all, err := m.store.List(ctx)
	if err != nil || imageType == "" {
		return all, err
	}
	out := make([]domain.Binding, 0, len(all))
	for _, b := range all {
		if b.ImageType == imageType {
			out = append(out, b)
		}
	}
	return out, nil
}

// Search は名前の部分一致（大文字小文字を区別しない）とタグの完全一致で絞り込みます。
func (m *Manager) Search(ctx context.Context, query, tag string) ([]domain.Binding, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := make([]domain.Binding, 0, len(all))
	for _, b := range all {
		if q != "" && !strings.Contains(strings.ToLower(b.CharacterName), q) {
			continue
		}
		if tag != "" {
			tags, err := m.tags.Get(ctx, b.CharacterName)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(tags, tag) {
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// ForPrompt はプロンプト中のキャラクター名を紐付け情報に解決します。
func (m *Manager) ForPrompt(ctx context.Context, names []string) ([]domain.CharacterBindingInfo, error) {
	return NewResolver(m.store).ResolveNames(ctx, names)
}

func (m *Manager) Tags(ctx context.Context, name string) ([]string, error) {
	return m.tags.Get(ctx, name)
}

func (m *Manager) AddTag(ctx context.Context, name, tag string) error {
	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("タグが空です")
	}
	return m.tags.Add(ctx, name, tag)
}

func (m *Manager) RemoveTag(ctx context.Context, name, tag string) error {
	return m.tags.Remove(ctx, name, tag)
}

func (m *Manager) AllTags(ctx context.Context) ([]string, error) {
	return m.tags.ListAllDistinct(ctx)
}

func (m *Manager) upsert(ctx context.Context, name, path, imageType string) (domain.Binding, error) {
	if imageType == "" {
		imageType = domain.DefaultImageType
	}
	b := domain.Binding{
		CharacterName:      name,
		ReferenceImagePath: &path,
		ImageType:          imageType,
		CreatedAt:          m.now().UTC().Format(time.RFC3339),
		Bound:              true,
	}
	if err := m.store.Put(ctx, b); err != nil {
		return domain.Binding{}, fmt.Errorf("紐付けの保存に失敗しました: %w", err)
	}
	return b, nil
}

func (m *Manager) mustGet(ctx context.Context, name string) (*domain.Binding, error) {
	b, err := m.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
