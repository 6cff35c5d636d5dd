package binding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const (
	BindingsFile = "character_bindings.json"
	TagsFile     = "character_tags.json"
)

// jsonFile は名前をキーにした JSON オブジェクト1つをメモリとファイルで同期して保持します。
type jsonFile[T any] struct {
	path string

	mu   sync.Mutex
	data map[string]T
}

func openJSONFile[T any](path string) (*jsonFile[T], error) {
	f := &jsonFile[T]{path: path, data: map[string]T{}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s の読み込みに失敗しました: %w", path, err)
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("%s のパースに失敗しました: %w", path, err)
	}
	return f, nil
}

// update はロックを保持したまま複製に fn を適用し、書き出しに成功した場合だけ差し替えます。
// 保存に失敗したときはメモリ上の状態も元のままなのだ。
func (f *jsonFile[T]) update(fn func(m map[string]T) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := maps.Clone(f.data)
	if next == nil {
		next = map[string]T{}
	}
	if !fn(next) {
		return nil
	}
	if err := f.flush(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

func (f *jsonFile[T]) view(fn func(m map[string]T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.data)
}

func (f *jsonFile[T]) flush(data map[string]T) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("%s の保存に失敗しました: %w", f.path, err)
	}
	return nil
}

// FileStore は character_bindings.json に保存する Store 実装です。
type FileStore struct {
	file *jsonFile[domain.Binding]
}

// NewFileStore は dir 配下の紐付けファイルを開きます。
func NewFileStore(dir string) (*FileStore, error) {
	f, err := openJSONFile[domain.Binding](filepath.Join(dir, BindingsFile))
	if err != nil {
		return nil, err
	}
	return &FileStore{file: f}, nil
}

func (s *FileStore) Get(_ context.Context, name string) (*domain.Binding, error) {
	var (
		b  domain.Binding
		ok bool
	)
	s.file.view(func(m map[string]domain.Binding) { b, ok = m[name] })
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *FileStore) Put(_ context.Context, b domain.Binding) error {
	return s.file.update(func(m map[string]domain.Binding) bool {
		m[b.CharacterName] = b
		return true
	})
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	return s.file.update(func(m map[string]domain.Binding) bool {
		if _, ok := m[name]; !ok {
			return false
		}
		delete(m, name)
		return true
	})
}

// List は名前順に並べて返します。
func (s *FileStore) List(_ context.Context) ([]domain.Binding, error) {
	var out []domain.Binding
	s.file.view(func(m map[string]domain.Binding) {
		out = make([]domain.Binding, 0, len(m))
		for _, b := range m {
			out = append(out, b)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CharacterName < out[j].CharacterName })
	return out, nil
}

// FileTagStore は character_tags.json に保存する TagStore 実装です。
type FileTagStore struct {
	file *jsonFile[[]string]
}

// NewFileTagStore は dir 配下のタグファイルを開きます。
func NewFileTagStore(dir string) (*FileTagStore, error) {
	f, err := openJSONFile[[]string](filepath.Join(dir, TagsFile))
	if err != nil {
		return nil, err
	}
	return &FileTagStore{file: f}, nil
}

func (s *FileTagStore) Get(_ context.Context, name string) ([]string, error) {
	var tags []string
	s.file.view(func(m map[string][]string) { tags = slices.Clone(m[name]) })
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func (s *FileTagStore) Add(_ context.Context, name, tag string) error {
	return s.file.update(func(m map[string][]string) bool {
		if slices.Contains(m[name], tag) {
			return false
		}
		m[name] = append(slices.Clone(m[name]), tag)
		return true
	})
}

func (s *FileTagStore) Remove(_ context.Context, name, tag string) error {
	return s.file.update(func(m map[string][]string) bool {
		i := slices.Index(m[name], tag)
		if i < 0 {
			return false
		}
		m[name] = slices.Delete(slices.Clone(m[name]), i, i+1)
		return true
	})
}

func (s *FileTagStore) Delete(_ context.Context, name string) error {
	return s.file.update(func(m map[string][]string) bool {
		if _, ok := m[name]; !ok {
			return false
		}
		delete(m, name)
		return true
	})
}

func (s *FileTagStore) ListAllDistinct(_ context.Context) ([]string, error) {
	var all []string
	s.file.view(func(m map[string][]string) {
		for _, tags := range m {
			all = append(all, tags...)
		}
	})
	return distinctSorted(all), nil
}

func distinctSorted(tags []string) []string {
	out := slices.Clone(tags)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
