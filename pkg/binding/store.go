package binding

import (
	"context"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// Store はキャラクター名をキーにした紐付けの永続化先です。
type Store interface {
	// Get は紐付けを返します。存在しない場合は nil, nil なのだ。
	Get(ctx context.Context, name string) (*domain.Binding, error)
	Put(ctx context.Context, b domain.Binding) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Binding, error)
}

// TagStore はキャラクター名ごとのタグ一覧の永続化先です。
type TagStore interface {
	Get(ctx context.Context, name string) ([]string, error)
	Add(ctx context.Context, name, tag string) error
	Remove(ctx context.Context, name, tag string) error
	Delete(ctx context.Context, name string) error
	// ListAllDistinct は全タグを重複なし・昇順で返します。
	ListAllDistinct(ctx context.Context) ([]string, error)
}
