package binding

import (
	"context"
	"fmt"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// Resolver はキャラクター参照を保存済みの紐付けと突き合わせます。
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve は各キャラクターの紐付け情報を返します。
// 紐付けが無い、または解除されている場合は ReferenceImagePath が nil になるのだ。
// ストアのエラーは部分結果を返さずにそのまま伝播します。
func (r *Resolver) Resolve(ctx context.Context, characters []domain.CharacterReference) ([]domain.CharacterBindingInfo, error) {
	infos := make([]domain.CharacterBindingInfo, 0, len(characters))
	for _, c := range characters {
		info, err := r.resolveOne(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ResolveNames は名前のリストから解決する簡易版です。
func (r *Resolver) ResolveNames(ctx context.Context, names []string) ([]domain.CharacterBindingInfo, error) {
	refs := make([]domain.CharacterReference, len(names))
	for i, n := range names {
		refs[i] = domain.CharacterReference{Name: n}
	}
	return r.Resolve(ctx, refs)
}

func (r *Resolver) resolveOne(ctx context.Context, name string) (domain.CharacterBindingInfo, error) {
	info := domain.CharacterBindingInfo{CharacterName: name, ImageType: domain.DefaultImageType}

	b, err := r.store.Get(ctx, name)
	if err != nil {
		return domain.CharacterBindingInfo{}, fmt.Errorf("キャラクター %q の紐付け検索に失敗しました: %w", name, err)
	}
	if b == nil {
		return info, nil
	}
	if b.ImageType != "" {
		info.ImageType = b.ImageType
	}
	if b.Bound && b.ReferenceImagePath != nil {
		path := *b.ReferenceImagePath
		info.ReferenceImagePath = &path
	}
	return info, nil
}
