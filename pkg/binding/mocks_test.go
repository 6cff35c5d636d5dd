package binding

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// --- Mocks ---

type mockStore struct {
	getFunc func(ctx context.Context, name string) (*domain.Binding, error)
}

func (m *mockStore) Get(ctx context.Context, name string) (*domain.Binding, error) {
	return m.getFunc(ctx, name)
}
func (m *mockStore) Put(ctx context.Context, b domain.Binding) error  { return nil }
func (m *mockStore) Delete(ctx context.Context, name string) error    { return nil }
func (m *mockStore) List(ctx context.Context) ([]domain.Binding, error) { return nil, nil }

// fakeHash はメモリ上で Redis のハッシュを模倣するのだ。
type fakeHash struct {
	data map[string]map[string]string
	err  error
}

func newFakeHash() *fakeHash {
	return &fakeHash{data: map[string]map[string]string{}}
}

func (f *fakeHash) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeHash) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	if f.data[key] == nil {
		f.data[key] = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		f.data[key][fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, field := range fields {
		delete(f.data[key], field)
	}
	return redis.NewIntResult(int64(len(fields)), nil)
}

func (f *fakeHash) HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd {
	if f.err != nil {
		return redis.NewStringStringMapResult(nil, f.err)
	}
	out := map[string]string{}
	for k, v := range f.data[key] {
		out[k] = v
	}
	return redis.NewStringStringMapResult(out, nil)
}
