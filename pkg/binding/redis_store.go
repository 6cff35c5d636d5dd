package binding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const (
	redisBindingsKey = "prompt-image-kit:bindings"
	redisTagsKey     = "prompt-image-kit:tags"
)

// HashClient は Redis のハッシュ操作の最小集合です。*redis.Client がこれを満たします。
type HashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
}

// NewRedisClient は接続を確認したうえでクライアントを返します。
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis への接続に失敗しました (%s): %w", addr, err)
	}
	return client, nil
}

// RedisStore は1つのハッシュにキャラクター名→JSON で保存する Store 実装です。
type RedisStore struct {
	client HashClient
	key    string
}

func NewRedisStore(client HashClient) *RedisStore {
	return &RedisStore{client: client, key: redisBindingsKey}
}

func (s *RedisStore) Get(ctx context.Context, name string) (*domain.Binding, error) {
	raw, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("紐付けの取得に失敗しました (%s): %w", name, err)
	}
	var b domain.Binding
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("紐付けのパースに失敗しました (%s): %w", name, err)
	}
	return &b, nil
}

func (s *RedisStore) Put(ctx context.Context, b domain.Binding) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, b.CharacterName, string(raw)).Err()
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	return s.client.HDel(ctx, s.key, name).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]domain.Binding, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("紐付け一覧の取得に失敗しました: %w", err)
	}
	out := make([]domain.Binding, 0, len(all))
	for name, raw := range all {
		var b domain.Binding
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("紐付けのパースに失敗しました (%s): %w", name, err)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CharacterName < out[j].CharacterName })
	return out, nil
}

// RedisTagStore はタグ配列を JSON でハッシュに保存します。同時更新は後勝ちです。
type RedisTagStore struct {
	client HashClient
	key    string
}

func NewRedisTagStore(client HashClient) *RedisTagStore {
	return &RedisTagStore{client: client, key: redisTagsKey}
}

func (s *RedisTagStore) Get(ctx context.Context, name string) ([]string, error) {
	raw, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました (%s): %w", name, err)
	}
	tags := []string{}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("タグのパースに失敗しました (%s): %w", name, err)
	}
	return tags, nil
}

func (s *RedisTagStore) Add(ctx context.Context, name, tag string) error {
	tags, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if slices.Contains(tags, tag) {
		return nil
	}
	return s.put(ctx, name, append(tags, tag))
}

func (s *RedisTagStore) Remove(ctx context.Context, name, tag string) error {
	tags, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	i := slices.Index(tags, tag)
	if i < 0 {
		return nil
	}
	return s.put(ctx, name, slices.Delete(tags, i, i+1))
}

func (s *RedisTagStore) Delete(ctx context.Context, name string) error {
	return s.client.HDel(ctx, s.key, name).Err()
}

func (s *RedisTagStore) ListAllDistinct(ctx context.Context) ([]string, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	var merged []string
	for name, raw := range all {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("タグのパースに失敗しました (%s): %w", name, err)
		}
		merged = append(merged, tags...)
	}
	return distinctSorted(merged), nil
}

func (s *RedisTagStore) put(ctx context.Context, name string, tags []string) error {
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, name, string(raw)).Err()
}
