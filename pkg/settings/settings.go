package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shouni/prompt-image-kit/pkg/domain"
	"github.com/shouni/prompt-image-kit/pkg/secret"
)

const (
	APIConfigFile        = "api_config.json"
	GenerationConfigFile = "generation_config.json"
	KeyFile              = "key.bin"

	DefaultSeedreamBaseURL  = "https://eggfans.com"
	DefaultBananaProBaseURL = "https://api.zhongzhuan.chat"
)

// DefaultAPIConfig はキー未設定の既定の接続先を返します。
func DefaultAPIConfig() domain.APIConfig {
	return domain.APIConfig{
		Seedream:  domain.ProviderConfig{BaseURL: DefaultSeedreamBaseURL},
		BananaPro: domain.ProviderConfig{BaseURL: DefaultBananaProBaseURL},
	}
}

// DefaultGenerationConfig は既定の生成設定を返します。
func DefaultGenerationConfig() domain.GenerationConfig {
	size, seq, format, watermark := "1024x1024", "disabled", "url", false
	return domain.GenerationConfig{
		Model:                     string(domain.ProviderSeedream),
		Width:                     1,
		Height:                    1,
		Count:                     1,
		Quality:                   "standard",
		Size:                      &size,
		SequentialImageGeneration: &seq,
		ResponseFormat:            &format,
		Watermark:                 &watermark,
	}
}

// Store は暗号化された API 設定と平文の生成設定をディレクトリに保存します。
// API 設定はメモリにキャッシュされ、コールドロードは singleflight で1回にまとめるのだ。
type Store struct {
	dir  string
	keys *secret.KeyStore

	mu      sync.Mutex
	cached  *domain.APIConfig
	version uint64
	loads   singleflight.Group
}

// NewStore は dir 配下のファイルを扱う Store を生成します。
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		keys: secret.NewKeyStore(filepath.Join(dir, KeyFile)),
	}
}

// LoadAPIConfig は API 設定を返します。ファイルが無い場合は ErrConfigMissing です。
func (s *Store) LoadAPIConfig() (domain.APIConfig, error) {
	s.mu.Lock()
	if s.cached != nil {
		cfg := *s.cached
		s.mu.Unlock()
		return cfg, nil
	}
	s.mu.Unlock()

	v, err, _ := s.loads.Do(APIConfigFile, func() (any, error) {
		s.mu.Lock()
		version := s.version
		s.mu.Unlock()

		cfg, err := s.readAPIConfig()
		if err != nil {
			return nil, err
		}
		return s.storeLoaded(version, cfg), nil
	})
	if err != nil {
		return domain.APIConfig{}, err
	}
	cfg, ok := v.(domain.APIConfig)
	if !ok {
		return domain.APIConfig{}, fmt.Errorf("unexpected return type from singleflight: %T", v)
	}
	return cfg, nil
}

// SaveAPIConfig は API 設定を暗号化して保存し、キャッシュを置き換えます。
func (s *Store) SaveAPIConfig(cfg domain.APIConfig) error {
	c, err := s.cipher()
	if err != nil {
		return err
	}
	plain, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("API設定のシリアライズに失敗しました: %w", err)
	}
	sealed, err := c.Encrypt(plain)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(APIConfigFile, sealed, 0o600); err != nil {
		return err
	}
	s.cached = &cfg
	s.version++
	return nil
}

// storeLoaded は読み込み開始時点から保存が無かった場合だけキャッシュに載せます。
// 途中で保存された場合はそちらを優先して返すのだ。
func (s *Store) storeLoaded(version uint64, cfg domain.APIConfig) domain.APIConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version && s.cached != nil {
		return *s.cached
	}
	s.cached = &cfg
	return cfg
}

// LoadGenerationConfig は生成設定を返します。ファイルが無ければ既定値なのだ。
func (s *Store) LoadGenerationConfig() (domain.GenerationConfig, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, GenerationConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultGenerationConfig(), nil
	}
	if err != nil {
		return domain.GenerationConfig{}, fmt.Errorf("生成設定の読み込みに失敗しました: %w", err)
	}
	var cfg domain.GenerationConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.GenerationConfig{}, fmt.Errorf("生成設定のパースに失敗しました: %w", err)
	}
	return cfg, nil
}

// SaveGenerationConfig は生成設定を平文 JSON で保存します。
func (s *Store) SaveGenerationConfig(cfg domain.GenerationConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("生成設定のシリアライズに失敗しました: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(GenerationConfigFile, data, 0o644)
}

func (s *Store) readAPIConfig() (domain.APIConfig, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, APIConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.APIConfig{}, fmt.Errorf("%w: APIの設定がありません", domain.ErrConfigMissing)
	}
	if err != nil {
		return domain.APIConfig{}, fmt.Errorf("API設定の読み込みに失敗しました: %w", err)
	}

	c, err := s.cipher()
	if err != nil {
		return domain.APIConfig{}, err
	}
	plain, err := c.Decrypt(sealed)
	if err != nil {
		return domain.APIConfig{}, err
	}

	var cfg domain.APIConfig
	if err := json.Unmarshal(plain, &cfg); err != nil {
		return domain.APIConfig{}, fmt.Errorf("API設定のパースに失敗しました: %w", err)
	}
	return cfg, nil
}

func (s *Store) cipher() (*secret.Cipher, error) {
	key, err := s.keys.Key()
	if err != nil {
		return nil, err
	}
	return secret.NewCipher(key)
}

func (s *Store) write(name string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗しました: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, perm); err != nil {
		return fmt.Errorf("%s の保存に失敗しました: %w", name, err)
	}
	return nil
}
