package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPort = "8080"
	// DefaultHTTPTimeout は画像生成の応答待ちを考慮したタイムアウト
	DefaultHTTPTimeout     = 120 * time.Second
	DefaultImageCacheTTL   = 30 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDataDir         = "./data"

	BindingBackendFile  = "file"
	BindingBackendRedis = "redis"
)

// Config はプロセス全体の設定を保持します。
type Config struct {
	Port              string `yaml:"port"`
	DataDir           string `yaml:"data_dir"`
	ReferenceImageDir string `yaml:"reference_image_dir"`
	BindingBackend    string `yaml:"binding_backend"`

	Redis RedisConfig `yaml:"redis"`

	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	ImageCacheTTL   time.Duration `yaml:"image_cache_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// EnableGCS が true の場合、gs:// の参照画像を読み込めるようにするのだ。
	EnableGCS bool `yaml:"enable_gcs"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load は CONFIG_FILE（任意の YAML）を読み込んだ後、環境変数で上書きして Config を生成します。
func Load() (*Config, error) {
	cfg := defaults()

	if path := envutil.GetEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = envutil.GetEnv("PORT", cfg.Port)
	cfg.DataDir = envutil.GetEnv("DATA_DIR", cfg.DataDir)
	cfg.ReferenceImageDir = envutil.GetEnv("REFERENCE_IMAGE_DIR", cfg.ReferenceImageDir)
	cfg.BindingBackend = strings.ToLower(envutil.GetEnv("BINDING_BACKEND", cfg.BindingBackend))
	cfg.Redis.Addr = envutil.GetEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.GetEnv("REDIS_PASSWORD", cfg.Redis.Password)

	var err error
	if cfg.Redis.DB, err = intEnv("REDIS_DB", cfg.Redis.DB); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.ImageCacheTTL, err = durationEnv("IMAGE_CACHE_TTL", cfg.ImageCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.EnableGCS, err = boolEnv("ENABLE_GCS", cfg.EnableGCS); err != nil {
		return nil, err
	}

	if cfg.ReferenceImageDir == "" {
		cfg.ReferenceImageDir = filepath.Join(cfg.DataDir, "reference_images")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:            DefaultPort,
		DataDir:         DefaultDataDir,
		BindingBackend:  BindingBackendFile,
		Redis:           RedisConfig{Addr: "localhost:6379"},
		HTTPTimeout:     DefaultHTTPTimeout,
		ImageCacheTTL:   DefaultImageCacheTTL,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Validate はアプリケーション実行に不可欠な設定を検証します。
func (c *Config) Validate() error {
	switch c.BindingBackend {
	case BindingBackendFile:
	case BindingBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("configuration error: REDIS_ADDR is required when BINDING_BACKEND=redis")
		}
	default:
		return fmt.Errorf("configuration error: unknown BINDING_BACKEND %q", c.BindingBackend)
	}
	if c.DataDir == "" {
		return fmt.Errorf("configuration error: DATA_DIR must not be empty")
	}
	if c.HTTPTimeout <= 0 || c.ImageCacheTTL <= 0 {
		return fmt.Errorf("configuration error: HTTP_TIMEOUT and IMAGE_CACHE_TTL must be positive")
	}
	return nil
}

// --- 環境変数のパース ---

func intEnv(key string, def int) (int, error) {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s の値が不正です (%q): %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s の値が不正です (%q): %w", key, raw, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s の値が不正です (%q): %w", key, raw, err)
	}
	return v, nil
}
