package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/httpkit"
	gcsfactory "github.com/shouni/go-remote-io/remoteio/gcs"

	"github.com/shouni/prompt-image-kit/internal/config"
	"github.com/shouni/prompt-image-kit/internal/server"
	"github.com/shouni/prompt-image-kit/pkg/adapters"
	"github.com/shouni/prompt-image-kit/pkg/binding"
	"github.com/shouni/prompt-image-kit/pkg/generator"
	"github.com/shouni/prompt-image-kit/pkg/imgutil"
	"github.com/shouni/prompt-image-kit/pkg/settings"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := run(context.Background()); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 1. 設定のロードとバリデーション
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 2. 紐付けストア
	store, tags, closeStore, err := buildBindingStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize binding store: %w", err)
	}
	defer closeStore()
	manager := binding.NewManager(store, tags, cfg.ReferenceImageDir)

	// 3. 参照画像の準備 (gs:// は ENABLE_GCS のときだけ読めるのだ)
	var prepOpts []imgutil.Option
	if cfg.EnableGCS {
		factory, err := gcsfactory.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to create GCS client factory: %w", err)
		}
		defer func() {
			if err := factory.Close(); err != nil {
				slog.Error("Failed to close GCS factory", "error", err)
			}
		}()
		reader, err := factory.InputReader()
		if err != nil {
			return fmt.Errorf("failed to create input reader: %w", err)
		}
		prepOpts = append(prepOpts, imgutil.WithRemoteReader(reader))
	}

	// 4. プロバイダクライアントとオーケストレータ
	fetcher := adapters.NewImageFetcher(
		httpkit.New(cfg.HTTPTimeout),
		cache.New(cfg.ImageCacheTTL, 2*cfg.ImageCacheTTL),
		cfg.ImageCacheTTL,
	)
	client := adapters.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		adapters.NewSeedreamAdapter(),
		adapters.NewBananaProAdapter(fetcher),
	)
	settingsStore := settings.NewStore(cfg.DataDir)
	gen, err := generator.New(settingsStore, binding.NewResolver(store), imgutil.NewPreparer(prepOpts...), client)
	if err != nil {
		return fmt.Errorf("failed to build generator: %w", err)
	}

	// 5. ルーターの構築
	h, err := server.NewHandler(gen, settingsStore, manager)
	if err != nil {
		return fmt.Errorf("failed to build handlers: %w", err)
	}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(h),
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("🚀 Server starting...", "port", cfg.Port, "data_dir", cfg.DataDir, "binding_backend", cfg.BindingBackend)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-shutdown:
		slog.Info("Starting graceful shutdown...", "in_flight", gen.InFlight())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}
		slog.Info("Server stopped")
	}

	return nil
}

// buildBindingStores は BINDING_BACKEND に応じて紐付けストアとタグストアを生成します。
func buildBindingStores(ctx context.Context, cfg *config.Config) (binding.Store, binding.TagStore, func(), error) {
	if cfg.BindingBackend == config.BindingBackendRedis {
		rdb, err := binding.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				slog.Error("Failed to close redis client", "error", err)
			}
		}
		return binding.NewRedisStore(rdb), binding.NewRedisTagStore(rdb), closeFn, nil
	}

	store, err := binding.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	tags, err := binding.NewFileTagStore(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, tags, func() {}, nil
}
