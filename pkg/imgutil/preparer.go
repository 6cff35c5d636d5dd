package imgutil

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	DefaultCompressThreshold = 1 << 20 // 1 MiB
	DefaultMaxSide           = 1024
	DefaultJPEGQuality       = 80
)

// Outcome は参照画像の準備がどの経路を通ったかを表します。
type Outcome int

const (
	// OutcomeEncoded は元のバイト列をそのままエンコードした場合です。
	OutcomeEncoded Outcome = iota
	// OutcomeCompressed は縮小・JPEG 再圧縮した場合です。
	OutcomeCompressed
	// OutcomeDegraded はデコードに失敗し、元のバイト列で代替した場合です。
	OutcomeDegraded
	// OutcomeSkipped は読み込めなかったため何も追加しない場合です。
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEncoded:
		return "encoded"
	case OutcomeCompressed:
		return "compressed"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Payload は送信可能な形に整えた参照画像です。
type Payload struct {
	Outcome Outcome
	Data    string // base64。Skipped の場合は空
	Err     error  // Degraded / Skipped の原因
}

// OK は送信に使えるデータを持っているかどうかなのだ。
func (p Payload) OK() bool { return p.Outcome != OutcomeSkipped }

// RemoteReader は gs:// などのリモートパスを開くためのインターフェースです。
// remoteio.InputReader がこれを満たします。
type RemoteReader interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Preparer は参照画像ファイルを読み込み、必要なら縮小してから base64 化します。
type Preparer struct {
	remote    RemoteReader
	threshold int
	maxSide   int
	quality   int
}

// Option は Preparer の設定を変更します。
type Option func(*Preparer)

// WithRemoteReader はリモートパス用のリーダーを設定します。
func WithRemoteReader(r RemoteReader) Option {
	return func(p *Preparer) { p.remote = r }
}

// WithThreshold は再圧縮を行うバイト数の閾値を設定します。
func WithThreshold(n int) Option {
	return func(p *Preparer) { p.threshold = n }
}

// WithMaxSide は縮小後の長辺の上限を設定します。
func WithMaxSide(n int) Option {
	return func(p *Preparer) { p.maxSide = n }
}

// WithQuality は JPEG 品質を設定します。
func WithQuality(q int) Option {
	return func(p *Preparer) { p.quality = q }
}

// NewPreparer は既定値（1 MiB / 1024px / 品質80）で Preparer を生成します。
func NewPreparer(opts ...Option) *Preparer {
	p := &Preparer{
		threshold: DefaultCompressThreshold,
		maxSide:   DefaultMaxSide,
		quality:   DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare はパスの画像を読み込んで Payload を返します。
// 読み込み失敗は Skipped、デコード失敗は Degraded となり、エラーとしては返さないのだ。
func (p *Preparer) Prepare(ctx context.Context, path string) Payload {
	data, err := p.read(ctx, path)
	if err != nil {
		slog.WarnContext(ctx, "参照画像を読み込めなかったためスキップします", "path", path, "error", err)
		return Payload{Outcome: OutcomeSkipped, Err: err}
	}

	if len(data) <= p.threshold {
		return Payload{Outcome: OutcomeEncoded, Data: base64.StdEncoding.EncodeToString(data)}
	}

	compressed, err := CompressToJPEG(data, p.quality, p.maxSide)
	if err != nil {
		slog.WarnContext(ctx, "画像のデコードに失敗したため元データをそのまま使います",
			"path", path, "size", len(data), "error", err)
		return Payload{Outcome: OutcomeDegraded, Data: base64.StdEncoding.EncodeToString(data), Err: err}
	}

	slog.DebugContext(ctx, "参照画像を再圧縮しました", "path", path, "before", len(data), "after", len(compressed))
	return Payload{Outcome: OutcomeCompressed, Data: base64.StdEncoding.EncodeToString(compressed)}
}

func (p *Preparer) read(ctx context.Context, path string) ([]byte, error) {
	if !isRemotePath(path) {
		return os.ReadFile(path)
	}
	if p.remote == nil {
		return nil, fmt.Errorf("リモートパスの読み込みは無効です: %s", path)
	}
	rc, err := p.remote.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isRemotePath(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://")
}
