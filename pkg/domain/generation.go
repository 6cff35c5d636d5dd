package domain

import (
	"fmt"
	"strings"
)

// Provider は対応している画像生成バックエンドの閉じた列挙型なのだ。
type Provider string

const (
	// ProviderSeedream はサイズ指定と連続生成を持つバックエンドです。
	ProviderSeedream Provider = "seedream"
	// ProviderBananaPro はアスペクト比とサイズ階層を持つバックエンドです。
	ProviderBananaPro Provider = "banana_pro"
)

// Providers はサポート対象の一覧です。
var Providers = []Provider{ProviderSeedream, ProviderBananaPro}

// ParseProvider は文字列を Provider に変換します。未知の名前は ErrUnsupportedProvider なのだ。
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.TrimSpace(name)); p {
	case ProviderSeedream, ProviderBananaPro:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

func (p Provider) String() string { return string(p) }

// CharacterBindingInfo は解決済みのキャラクター紐付け情報です。
type CharacterBindingInfo struct {
	CharacterName      string  `json:"characterName"`
	ReferenceImagePath *string `json:"referenceImagePath"`
	ImageType          string  `json:"imageType"`
}

// GenerationRequest はプロバイダに依存しない生成要求です。
// Provider は受け付け時点では未検証の文字列のまま保持します。
type GenerationRequest struct {
	Provider          string                 `json:"model"`
	Prompt            string                 `json:"prompt"`
	CharacterBindings []CharacterBindingInfo `json:"characterBindings"`
	Width             int                    `json:"width"`
	Height            int                    `json:"height"`
	Count             int                    `json:"count"`
	Quality           string                 `json:"quality"`
	Size              *string                `json:"size,omitempty"`
	SequentialMode    *string                `json:"sequentialImageGeneration,omitempty"`
	ResponseFormat    *string                `json:"responseFormat,omitempty"`
	Watermark         *bool                  `json:"watermark,omitempty"`
	InlineImages      []string               `json:"images,omitempty"`
}

// TaskStatus は生成タスクの状態です。
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal は終端状態かどうかを返すのだ。
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// GenerationTask は実行中の生成呼び出し1件の進捗記録です。
type GenerationTask struct {
	ID       string     `json:"id"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
	Message  *string    `json:"message,omitempty"`
}

// GenerationResult は正規化された生成結果です。
type GenerationResult struct {
	Success bool     `json:"success"`
	Images  []string `json:"images"`
	Error   *string  `json:"error"`
	TaskID  string   `json:"taskId"`
}
