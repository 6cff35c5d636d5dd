package domain

import "errors"

// エラー分類。メッセージは分類名そのもので、ラップ時は "%w: 詳細" の形にするのだ。
var (
	ErrEmptyInput          = errors.New("EmptyInput")
	ErrConfigMissing       = errors.New("ConfigMissing")
	ErrMissingCredential   = errors.New("MissingCredential")
	ErrUnsupportedProvider = errors.New("UnsupportedProvider")
	ErrRequestFailed       = errors.New("RequestFailed")
	ErrResponseParseFailed = errors.New("ResponseParseFailed")
	ErrNoImagesGenerated   = errors.New("NoImagesGenerated")
	ErrDecryptFailed       = errors.New("DecryptFailed")
	ErrMalformedCiphertext = errors.New("MalformedCiphertext")
	ErrTaskNotFound        = errors.New("TaskNotFound")
)
