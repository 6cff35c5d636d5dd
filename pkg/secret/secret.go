package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

const (
	// KeySize は AES-256 の鍵長です。
	KeySize = 32
	// NonceSize は GCM の標準ノンス長です。
	NonceSize = 12
)

// KeyStore は 256bit 鍵をファイルに1度だけ生成して保持します。
type KeyStore struct {
	path string

	mu  sync.Mutex
	key []byte
}

// NewKeyStore は鍵ファイルのパスを受け取ります。鍵は初回利用時に作成されるのだ。
func NewKeyStore(path string) *KeyStore {
	return &KeyStore{path: path}
}

// Key は鍵を返します。ファイルが無ければ乱数で生成して保存します。
func (s *KeyStore) Key() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	key, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if len(key) != KeySize {
			return nil, fmt.Errorf("鍵ファイルの長さが不正です (%d バイト): %s", len(key), s.path)
		}
	case errors.Is(err, fs.ErrNotExist):
		key = make([]byte, KeySize)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("鍵の生成に失敗しました: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return nil, fmt.Errorf("鍵ディレクトリの作成に失敗しました: %w", err)
		}
		if err := os.WriteFile(s.path, key, 0o600); err != nil {
			return nil, fmt.Errorf("鍵ファイルの保存に失敗しました: %w", err)
		}
	default:
		return nil, fmt.Errorf("鍵ファイルの読み込みに失敗しました: %w", err)
	}

	s.key = key
	return key, nil
}

// Cipher は AES-256-GCM による暗号化・復号を行います。
// 出力形式は nonce(12B) || ciphertext です。
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher は 32 バイトの鍵から Cipher を生成します。
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("鍵長が不正です: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt は平文を暗号化します。
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ノンスの生成に失敗しました: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt は nonce||ciphertext を復号します。
// 12 バイト未満は MalformedCiphertext、認証失敗は DecryptFailed なのだ。
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < NonceSize {
		return nil, fmt.Errorf("%w: %d バイトしかありません", domain.ErrMalformedCiphertext, len(data))
	}
	plaintext, err := c.aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptFailed, err)
	}
	return plaintext, nil
}
