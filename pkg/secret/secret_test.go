package secret

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

func TestKeyStore_Key(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "key.bin")

	t.Run("初回は生成して保存するのだ", func(t *testing.T) {
		key, err := NewKeyStore(path).Key()
		require.NoError(t, err)
		assert.Len(t, key, KeySize)

		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, key, onDisk)
	})

	t.Run("2回目以降は同じ鍵を読み込む", func(t *testing.T) {
		first, err := NewKeyStore(path).Key()
		require.NoError(t, err)
		second, err := NewKeyStore(path).Key()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("長さが不正な鍵ファイルはエラー", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.bin")
		require.NoError(t, os.WriteFile(bad, []byte("short"), 0o600))
		_, err := NewKeyStore(bad).Key()
		assert.Error(t, err)
	})
}

func TestCipher(t *testing.T) {
	key := bytes.Repeat([]byte{7}, KeySize)
	c, err := NewCipher(key)
	require.NoError(t, err)

	t.Run("暗号文は nonce から始まり復号できる", func(t *testing.T) {
		ct, err := c.Encrypt([]byte(`{"seedream":{}}`))
		require.NoError(t, err)
		assert.Greater(t, len(ct), NonceSize)

		pt, err := c.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, `{"seedream":{}}`, string(pt))
	})

	t.Run("12バイト未満は MalformedCiphertext", func(t *testing.T) {
		_, err := c.Decrypt([]byte("short"))
		assert.True(t, errors.Is(err, domain.ErrMalformedCiphertext))
	})

	t.Run("改ざんされた暗号文は DecryptFailed", func(t *testing.T) {
		ct, err := c.Encrypt([]byte("secret"))
		require.NoError(t, err)
		ct[len(ct)-1] ^= 0xff
		_, err = c.Decrypt(ct)
		assert.True(t, errors.Is(err, domain.ErrDecryptFailed))
	})

	t.Run("別の鍵では復号できない", func(t *testing.T) {
		ct, _ := c.Encrypt([]byte("secret"))
		other, _ := NewCipher(bytes.Repeat([]byte{8}, KeySize))
		_, err := other.Decrypt(ct)
		assert.True(t, errors.Is(err, domain.ErrDecryptFailed))
	})

	t.Run("鍵長が不正なら生成に失敗する", func(t *testing.T) {
		_, err := NewCipher([]byte("short"))
		assert.Error(t, err)
	})
}
