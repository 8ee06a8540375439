// File: cluster/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concrete api.Compressor/api.Cipher implementations for cluster IPC
// payloads, selectable per spec §6: zstd and lz4 compression, AES-GCM
// cipher with a PBKDF2-derived key. Grounded on the pack's compression
// stack (klauspost/compress/zstd, pierrec/lz4/v4) and golang.org/x/crypto's
// pbkdf2, both already in the teacher's dependency surface.

package cluster

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/crypto/pbkdf2"

	"github.com/momentics/corenet/api"
)

// ZstdCompressor implements api.Compressor over klauspost/compress/zstd.
type ZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCompressor constructs a reusable zstd encoder/decoder pair.
func NewZstdCompressor() (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &ZstdCompressor{enc: enc, dec: dec}, nil
}

func (z *ZstdCompressor) Method() api.CompressMethod { return api.CompressZstd }

func (z *ZstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, dst), nil
}

func (z *ZstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	return z.dec.DecodeAll(src, dst)
}

// LZ4Compressor implements api.Compressor over pierrec/lz4/v4.
type LZ4Compressor struct{}

func NewLZ4Compressor() *LZ4Compressor { return &LZ4Compressor{} }

func (l *LZ4Compressor) Method() api.CompressMethod { return api.CompressLZ4 }

func (l *LZ4Compressor) Compress(dst, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst, buf.Bytes()...), nil
}

func (l *LZ4Compressor) Decompress(dst, src []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}

// AESGCMCipher implements api.Cipher with a PBKDF2-derived key and a random
// nonce prepended to each sealed payload.
type AESGCMCipher struct {
	method   api.CipherMethod
	password string
	salt     string
}

// NewAESGCMCipher constructs a cipher of the given key size
// (api.CipherAES128/192/256).
func NewAESGCMCipher(method api.CipherMethod) *AESGCMCipher {
	return &AESGCMCipher{method: method}
}

func (c *AESGCMCipher) Method() api.CipherMethod { return c.method }

func (c *AESGCMCipher) SetPassword(password string) { c.password = password }

func (c *AESGCMCipher) SetSalt(salt string) { c.salt = salt }

func (c *AESGCMCipher) keySize() int {
	switch c.method {
	case api.CipherAES128:
		return 16
	case api.CipherAES192:
		return 24
	default:
		return 32
	}
}

func (c *AESGCMCipher) gcm() (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(c.password), []byte(c.salt), 4096, c.keySize(), sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *AESGCMCipher) Seal(dst, plaintext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := append(dst, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

func (c *AESGCMCipher) Open(dst, ciphertext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("cluster: ciphertext shorter than nonce")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(dst, nonce, body, nil)
}

var (
	_ api.Compressor = (*ZstdCompressor)(nil)
	_ api.Compressor = (*LZ4Compressor)(nil)
	_ api.Cipher     = (*AESGCMCipher)(nil)
)
