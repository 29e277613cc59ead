package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// IVSize is the length of the random IV prefixed to every blob.
const IVSize = aes.BlockSize

type cryptoError string

func (e cryptoError) Error() string { return string(e) }
func (e cryptoError) Kind() string  { return "CryptoError" }

// ErrCrypto is returned for truncated blobs and invalid padding.
const ErrCrypto = cryptoError("crypto: decryption failed")

// Codec encrypts and decrypts payloads with a fixed key.
type Codec struct {
	block cipher.Block
	rand  io.Reader
}

// NewCodec builds a codec from raw key material (16, 24 or 32 bytes).
func NewCodec(key []byte) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	return &Codec{block: block, rand: rand.Reader}, nil
}

// NewCodecFromPassphrase derives a 256-bit key as SHA-256(passphrase).
func NewCodecFromPassphrase(passphrase string) (*Codec, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("crypto: empty passphrase")
	}
	key := sha256.Sum256([]byte(passphrase))
	return NewCodec(key[:])
}

// Encrypt returns IV ‖ CBC(pkcs7(plaintext)).
func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, IVSize+len(padded))
	iv := out[:IVSize]
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return nil, fmt.Errorf("crypto: read iv: %w", err)
	}
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[IVSize:], padded)
	return out, nil
}

// Decrypt reverses Encrypt. It never panics on short or malformed input.
func (c *Codec) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < IVSize {
		return nil, fmt.Errorf("%w: blob of %d bytes is shorter than the iv", ErrCrypto, len(blob))
	}
	body := blob[IVSize:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrCrypto, len(body), aes.BlockSize)
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, blob[:IVSize]).CryptBlocks(plain, body)
	return unpad(plain, aes.BlockSize)
}

// EncryptString encrypts s and base64 encodes the blob for text channels.
func (c *Codec) EncryptString(s string) (string, error) {
	blob, err := c.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptString reverses EncryptString.
func (c *Codec) DecryptString(s string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrCrypto, err)
	}
	plain, err := c.Decrypt(blob)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrCrypto)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrCrypto)
		}
	}
	return data[:len(data)-n], nil
}
