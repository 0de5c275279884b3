package passphrase

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/lamassuiot/licensekey/v3/pkg/config"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 10000

	saltLen = 8
	keyLen  = 32
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidPadding    = errors.New("invalid padding")

	saltedMagic = []byte("Salted__")
)

type keyDeriver func(passphrase, salt []byte) (key, iv []byte)

// opensslCipher produces the OpenSSL "enc" text layout:
// base64("Salted__" || salt || AES-256-CBC(PKCS#7 padded plaintext)).
type opensslCipher struct {
	scheme config.CipherScheme
	derive keyDeriver
	random io.Reader
}

// NewPBKDF2Cipher derives key and IV with PBKDF2-HMAC-SHA256, as
// "openssl enc -aes-256-cbc -pbkdf2 -md sha256 -iter N" does.
func NewPBKDF2Cipher(iterations int) Cipher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	return &opensslCipher{
		scheme: config.PBKDF2SHA256,
		random: rand.Reader,
		derive: func(passphrase, salt []byte) ([]byte, []byte) {
			material := pbkdf2.Key(passphrase, salt, iterations, keyLen+aes.BlockSize, sha256.New)
			return material[:keyLen], material[keyLen:]
		},
	}
}

// NewEVPCipher derives key and IV with EVP_BytesToKey over MD5, the layout
// crypto-js emits for passphrase based AES.
func NewEVPCipher() Cipher {
	return &opensslCipher{
		scheme: config.EVPMD5,
		random: rand.Reader,
		derive: evpBytesToKey,
	}
}

func (c *opensslCipher) Scheme() config.CipherScheme {
	return c.scheme
}

func (c *opensslCipher) Encrypt(plaintext, passphrase []byte) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return "", err
	}

	key, iv := c.derive(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	data := pad(plaintext)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, data)

	out := make([]byte, 0, len(saltedMagic)+saltLen+len(data))
	out = append(out, saltedMagic...)
	out = append(out, salt...)
	out = append(out, data...)

	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *opensslCipher) Decrypt(ciphertext string, passphrase []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(ciphertext)
	if err != nil {
		return nil, err
	}

	header := len(saltedMagic) + saltLen
	if len(raw) < header+aes.BlockSize || (len(raw)-header)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	if !bytes.Equal(raw[:len(saltedMagic)], saltedMagic) {
		return nil, ErrInvalidCiphertext
	}

	key, iv := c.derive(passphrase, raw[len(saltedMagic):header])
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	data := raw[header:]
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(data, data)

	return unpad(data)
}

func evpBytesToKey(passphrase, salt []byte) ([]byte, []byte) {
	var material, prev []byte
	for len(material) < keyLen+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		material = append(material, prev...)
	}

	return material[:keyLen], material[keyLen : keyLen+aes.BlockSize]
}

func pad(data []byte) []byte {
	padding := aes.BlockSize - len(data)%aes.BlockSize
	out := make([]byte, len(data), len(data)+padding)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, ErrInvalidPadding
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}

	return data[:len(data)-padding], nil
}
