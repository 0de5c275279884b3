package passphrase

import (
	"fmt"
	"sort"

	"github.com/lamassuiot/licensekey/v3/pkg/config"
	"github.com/lamassuiot/licensekey/v3/pkg/errs"
)

// Cipher encrypts a payload under a passphrase. Implementations embed their
// own random salt in the text they produce.
type Cipher interface {
	Scheme() config.CipherScheme
	Encrypt(plaintext, passphrase []byte) (string, error)
	Decrypt(ciphertext string, passphrase []byte) ([]byte, error)
}

var cipherBuilders = make(map[config.CipherScheme]func(config.CipherConfig) (Cipher, error))

func RegisterCipher(name config.CipherScheme, builder func(config.CipherConfig) (Cipher, error)) {
	cipherBuilders[name] = builder
}

func GetCipherBuilder(name config.CipherScheme) func(config.CipherConfig) (Cipher, error) {
	return cipherBuilders[name]
}

func RegisteredSchemes() []config.CipherScheme {
	schemes := make([]config.CipherScheme, 0, len(cipherBuilders))
	for name := range cipherBuilders {
		schemes = append(schemes, name)
	}

	sort.Slice(schemes, func(i, j int) bool { return schemes[i] < schemes[j] })
	return schemes
}

func NewCipher(conf config.CipherConfig) (Cipher, error) {
	builder := GetCipherBuilder(conf.Scheme)
	if builder == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrCipherNotFound, conf.Scheme)
	}

	return builder(conf)
}

func init() {
	RegisterCipher(config.PBKDF2SHA256, func(conf config.CipherConfig) (Cipher, error) {
		return NewPBKDF2Cipher(conf.Iterations), nil
	})
	RegisterCipher(config.EVPMD5, func(conf config.CipherConfig) (Cipher, error) {
		return NewEVPCipher(), nil
	})
}
