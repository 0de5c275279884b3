package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lamassuiot/licensekey/v3/pkg/errs"
)

type LicenseCodecConfig struct {
	Logs   Logging      `mapstructure:"logs"`
	Key    KeySource    `mapstructure:"key"`
	Cipher CipherConfig `mapstructure:"cipher"`
}

// KeySource selects where the codec key comes from. PEMFile takes precedence
// over PEM; with neither set a fresh key pair of RSAKeySize bits is generated.
type KeySource struct {
	PEMFile    string   `mapstructure:"pem_file"`
	PEM        Password `mapstructure:"pem"`
	RSAKeySize int      `mapstructure:"rsa_key_size" validate:"gte=1024,lte=8192"`
}

type CipherConfig struct {
	Scheme     CipherScheme `mapstructure:"scheme" validate:"oneof=pbkdf2-sha256 evp-md5"`
	Iterations int          `mapstructure:"iterations" validate:"omitempty,gte=1000"`
}

var LicenseCodecDefaults = LicenseCodecConfig{
	Logs: Logging{
		Level: Info,
	},
	Key: KeySource{
		RSAKeySize: 2048,
	},
	Cipher: CipherConfig{
		Scheme:     PBKDF2SHA256,
		Iterations: 10000,
	},
}

var configValidator = validator.New()

func (c LicenseCodecConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
	}

	return nil
}
