package license

import (
	"fmt"
	"os"

	"github.com/lamassuiot/licensekey/v3/pkg/errs"
	"github.com/spf13/afero"
)

// ExportPrivateKey returns the private key as PKCS#1 PEM.
func (c *LicenseCodec) ExportPrivateKey() (string, error) {
	pemBytes, err := c.key.PrivateKeyPEM()
	if err != nil {
		c.logger.Errorf("cannot export private key from public key")
		return "", fmt.Errorf("cannot export private key: %w", err)
	}

	return string(pemBytes), nil
}

// ExportPublicKey returns the public key as PKIX PEM.
func (c *LicenseCodec) ExportPublicKey() (string, error) {
	pemBytes, err := c.key.PublicKeyPEM()
	if err != nil {
		c.logger.Errorf("could not encode public key: %s", err)
		return "", err
	}

	return string(pemBytes), nil
}

// WritePrivateKey writes the private key PEM to path, replacing any existing file.
func (c *LicenseCodec) WritePrivateKey(path string) error {
	pemKey, err := c.ExportPrivateKey()
	if err != nil {
		return err
	}

	return c.writeKey(path, pemKey, 0600)
}

// WritePublicKey writes the public key PEM to path, replacing any existing file.
func (c *LicenseCodec) WritePublicKey(path string) error {
	pemKey, err := c.ExportPublicKey()
	if err != nil {
		return err
	}

	return c.writeKey(path, pemKey, 0644)
}

func (c *LicenseCodec) writeKey(path string, pemKey string, perm os.FileMode) error {
	c.logger.Debugf("writing key to %s", path)

	if err := afero.WriteFile(c.fs, path, []byte(pemKey), perm); err != nil {
		c.logger.Errorf("could not write key to %s: %s", path, err)
		return fmt.Errorf("%w: %w", errs.ErrKeyExportIO, err)
	}

	return nil
}
