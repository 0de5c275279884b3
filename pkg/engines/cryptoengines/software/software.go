package software

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/lamassuiot/licensekey/v3/pkg/errs"
	"github.com/lamassuiot/licensekey/v3/pkg/helpers"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultRSAKeySize = 2048

type SoftwareCryptoEngine struct {
	logger *logrus.Entry
}

func NewSoftwareCryptoEngine(logger *logrus.Entry) *SoftwareCryptoEngine {
	return &SoftwareCryptoEngine{
		logger: logger,
	}
}

// CreateRSAPrivateKey creates a RSA private key with the specified key size
func (p *SoftwareCryptoEngine) CreateRSAPrivateKey(ctx context.Context, keySize int) (string, *rsa.PrivateKey, error) {
	_, span := otel.GetTracerProvider().Tracer("licensekey").Start(ctx, helpers.GetCallerFunctionName(), trace.WithAttributes(attribute.Int("rsa.key_size", keySize)))
	defer span.End()

	lFunc := p.logger.WithField("func", "RSA")
	lFunc.Debugf("creating RSA %d bit key", keySize)
	key, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		lFunc.Errorf("could not create RSA key: %s", err)
		return "", nil, err
	}

	encDigest, err := p.EncodePKIXPublicKeyDigest(&key.PublicKey)
	if err != nil {
		lFunc.Errorf("could not encode public key digest: %s", err)
		return "", nil, err
	}

	return encDigest, key, nil
}

// GenerateKeyPair creates a fresh RSA key pair holding both halves.
func (p *SoftwareCryptoEngine) GenerateKeyPair(ctx context.Context, keySize int) (*KeyPair, error) {
	if keySize == 0 {
		keySize = DefaultRSAKeySize
	}

	keyID, key, err := p.CreateRSAPrivateKey(ctx, keySize)
	if err != nil {
		return nil, err
	}

	p.logger.Debugf("generated key pair %s", keyID)
	return &KeyPair{private: key, public: &key.PublicKey, keyID: keyID}, nil
}

// ImportKeyPair parses a PEM encoded RSA key. Private keys may be PKCS#8 or
// PKCS#1, public keys PKIX or PKCS#1.
func (p *SoftwareCryptoEngine) ImportKeyPair(pemBytes []byte) (*KeyPair, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		p.logger.Errorf("could not decode PEM block")
		return nil, fmt.Errorf("%w: no key found", errs.ErrKeyImport)
	}

	var kp *KeyPair
	if priv, err := p.ParsePrivateKey(block); err == nil {
		kp = &KeyPair{private: priv, public: &priv.PublicKey}
	} else if pub, pubErr := p.ParsePublicKey(block); pubErr == nil {
		kp = &KeyPair{public: pub}
	} else {
		p.logger.Errorf("could not parse %s block: %s", block.Type, errors.Join(err, pubErr))
		return nil, fmt.Errorf("%w: %w", errs.ErrKeyImport, errors.Join(err, pubErr))
	}

	keyID, err := p.EncodePKIXPublicKeyDigest(kp.public)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrKeyImport, err)
	}
	kp.keyID = keyID

	p.logger.Debugf("imported key %s (private: %t)", keyID, kp.IsPrivate())
	return kp, nil
}

func (p *SoftwareCryptoEngine) ParsePrivateKey(block *pem.Block) (*rsa.PrivateKey, error) {
	// First try to parse as PKCS8
	genericKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// If it fails, try to parse as PKCS1
		genericKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
	}

	key, ok := genericKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("unsupported key type")
	}

	return key, nil
}

func (p *SoftwareCryptoEngine) ParsePublicKey(block *pem.Block) (*rsa.PublicKey, error) {
	genericKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		genericKey, err = x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
	}

	key, ok := genericKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("unsupported key type")
	}

	return key, nil
}

func (p *SoftwareCryptoEngine) EncodePKIXPublicKeyDigest(key any) (string, error) {
	pubkeyBytes, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		p.logger.Errorf("could not marshal public key: %s", err)
		return "", err
	}

	digest := sha256.Sum256(pubkeyBytes)
	p.logger.Tracef("public key digest (bytes): %x", digest)

	return hex.EncodeToString(digest[:]), nil
}
