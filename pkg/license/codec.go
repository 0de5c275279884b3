package license

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/lamassuiot/licensekey/v3/pkg/config"
	"github.com/lamassuiot/licensekey/v3/pkg/engines/cryptoengines/software"
	"github.com/lamassuiot/licensekey/v3/pkg/engines/passphrase"
	"github.com/lamassuiot/licensekey/v3/pkg/errs"
	"github.com/lamassuiot/licensekey/v3/pkg/helpers"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// symmetricKeySize is the entropy, in bytes, of the per license payload key.
const symmetricKeySize = 16

var tracer = otel.GetTracerProvider().Tracer("licensekey")

// LicenseCodec issues and verifies license key envelopes with a single RSA
// key. It holds no mutable state after construction, so one instance may be
// shared across goroutines.
type LicenseCodec struct {
	logger  *logrus.Entry
	key     *software.KeyPair
	cipher  passphrase.Cipher
	fs      afero.Fs
	metrics *Metrics
	keySize int
}

type Option func(*LicenseCodec)

// WithFs sets the filesystem used to read key files and write exported keys.
func WithFs(fs afero.Fs) Option {
	return func(c *LicenseCodec) {
		c.fs = fs
	}
}

func WithCipher(cipher passphrase.Cipher) Option {
	return func(c *LicenseCodec) {
		c.cipher = cipher
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *LicenseCodec) {
		c.metrics = metrics
	}
}

// WithKeySize sets the modulus size used when the codec generates its own key.
func WithKeySize(bits int) Option {
	return func(c *LicenseCodec) {
		c.keySize = bits
	}
}

func newCodec(logger *logrus.Entry, opts []Option) *LicenseCodec {
	codec := &LicenseCodec{
		logger:  logger,
		cipher:  passphrase.NewPBKDF2Cipher(passphrase.DefaultIterations),
		fs:      afero.NewOsFs(),
		keySize: software.DefaultRSAKeySize,
	}

	for _, opt := range opts {
		opt(codec)
	}

	return codec
}

// NewLicenseCodec builds a codec from PEM key material, private or public. A
// nil keyPEM generates a fresh key pair.
func NewLicenseCodec(logger *logrus.Entry, keyPEM []byte, opts ...Option) (*LicenseCodec, error) {
	codec := newCodec(logger, opts)
	if err := codec.loadKey(keyPEM); err != nil {
		return nil, err
	}

	return codec, nil
}

func NewLicenseCodecFromConfig(logger *logrus.Entry, conf config.LicenseCodecConfig, opts ...Option) (*LicenseCodec, error) {
	if err := conf.Validate(); err != nil {
		logger.Errorf("invalid configuration: %s", err)
		return nil, err
	}

	cipher, err := passphrase.NewCipher(conf.Cipher)
	if err != nil {
		logger.Errorf("could not build cipher: %s", err)
		return nil, err
	}

	opts = append([]Option{WithCipher(cipher), WithKeySize(conf.Key.RSAKeySize)}, opts...)
	codec := newCodec(logger, opts)

	var keyPEM []byte
	switch {
	case conf.Key.PEMFile != "":
		logger.Debugf("reading key from %s", conf.Key.PEMFile)
		keyPEM, err = afero.ReadFile(codec.fs, conf.Key.PEMFile)
		if err != nil {
			logger.Errorf("could not read key file %s: %s", conf.Key.PEMFile, err)
			return nil, fmt.Errorf("%w: %w", errs.ErrKeyImport, err)
		}
	case conf.Key.PEM != "":
		keyPEM = []byte(conf.Key.PEM)
	}

	if err := codec.loadKey(keyPEM); err != nil {
		return nil, err
	}

	return codec, nil
}

func (c *LicenseCodec) loadKey(keyPEM []byte) error {
	engine := software.NewSoftwareCryptoEngine(c.logger.WithField("subsystem-provider", "GoSoft"))

	var err error
	if keyPEM == nil {
		c.logger.Infof("no key material provided, generating RSA %d key pair", c.keySize)
		c.key, err = engine.GenerateKeyPair(helpers.InitContext(), c.keySize)
	} else {
		c.key, err = engine.ImportKeyPair(keyPEM)
	}
	if err != nil {
		c.logger.Errorf("could not load key: %s", err)
		return err
	}

	c.logger = c.logger.WithField("key-id", c.key.KeyID())
	c.logger.Infof("license codec ready (private: %t, cipher: %s)", c.key.IsPrivate(), c.cipher.Scheme())
	return nil
}

func (c *LicenseCodec) IsPrivate() bool {
	return c.key.IsPrivate()
}

func (c *LicenseCodec) KeyID() string {
	return c.key.KeyID()
}

func (c *LicenseCodec) Scheme() config.CipherScheme {
	return c.cipher.Scheme()
}

// Issue serializes metadata to JSON and seals it into a license key envelope.
func (c *LicenseCodec) Issue(ctx context.Context, metadata any) (envelope string, err error) {
	ctx, span := c.startSpan(ctx, "Issue")
	defer endSpan(span, &err)
	defer func(start time.Time) { c.metrics.observeIssue(start, err) }(time.Now())

	lFunc := helpers.ConfigureLogger(ctx, c.logger).WithField("func", "Issue")

	if !c.key.IsPrivate() {
		lFunc.Errorf("cannot generate license key, key provided is not private")
		return "", fmt.Errorf("cannot generate license key: %w", errs.ErrNotPrivateKey)
	}

	if metadata == nil {
		lFunc.Errorf("no license key data provided")
		return "", errs.ErrMissingMetadata
	}

	payload, err := json.Marshal(metadata)
	if err != nil {
		lFunc.Errorf("could not serialize license key data: %s", err)
		return "", fmt.Errorf("%w: %w", errs.ErrMalformedMetadata, err)
	}

	if string(payload) == "null" {
		lFunc.Errorf("license key data serialized to null")
		return "", errs.ErrMissingMetadata
	}

	envelope, err = c.seal(payload)
	if err != nil {
		lFunc.Errorf("could not seal license key: %s", err)
		return "", err
	}

	lFunc.Debugf("license key issued")
	return envelope, nil
}

// seal encrypts and signs an already serialized payload.
func (c *LicenseCodec) seal(payload []byte) (string, error) {
	rawKey := make([]byte, symmetricKeySize)
	if _, err := rand.Read(rawKey); err != nil {
		return "", fmt.Errorf("could not generate symmetric key: %w", err)
	}
	symKey := []byte(base64.StdEncoding.EncodeToString(rawKey))

	cipherText, err := c.cipher.Encrypt(payload, symKey)
	if err != nil {
		return "", fmt.Errorf("could not encrypt license key data: %w", err)
	}

	encSymKey, err := c.key.EncryptPrivate(symKey)
	if err != nil {
		return "", fmt.Errorf("could not encrypt symmetric key: %w", err)
	}

	signature, err := c.key.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("could not sign license key data: %w", err)
	}

	return Envelope{
		EncryptedKey: base64.StdEncoding.EncodeToString(encSymKey),
		Payload:      cipherText,
		Signature:    base64.StdEncoding.EncodeToString(signature),
	}.String(), nil
}

// Verify opens a license key envelope and returns its metadata decoded into
// generic JSON values, with numbers as json.Number. Any error means the
// license must be rejected.
func (c *LicenseCodec) Verify(ctx context.Context, envelope string) (any, error) {
	var metadata any
	if err := c.VerifyInto(ctx, envelope, &metadata); err != nil {
		return nil, err
	}

	return metadata, nil
}

// VerifyInto opens a license key envelope and decodes its metadata into dst.
func (c *LicenseCodec) VerifyInto(ctx context.Context, envelope string, dst any) (err error) {
	ctx, span := c.startSpan(ctx, "Verify")
	defer endSpan(span, &err)
	defer func(start time.Time) { c.metrics.observeVerify(start, err) }(time.Now())

	lFunc := helpers.ConfigureLogger(ctx, c.logger).WithField("func", "Verify")

	payload, err := c.open(envelope)
	if err != nil {
		lFunc.Warnf("license key rejected (%s): %s", errs.Kind(err), err)
		return err
	}

	if err := decodeMetadata(payload, dst); err != nil {
		var invalidDst *json.InvalidUnmarshalError
		if errors.As(err, &invalidDst) {
			lFunc.Errorf("cannot decode license key data: %s", err)
			return err
		}

		lFunc.Errorf("verified license key data could not be decoded: %s", err)
		return fmt.Errorf("%w: %w", errs.ErrMalformedMetadata, err)
	}

	lFunc.Debugf("license key verified")
	return nil
}

// decodeMetadata decodes exactly one JSON value. Numbers decoded into
// interface values are kept as json.Number so integers beyond 2^53 survive.
func decodeMetadata(payload []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after license key data")
	}

	return nil
}

// open runs the verification sequence and returns the signed payload.
func (c *LicenseCodec) open(text string) ([]byte, error) {
	envelope, err := ParseEnvelope(text)
	if err != nil {
		return nil, err
	}

	encSymKey, err := base64.StdEncoding.Strict().DecodeString(envelope.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSymmetricKeyRecovery, err)
	}

	symKey, err := c.key.DecryptPublic(encSymKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSymmetricKeyRecovery, err)
	}

	if len(symKey) == 0 {
		return nil, fmt.Errorf("%w: empty symmetric key", errs.ErrSymmetricKeyRecovery)
	}

	payload, err := c.cipher.Decrypt(envelope.Payload, symKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrPayloadDecryption, err)
	}

	if len(payload) == 0 || !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: decrypted data is not UTF-8 text", errs.ErrPayloadDecryption)
	}

	signature, err := base64.StdEncoding.Strict().DecodeString(envelope.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSignatureInvalid, err)
	}

	if err := c.key.Verify(payload, signature); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSignatureInvalid, err)
	}

	return payload, nil
}

func (c *LicenseCodec) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("license.key_id", c.key.KeyID()),
		attribute.String("license.cipher", string(c.cipher.Scheme())),
	))
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, errs.Kind(*err))
	}
	span.End()
}
