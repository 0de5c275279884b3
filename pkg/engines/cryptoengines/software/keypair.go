package software

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"math/big"

	"github.com/lamassuiot/licensekey/v3/pkg/errs"
)

// minPaddingLen is the minimum number of 0xff bytes in a PKCS#1 v1.5 type 1 block.
const minPaddingLen = 8

var ErrDecryption = errors.New("rsa: public decryption error")

// KeyPair wraps an RSA key. It is immutable once built and safe for
// concurrent use.
type KeyPair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	keyID   string
}

func (k *KeyPair) IsPrivate() bool {
	return k.private != nil
}

// KeyID is the hex encoded SHA-256 digest of the PKIX public key.
func (k *KeyPair) KeyID() string {
	return k.keyID
}

func (k *KeyPair) Size() int {
	return k.public.Size()
}

func (k *KeyPair) PrivateKeyPEM() ([]byte, error) {
	if !k.IsPrivate() {
		return nil, errs.ErrNotPrivateKey
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.private),
	}), nil
}

func (k *KeyPair) PublicKeyPEM() ([]byte, error) {
	pubASN1, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubASN1,
	}), nil
}

// EncryptPrivate pads data as a PKCS#1 v1.5 type 1 block and applies the
// private key operation, so only the public key can recover it.
func (k *KeyPair) EncryptPrivate(data []byte) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, errs.ErrNotPrivateKey
	}

	// A zero hash makes SignPKCS1v15 pad and exponentiate the raw input.
	return rsa.SignPKCS1v15(rand.Reader, k.private, crypto.Hash(0), data)
}

// DecryptPublic reverses EncryptPrivate using only the public half.
func (k *KeyPair) DecryptPublic(ciphertext []byte) ([]byte, error) {
	size := k.public.Size()
	if len(ciphertext) != size {
		return nil, ErrDecryption
	}

	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(k.public.N) >= 0 {
		return nil, ErrDecryption
	}

	m := new(big.Int).Exp(c, big.NewInt(int64(k.public.E)), k.public.N)
	em := m.FillBytes(make([]byte, size))

	if em[0] != 0x00 || em[1] != 0x01 {
		return nil, ErrDecryption
	}

	i := 2
	for i < len(em) && em[i] == 0xff {
		i++
	}

	if i == len(em) || em[i] != 0x00 || i-2 < minPaddingLen {
		return nil, ErrDecryption
	}

	return em[i+1:], nil
}

// Sign produces an RSASSA-PKCS1-v1_5 SHA-256 signature over data.
func (k *KeyPair) Sign(data []byte) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, errs.ErrNotPrivateKey
	}

	digest := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, k.private, crypto.SHA256, digest[:])
}

func (k *KeyPair) Verify(data, signature []byte) error {
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(k.public, crypto.SHA256, digest[:], signature)
}
