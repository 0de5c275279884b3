package errs

import "errors"

var (
	ErrNotPrivateKey     error = errors.New("key is not a private key")
	ErrMissingMetadata   error = errors.New("no license key data provided")
	ErrKeyImport         error = errors.New("could not import key")
	ErrKeyExportIO       error = errors.New("could not write exported key")
	ErrMalformedEnvelope error = errors.New("malformed license key envelope")

	ErrSymmetricKeyRecovery error = errors.New("could not extract symmetric key")
	ErrPayloadDecryption    error = errors.New("could not decrypt data with key found")
	ErrSignatureInvalid     error = errors.New("license key signature invalid, the license key may have been tampered with")
	ErrMalformedMetadata    error = errors.New("license key data is not valid JSON")

	ErrLicenseExpired    error = errors.New("license expired")
	ErrSeatLimitExceeded error = errors.New("license seat limit exceeded")

	ErrCipherNotFound error = errors.New("cipher scheme not found")
	ErrInvalidConfig  error = errors.New("invalid configuration")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotPrivateKey, "not_private_key"},
	{ErrMissingMetadata, "missing_metadata"},
	{ErrKeyImport, "key_import"},
	{ErrKeyExportIO, "key_export_io"},
	{ErrMalformedEnvelope, "malformed_envelope"},
	{ErrSymmetricKeyRecovery, "symmetric_key_recovery"},
	{ErrPayloadDecryption, "payload_decryption"},
	{ErrSignatureInvalid, "signature_invalid"},
	{ErrMalformedMetadata, "malformed_metadata"},
	{ErrLicenseExpired, "license_expired"},
	{ErrSeatLimitExceeded, "seat_limit_exceeded"},
	{ErrCipherNotFound, "cipher_not_found"},
	{ErrInvalidConfig, "invalid_config"},
}

// Kind returns a short label for the first sentinel wrapped by err. It
// returns "ok" for a nil error and "unknown" when no sentinel matches.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return "unknown"
}
