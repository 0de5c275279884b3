package config

type LogLevel string

const (
	Info  LogLevel = "info"
	Debug LogLevel = "debug"
	Trace LogLevel = "trace"
	None  LogLevel = "none"
)

type CipherScheme string

const (
	// PBKDF2SHA256 is the OpenSSL "enc -pbkdf2 -md sha256" layout with AES-256-CBC.
	PBKDF2SHA256 CipherScheme = "pbkdf2-sha256"
	// EVPMD5 is the legacy OpenSSL EVP_BytesToKey layout also produced by crypto-js.
	EVPMD5 CipherScheme = "evp-md5"
)
