package license

import (
	"strings"
	"testing"

	"github.com/lamassuiot/licensekey/v3/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeString(t *testing.T) {
	envelope := Envelope{EncryptedKey: "a2V5", Payload: "U2FsdGVkX1+c", Signature: "c2ln"}

	expected := "====BEGIN LICENSE KEY====\na2V5||U2FsdGVkX1+c\nc2ln\n====END LICENSE KEY===="
	assert.Equal(t, expected, envelope.String())
}

func TestParseEnvelope(t *testing.T) {
	expected := &Envelope{EncryptedKey: "a2V5", Payload: "U2FsdGVkX1+c", Signature: "c2ln"}

	table := []struct {
		name string
		text string
	}{
		{"Canonical", "====BEGIN LICENSE KEY====\na2V5||U2FsdGVkX1+c\nc2ln\n====END LICENSE KEY===="},
		{"SurroundingWhitespace", "\n\n  ====BEGIN LICENSE KEY====\na2V5||U2FsdGVkX1+c\nc2ln\n====END LICENSE KEY====\n\t "},
		{"CRLF", "====BEGIN LICENSE KEY====\r\na2V5||U2FsdGVkX1+c\r\nc2ln\r\n====END LICENSE KEY====\r\n"},
		{"MissingEndMarker", "====BEGIN LICENSE KEY====\na2V5||U2FsdGVkX1+c\nc2ln"},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := ParseEnvelope(tt.text)
			require.NoError(t, err)
			assert.Equal(t, expected, envelope)
		})
	}
}

func TestParseEnvelopeSplitsOnFirstDelimiter(t *testing.T) {
	envelope, err := ParseEnvelope("====BEGIN LICENSE KEY====\na2V5||cGF5||bG9hZA==\nc2ln\n====END LICENSE KEY====")
	require.NoError(t, err)
	assert.Equal(t, "a2V5", envelope.EncryptedKey)
	assert.Equal(t, "cGF5||bG9hZA==", envelope.Payload)
}

func TestParseEnvelopeMalformed(t *testing.T) {
	table := []struct {
		name string
		text string
	}{
		{"Empty", ""},
		{"SingleLine", "not a license key"},
		{"TwoLines", "====BEGIN LICENSE KEY====\na2V5||cGF5"},
		{"TooManyLines", "====BEGIN LICENSE KEY====\na2V5||cGF5\nc2ln\n====END LICENSE KEY====\nextra"},
		{"WrongBeginMarker", "====BEGIN CERTIFICATE====\na2V5||cGF5\nc2ln\n====END LICENSE KEY===="},
		{"WrongEndMarker", "====BEGIN LICENSE KEY====\na2V5||cGF5\nc2ln\n====END CERTIFICATE===="},
		{"MissingDelimiter", "====BEGIN LICENSE KEY====\na2V5cGF5\nc2ln\n====END LICENSE KEY===="},
		{"SingleBar", "====BEGIN LICENSE KEY====\na2V5|cGF5\nc2ln\n====END LICENSE KEY===="},
		{"EmptyKey", "====BEGIN LICENSE KEY====\n||cGF5\nc2ln\n====END LICENSE KEY===="},
		{"EmptyPayload", "====BEGIN LICENSE KEY====\na2V5||\nc2ln\n====END LICENSE KEY===="},
		{"EmptySignature", "====BEGIN LICENSE KEY====\na2V5||cGF5\n\n====END LICENSE KEY===="},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := ParseEnvelope(tt.text)
			assert.Nil(t, envelope)
			assert.ErrorIs(t, err, errs.ErrMalformedEnvelope)
		})
	}
}

func TestEnvelopeStringParseRoundTrip(t *testing.T) {
	envelope := Envelope{
		EncryptedKey: strings.Repeat("QUJD", 10),
		Payload:      "U2FsdGVkX1" + strings.Repeat("x", 40),
		Signature:    strings.Repeat("c2ln", 10),
	}

	parsed, err := ParseEnvelope(envelope.String())
	require.NoError(t, err)
	assert.Equal(t, envelope, *parsed)
}
