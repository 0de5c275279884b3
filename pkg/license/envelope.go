package license

import (
	"fmt"
	"strings"

	"github.com/lamassuiot/licensekey/v3/pkg/errs"
)

const (
	BeginMarker = "====BEGIN LICENSE KEY===="
	EndMarker   = "====END LICENSE KEY===="
	Delimiter   = "||"
)

// Envelope is the textual license key artifact:
//
//	====BEGIN LICENSE KEY====
//	<encrypted symmetric key>||<encrypted metadata>
//	<signature>
//	====END LICENSE KEY====
type Envelope struct {
	EncryptedKey string
	Payload      string
	Signature    string
}

func (e Envelope) String() string {
	return strings.Join([]string{
		BeginMarker,
		e.EncryptedKey + Delimiter + e.Payload,
		e.Signature,
		EndMarker,
	}, "\n")
}

// ParseEnvelope splits a license key into its parts. Surrounding whitespace
// and CRLF line endings are tolerated, as is a missing end marker. The blob
// line is split on the first delimiter only.
func ParseEnvelope(text string) (*Envelope, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	if len(lines) < 3 || len(lines) > 4 {
		return nil, fmt.Errorf("%w: expected 4 lines, got %d", errs.ErrMalformedEnvelope, len(lines))
	}

	if lines[0] != BeginMarker {
		return nil, fmt.Errorf("%w: missing begin marker", errs.ErrMalformedEnvelope)
	}

	if len(lines) == 4 && lines[3] != EndMarker {
		return nil, fmt.Errorf("%w: missing end marker", errs.ErrMalformedEnvelope)
	}

	encKey, payload, found := strings.Cut(lines[1], Delimiter)
	if !found {
		return nil, fmt.Errorf("%w: missing '%s' delimiter", errs.ErrMalformedEnvelope, Delimiter)
	}

	if encKey == "" || payload == "" {
		return nil, fmt.Errorf("%w: empty encrypted key or payload", errs.ErrMalformedEnvelope)
	}

	if lines[2] == "" {
		return nil, fmt.Errorf("%w: empty signature", errs.ErrMalformedEnvelope)
	}

	return &Envelope{
		EncryptedKey: encKey,
		Payload:      payload,
		Signature:    lines[2],
	}, nil
}
