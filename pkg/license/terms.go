package license

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lamassuiot/licensekey/v3/pkg/errs"
)

const dateLayout = "2006-01-02"

var termsValidator = validator.New()

// Terms is the conventional shape of license metadata. The codec itself
// accepts any JSON value; Terms adds typed access and enforcement.
type Terms struct {
	Customer string `json:"customer" validate:"required"`
	// A zero value indicates no seat limit.
	Seats int `json:"seats,omitempty" validate:"gte=0"`
	// Expires is either a date (2006-01-02) or an RFC 3339 timestamp. A date
	// is inclusive: the license stays valid until the end of that day, UTC.
	// Empty means the license never expires.
	Expires  string   `json:"expires,omitempty"`
	Features []string `json:"features,omitempty"`
}

// ExpiryTime returns the first instant at which the license is no longer
// valid, and false when the license never expires.
func (t Terms) ExpiryTime() (time.Time, bool, error) {
	if t.Expires == "" {
		return time.Time{}, false, nil
	}

	if day, err := time.Parse(dateLayout, t.Expires); err == nil {
		return day.AddDate(0, 0, 1), true, nil
	}

	if expiry, err := time.Parse(time.RFC3339, t.Expires); err == nil {
		return expiry, true, nil
	}

	return time.Time{}, false, fmt.Errorf("%w: unparsable expiry '%s'", errs.ErrMalformedMetadata, t.Expires)
}

func (t Terms) HasFeature(feature string) bool {
	return slices.Contains(t.Features, feature)
}

// Validate checks the terms against the current time and the number of seats
// in use, including any seat about to be taken.
func (t Terms) Validate(now time.Time, seatsInUse int) error {
	expiry, expires, err := t.ExpiryTime()
	if err != nil {
		return err
	}

	if expires && !now.Before(expiry) {
		return fmt.Errorf("%w: license for %s expired at %s", errs.ErrLicenseExpired, t.Customer, expiry.Format(time.RFC822))
	}

	if t.Seats != 0 && seatsInUse > t.Seats {
		return fmt.Errorf("%w: license for %s is only valid for %d seats, but %d are active", errs.ErrSeatLimitExceeded, t.Customer, t.Seats, seatsInUse)
	}

	return nil
}

// IssueTerms validates terms and issues a license key for them.
func (c *LicenseCodec) IssueTerms(ctx context.Context, terms Terms) (string, error) {
	if err := termsValidator.Struct(terms); err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrMalformedMetadata, err)
	}

	if _, _, err := terms.ExpiryTime(); err != nil {
		return "", err
	}

	return c.Issue(ctx, terms)
}

// VerifyTerms verifies a license key and decodes its metadata as Terms.
func (c *LicenseCodec) VerifyTerms(ctx context.Context, envelope string) (*Terms, error) {
	var terms Terms
	if err := c.VerifyInto(ctx, envelope, &terms); err != nil {
		return nil, err
	}

	if err := termsValidator.Struct(terms); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedMetadata, err)
	}

	return &terms, nil
}
