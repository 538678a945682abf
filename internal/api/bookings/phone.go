package bookings

import (
	"github.com/nyaruka/phonenumbers"

	"github.com/masgolf/teetime/internal/api/apiutil"
)

// defaultPhoneRegion is assumed for numbers entered without a country code.
const defaultPhoneRegion = "KR"

// normalizePhone validates a customer phone number and canonicalizes it to
// E.164 for storage.
func normalizePhone(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return "", apiutil.FieldError{Field: "phone", Reason: "must be a valid phone number"}
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", apiutil.FieldError{Field: "phone", Reason: "must be a valid phone number"}
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
