package availability

// SettingsID is the fixed id of the singleton booking policy row.
const SettingsID = "00000000-0000-0000-0000-000000000001"

// DefaultCallMessage is used when the policy row carries no call-to-action text.
const DefaultCallMessage = "Having trouble finding a time that works? Please call us to book."

// callPrompt is the short prompt substituted into restriction messages when
// the policy asks callers to phone in.
const callPrompt = "Having trouble finding a time that works?"

// Settings is the booking policy applied before any interval math runs.
// It mirrors the booking_settings singleton row; DefaultSettings supplies the
// in-memory fallback when the row is absent.
type Settings struct {
	DisableSameDayBooking bool
	DisableWeekendBooking bool
	MinAdvanceHours       int
	MaxAdvanceDays        int
	MaxWeeklySlots        int
	AutoBlockExcessSlots  bool
	ShowCallMessage       bool
	CallMessageText       string
}

// DefaultSettings returns the policy used when no settings row exists.
func DefaultSettings() Settings {
	return Settings{
		DisableSameDayBooking: false,
		DisableWeekendBooking: false,
		MinAdvanceHours:       24,
		MaxAdvanceDays:        14,
		MaxWeeklySlots:        10,
		AutoBlockExcessSlots:  true,
		ShowCallMessage:       true,
		CallMessageText:       DefaultCallMessage,
	}
}
