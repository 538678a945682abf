package settings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/masgolf/teetime/internal/availability"
	appdb "github.com/masgolf/teetime/internal/db"
	"github.com/masgolf/teetime/internal/testutil"
)

func setupTest(t *testing.T) *appdb.DB {
	t.Helper()

	database := testutil.NewTestDB(t)
	prev := queries
	queries = database.Queries
	t.Cleanup(func() { queries = prev })
	return database
}

func TestHandleSettingsGet_Defaults(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/booking-settings", nil)
	w := httptest.NewRecorder()
	HandleSettingsGet(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got appdb.BookingSettings
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != availability.SettingsID {
		t.Errorf("id = %q, want singleton id", got.ID)
	}
	if got.MinAdvanceHours != 24 || got.MaxAdvanceDays != 14 || got.MaxWeeklySlots != 10 {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if got.DisableSameDayBooking || got.DisableWeekendBooking {
		t.Errorf("restrictions should default off: %+v", got)
	}
	if !got.ShowCallMessage || got.CallMessageText == "" {
		t.Errorf("call message defaults missing: %+v", got)
	}
}

func TestHandleSettingsUpdateThenGet(t *testing.T) {
	setupTest(t)

	body := `{
		"disable_same_day_booking": true,
		"disable_weekend_booking": true,
		"min_advance_hours": 48,
		"max_advance_days": 30,
		"max_weekly_slots": 5,
		"auto_block_excess_slots": false,
		"show_call_message": false,
		"call_message_text": "Ring the pro shop"
	}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/booking-settings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleSettingsUpdate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/booking-settings", nil)
	w = httptest.NewRecorder()
	HandleSettingsGet(w, req)

	var got appdb.BookingSettings
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.DisableSameDayBooking || !got.DisableWeekendBooking {
		t.Errorf("restrictions not stored: %+v", got)
	}
	if got.MinAdvanceHours != 48 || got.MaxAdvanceDays != 30 || got.MaxWeeklySlots != 5 {
		t.Errorf("limits not stored: %+v", got)
	}
	if got.CallMessageText != "Ring the pro shop" {
		t.Errorf("call_message_text = %q", got.CallMessageText)
	}
}

func TestHandleSettingsUpdate_EmptyCallTextGetsDefault(t *testing.T) {
	setupTest(t)

	body := `{"min_advance_hours": 24, "max_advance_days": 14, "max_weekly_slots": 10}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/booking-settings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleSettingsUpdate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got appdb.BookingSettings
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.CallMessageText != availability.DefaultCallMessage {
		t.Errorf("call_message_text = %q, want default", got.CallMessageText)
	}
}

func TestHandleSettingsUpdate_Validation(t *testing.T) {
	setupTest(t)

	cases := []struct {
		name string
		body string
	}{
		{"negative lead time", `{"min_advance_hours": -1, "max_advance_days": 14}`},
		{"zero advance window", `{"min_advance_hours": 24, "max_advance_days": 0}`},
		{"negative weekly cap", `{"min_advance_hours": 24, "max_advance_days": 14, "max_weekly_slots": -2}`},
		{"unknown field", `{"min_advance_hours": 24, "max_advance_days": 14, "theme": "dark"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/booking-settings", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			HandleSettingsUpdate(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
