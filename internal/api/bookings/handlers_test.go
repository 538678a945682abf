package bookings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appdb "github.com/masgolf/teetime/internal/db"
	"github.com/masgolf/teetime/internal/ratelimit"
	"github.com/masgolf/teetime/internal/testutil"
)

// fixedNow is a Tuesday morning; fixture dates below are relative to it.
var fixedNow = time.Date(2026, time.March, 10, 10, 0, 0, 0, time.Local)

const (
	openDate    = "2026-03-12" // Thursday, two days out
	openWeekday = 4
)

func setupTest(t *testing.T) *appdb.DB {
	t.Helper()

	database := testutil.NewTestDB(t)
	prevQueries, prevNow := queries, nowFunc
	queries = database.Queries
	nowFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		queries, nowFunc = prevQueries, prevNow
	})
	return database
}

func seedOpenDay(t *testing.T, database *appdb.DB) {
	t.Helper()
	ctx := context.Background()
	for _, w := range []appdb.InsertOperatingWindowParams{
		{DayOfWeek: openWeekday, StartTime: "10:00", EndTime: "12:00", IsAvailable: true},
		{DayOfWeek: openWeekday, StartTime: "14:00", EndTime: "16:00", IsAvailable: true},
	} {
		if err := database.Queries.InsertOperatingWindow(ctx, w); err != nil {
			t.Fatalf("seed operating window: %v", err)
		}
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleAvailableTimes_MissingDate(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/available", nil)
	w := httptest.NewRecorder()
	HandleAvailableTimes(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleAvailableTimes_InvalidDate(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/available?date=March+12", nil)
	w := httptest.NewRecorder()
	HandleAvailableTimes(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleAvailableTimes_OpenDay(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/available?date="+openDate, nil)
	w := httptest.NewRecorder()
	HandleAvailableTimes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp availableResponse
	decodeBody(t, w, &resp)

	if resp.Date != openDate {
		t.Errorf("date = %q, want %q", resp.Date, openDate)
	}
	if resp.Duration != 60 {
		t.Errorf("duration = %d, want 60", resp.Duration)
	}
	want := []string{"10:00", "14:00"}
	if len(resp.AvailableTimes) != len(want) {
		t.Fatalf("available_times = %v, want %v", resp.AvailableTimes, want)
	}
	for i, clock := range want {
		if resp.AvailableTimes[i] != clock {
			t.Errorf("available_times[%d] = %q, want %q", i, resp.AvailableTimes[i], clock)
		}
	}
	if resp.TotalBookings != 0 {
		t.Errorf("total_bookings = %d, want 0", resp.TotalBookings)
	}
	if !resp.ShowCall || resp.CallText == "" {
		t.Errorf("call message defaults not applied: show=%v text=%q", resp.ShowCall, resp.CallText)
	}
}

func TestHandleAvailableTimes_BookingAndBlockExcluded(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)
	ctx := context.Background()

	if _, err := database.Queries.CreateBooking(ctx, appdb.CreateBookingParams{
		Date: openDate, Time: "10:00", Duration: 60, Name: "Kim", Phone: "+821012345678",
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	if _, err := database.Queries.CreateBlock(ctx, appdb.CreateBlockParams{
		Date: openDate, Time: "14:00", Duration: 60,
	}); err != nil {
		t.Fatalf("seed block: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/available?date="+openDate, nil)
	w := httptest.NewRecorder()
	HandleAvailableTimes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp availableResponse
	decodeBody(t, w, &resp)

	if len(resp.AvailableTimes) != 0 {
		t.Errorf("available_times = %v, want empty", resp.AvailableTimes)
	}
	if len(resp.BookedTimes) != 1 || resp.BookedTimes[0] != "10:00" {
		t.Errorf("booked_times = %v, want [10:00]", resp.BookedTimes)
	}
	if len(resp.BlockedTimes) != 1 || resp.BlockedTimes[0] != "14:00" {
		t.Errorf("blocked_times = %v, want [14:00]", resp.BlockedTimes)
	}
	if resp.TotalBookings != 1 {
		t.Errorf("total_bookings = %d, want 1", resp.TotalBookings)
	}
	if resp.Debug.BlocksFromDB != 1 {
		t.Errorf("_debug.blocks_from_db = %d, want 1", resp.Debug.BlocksFromDB)
	}
}

func TestHandleAvailableTimes_RestrictedWeekend(t *testing.T) {
	database := setupTest(t)
	ctx := context.Background()

	if _, err := database.Queries.UpsertBookingSettings(ctx, appdb.UpsertBookingSettingsParams{
		ID:                    "00000000-0000-0000-0000-000000000001",
		DisableWeekendBooking: true,
		MinAdvanceHours:       24,
		MaxAdvanceDays:        14,
		MaxWeeklySlots:        10,
		ShowCallMessage:       true,
		CallMessageText:       "Call us",
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	// 2026-03-14 is a Saturday.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/available?date=2026-03-14", nil)
	w := httptest.NewRecorder()
	HandleAvailableTimes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	decodeBody(t, w, &resp)

	if resp["restriction"] != "weekend_disabled" {
		t.Errorf("restriction = %v, want weekend_disabled", resp["restriction"])
	}
	if times, ok := resp["available_times"].([]any); !ok || len(times) != 0 {
		t.Errorf("available_times = %v, want []", resp["available_times"])
	}
	if _, present := resp["booked_times"]; present {
		t.Error("restricted response must not carry booked_times")
	}
}

func TestHandleNextAvailable_FindsFirstOpenDay(t *testing.T) {
	setupTest(t)

	// No windows configured anywhere, so the first day past the 24h lead
	// time opens on the fallback hourly grid.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/next-available", nil)
	w := httptest.NewRecorder()
	HandleNextAvailable(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Date           string   `json:"date"`
		AvailableTimes []string `json:"available_times"`
		FormattedDate  string   `json:"formatted_date"`
	}
	decodeBody(t, w, &resp)

	if resp.Date != "2026-03-11" {
		t.Errorf("date = %q, want 2026-03-11", resp.Date)
	}
	if len(resp.AvailableTimes) == 0 {
		t.Error("expected at least one available time")
	}
	if !strings.Contains(resp.FormattedDate, "Wednesday") {
		t.Errorf("formatted_date = %q, want a Wednesday", resp.FormattedDate)
	}
}

func TestHandleNextAvailable_NoOpenDates(t *testing.T) {
	database := setupTest(t)
	ctx := context.Background()

	// Every weekday window exists but is blocked off entirely, and the
	// fallback grid never runs because hours are configured.
	for day := int64(0); day <= 6; day++ {
		if err := database.Queries.InsertOperatingWindow(ctx, appdb.InsertOperatingWindowParams{
			DayOfWeek: day, StartTime: "10:00", EndTime: "11:00", IsAvailable: true,
		}); err != nil {
			t.Fatalf("seed operating window: %v", err)
		}
	}
	for offset := 0; offset <= 15; offset++ {
		date := fixedNow.AddDate(0, 0, offset).Format("2006-01-02")
		if _, err := database.Queries.CreateBlock(ctx, appdb.CreateBlockParams{
			Date: date, Time: "10:00", Duration: 60,
		}); err != nil {
			t.Fatalf("seed block: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/next-available", nil)
	w := httptest.NewRecorder()
	HandleNextAvailable(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingCreate(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)

	body := `{"name":"Kim Minjun","phone":"010-1234-5678","date":"` + openDate + `","time":"10:00","duration":60}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleBookingCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created appdb.Booking
	decodeBody(t, w, &created)
	if created.Status != appdb.BookingStatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.Phone != "+821012345678" {
		t.Errorf("phone = %q, want E.164 +821012345678", created.Phone)
	}

	// Same slot again conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	HandleBookingCreate(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on rebooked slot, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingCreate_FormEncoded(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)

	form := "name=Lee&phone=01098765432&date=" + openDate + "&time=14:00"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	HandleBookingCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created appdb.Booking
	decodeBody(t, w, &created)
	if created.Duration != 60 {
		t.Errorf("duration = %d, want default 60", created.Duration)
	}
	if created.Time != "14:00" {
		t.Errorf("time = %q, want 14:00", created.Time)
	}
}

func TestHandleBookingCreate_Validation(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"phone":"010-1234-5678","date":"` + openDate + `","time":"10:00"}`},
		{"bad phone", `{"name":"Kim","phone":"123","date":"` + openDate + `","time":"10:00"}`},
		{"bad date", `{"name":"Kim","phone":"010-1234-5678","date":"soon","time":"10:00"}`},
		{"bad time", `{"name":"Kim","phone":"010-1234-5678","date":"` + openDate + `","time":"25:99"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			HandleBookingCreate(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleBookingCreate_PhoneRateLimited(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)

	prev := limiter
	l := ratelimit.New(&ratelimit.Config{
		CreateCooldown:   time.Millisecond,
		CreateMaxPerHour: 1,
		CreateMaxIPHour:  100,
	})
	limiter = l
	t.Cleanup(func() {
		limiter = prev
		l.Close()
	})

	post := func(clock string) *httptest.ResponseRecorder {
		body := `{"name":"Kim","phone":"010-1234-5678","date":"` + openDate + `","time":"` + clock + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		HandleBookingCreate(w, req)
		return w
	}

	if w := post("10:00"); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := post("14:00"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second create: expected 429, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingCreate_UnavailableSlot(t *testing.T) {
	database := setupTest(t)
	seedOpenDay(t, database)

	// 11:00 is not a window start, so it is never offered.
	body := `{"name":"Kim","phone":"010-1234-5678","date":"` + openDate + `","time":"11:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleBookingCreate(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingsList(t *testing.T) {
	database := setupTest(t)
	ctx := context.Background()

	for _, clock := range []string{"10:00", "14:00"} {
		if _, err := database.Queries.CreateBooking(ctx, appdb.CreateBookingParams{
			Date: openDate, Time: clock, Duration: 60, Name: "Kim", Phone: "+821012345678",
		}); err != nil {
			t.Fatalf("seed booking: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?date="+openDate, nil)
	w := httptest.NewRecorder()
	HandleBookingsList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var bookings []appdb.Booking
	decodeBody(t, w, &bookings)
	if len(bookings) != 2 {
		t.Fatalf("got %d bookings, want 2", len(bookings))
	}
	if bookings[0].Time != "10:00" || bookings[1].Time != "14:00" {
		t.Errorf("bookings out of order: %q, %q", bookings[0].Time, bookings[1].Time)
	}
}

func TestHandleBookingStatusUpdate(t *testing.T) {
	database := setupTest(t)
	ctx := context.Background()

	created, err := database.Queries.CreateBooking(ctx, appdb.CreateBookingParams{
		Date: openDate, Time: "10:00", Duration: 60, Name: "Kim", Phone: "+821012345678",
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/1/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	HandleBookingStatusUpdate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated appdb.Booking
	decodeBody(t, w, &updated)
	if updated.ID != created.ID || updated.Status != appdb.BookingStatusConfirmed {
		t.Errorf("got id=%d status=%q, want id=%d status=confirmed", updated.ID, updated.Status, created.ID)
	}
}

func TestHandleBookingStatusUpdate_NotFound(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/999/status", strings.NewReader(`{"status":"cancelled"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "999")
	w := httptest.NewRecorder()
	HandleBookingStatusUpdate(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingStatusUpdate_InvalidStatus(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/1/status", strings.NewReader(`{"status":"archived"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	HandleBookingStatusUpdate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
