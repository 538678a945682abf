// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/masgolf/teetime/internal/api/apiutil"
	"github.com/masgolf/teetime/internal/availability"
	appdb "github.com/masgolf/teetime/internal/db"
	"github.com/masgolf/teetime/internal/ratelimit"
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once

	// limiter caps booking creates per phone number. Nil disables the check;
	// the per-IP layer lives in the route middleware.
	limiter *ratelimit.Limiter
)

// SetRateLimiter installs the limiter used for per-phone create caps.
func SetRateLimiter(l *ratelimit.Limiter) {
	limiter = l
}

const (
	bookingQueryTimeout = 5 * time.Second
	dateLayout          = "2006-01-02"
)

// nowFunc is swapped in tests to pin the clock.
var nowFunc = time.Now

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

type availableResponse struct {
	Date           string             `json:"date"`
	Duration       int64              `json:"duration"`
	AvailableTimes []string           `json:"available_times"`
	VirtualTimes   []string           `json:"virtual_times"`
	BookedTimes    []string           `json:"booked_times"`
	BlockedTimes   []string           `json:"blocked_times"`
	TotalBookings  int                `json:"total_bookings"`
	TotalVirtual   int                `json:"total_virtual"`
	ShowCall       bool               `json:"show_call_message"`
	CallText       string             `json:"call_message_text"`
	Debug          availability.Debug `json:"_debug"`
}

type restrictedResponse struct {
	Date           string   `json:"date"`
	Duration       int64    `json:"duration"`
	AvailableTimes []string `json:"available_times"`
	Restriction    string   `json:"restriction"`
	Message        string   `json:"message"`
}

// GET /api/v1/bookings/available?date=YYYY-MM-DD&duration=60
func HandleAvailableTimes(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "Internal Server Error", "database not initialized")
		return
	}

	dateStr, date, err := apiutil.ParseDateField(r.URL.Query().Get("date"), "date")
	if err != nil {
		_ = apiutil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	duration, err := apiutil.ParseDurationField(r.URL.Query().Get("duration"), availability.DefaultDuration)
	if err != nil {
		_ = apiutil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	settings := loadSettings(ctx, q, logger)
	result, err := computeForDate(ctx, q, date, int(duration), settings)
	if err != nil {
		logger.Error().Err(err).Str("date", dateStr).Msg("Failed to compute availability")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
		return
	}
	logParseErrors(logger, dateStr, result.ParseErrors)

	if result.Restriction != "" {
		_ = apiutil.WriteJSON(w, http.StatusOK, restrictedResponse{
			Date:           dateStr,
			Duration:       duration,
			AvailableTimes: []string{},
			Restriction:    result.Restriction,
			Message:        result.Message,
		})
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, availableResponse{
		Date:           dateStr,
		Duration:       duration,
		AvailableTimes: result.AvailableTimes,
		VirtualTimes:   result.VirtualTimes,
		BookedTimes:    result.BookedTimes,
		BlockedTimes:   result.BlockedTimes,
		TotalBookings:  result.TotalBookings,
		TotalVirtual:   result.TotalVirtual,
		ShowCall:       settings.ShowCallMessage,
		CallText:       settings.CallMessageText,
		Debug:          result.Debug,
	})
}

// GET /api/v1/bookings/next-available?duration=60&from_date=YYYY-MM-DD
func HandleNextAvailable(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "Internal Server Error", "database not initialized")
		return
	}

	duration, err := apiutil.ParseDurationField(r.URL.Query().Get("duration"), availability.DefaultDuration)
	if err != nil {
		_ = apiutil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	now := nowFunc()
	today := midnight(now)
	settings := loadSettings(ctx, q, logger)

	maxAdvanceDays := settings.MaxAdvanceDays
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = availability.DefaultSettings().MaxAdvanceDays
	}
	maxDate := today.AddDate(0, 0, maxAdvanceDays)

	checkDate := today
	if fromRaw := strings.TrimSpace(r.URL.Query().Get("from_date")); fromRaw != "" {
		_, fromDate, err := apiutil.ParseDateField(fromRaw, "from_date")
		if err != nil {
			_ = apiutil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		checkDate = midnight(fromDate)
	} else if settings.DisableSameDayBooking {
		checkDate = checkDate.AddDate(0, 0, 1)
	} else {
		// Skip days the lead time already rules out entirely.
		earliest := midnight(now.Add(time.Duration(settings.MinAdvanceHours) * time.Hour))
		if earliest.After(checkDate) {
			checkDate = earliest
		}
	}

	for !checkDate.After(maxDate) {
		if settings.DisableWeekendBooking {
			weekday := checkDate.Weekday()
			if weekday == time.Sunday || weekday == time.Saturday {
				checkDate = checkDate.AddDate(0, 0, 1)
				continue
			}
		}

		// A whole day is out of reach while its midnight is closer than the
		// minimum lead time, measured midnight to midnight.
		if int(checkDate.Sub(today).Hours()) < settings.MinAdvanceHours {
			checkDate = checkDate.AddDate(0, 0, 1)
			continue
		}

		result, err := computeForDate(ctx, q, checkDate, int(duration), settings)
		if err != nil {
			logger.Error().Err(err).Str("date", checkDate.Format(dateLayout)).Msg("Failed to compute availability")
			apiutil.WriteJSONError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
			return
		}
		logParseErrors(logger, checkDate.Format(dateLayout), result.ParseErrors)

		if result.Restriction == "" && len(result.AvailableTimes) > 0 {
			_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{
				"date":            checkDate.Format(dateLayout),
				"available_times": result.AvailableTimes,
				"formatted_date":  checkDate.Format("Monday, January 2, 2006"),
			})
			return
		}

		checkDate = checkDate.AddDate(0, 0, 1)
	}

	apiutil.WriteJSONError(w, http.StatusNotFound, "No available dates found", "Please call us to book a time.")
}

type bookingRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int64  `json:"duration"`
	Notes    string `json:"notes"`
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	req, err := decodeBookingRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if limiter != nil {
		if result := limiter.CheckPhone(phone); !result.Allowed {
			ratelimit.LogRateLimitExceeded("booking_create", phone, ratelimit.GetClientIP(r, false), result.Reason)
			http.Error(w, "Too many bookings from this number. Please try again later.", http.StatusTooManyRequests)
			return
		}
	}
	dateStr, date, err := apiutil.ParseDateField(req.Date, "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	clock, err := availability.NormalizeClock(req.Time)
	if err != nil {
		http.Error(w, "time must be a valid HH:MM value", http.StatusBadRequest)
		return
	}
	duration := req.Duration
	if duration == 0 {
		duration = availability.DefaultDuration
	}
	if duration < 0 {
		http.Error(w, "duration must be a positive number of minutes", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	settings := loadSettings(ctx, q, logger)
	result, err := computeForDate(ctx, q, date, int(duration), settings)
	if err != nil {
		logger.Error().Err(err).Str("date", dateStr).Msg("Failed to check slot availability")
		http.Error(w, "Failed to check slot availability", http.StatusInternalServerError)
		return
	}
	logParseErrors(logger, dateStr, result.ParseErrors)

	if result.Restriction != "" {
		http.Error(w, result.Message, http.StatusConflict)
		return
	}
	if !containsClock(result.AvailableTimes, clock) {
		http.Error(w, fmt.Sprintf("time %s is not available on %s", clock, dateStr), http.StatusConflict)
		return
	}

	created, err := q.CreateBooking(ctx, appdb.CreateBookingParams{
		Date:     dateStr,
		Time:     clock,
		Duration: duration,
		Name:     strings.TrimSpace(req.Name),
		Phone:    phone,
		Notes:    apiutil.ToNullString(req.Notes),
	})
	if err != nil {
		// The availability check above is only a hint; the unique index on
		// active (date, time) rows is the real arbiter.
		if appdb.IsUniqueViolation(err) {
			http.Error(w, fmt.Sprintf("time %s was just booked on %s", clock, dateStr), http.StatusConflict)
			return
		}
		logger.Error().Err(err).Str("date", dateStr).Str("time", clock).Msg("Failed to create booking")
		http.Error(w, "Failed to create booking", http.StatusInternalServerError)
		return
	}

	if limiter != nil {
		limiter.RecordPhone(phone)
	}
	logger.Info().Int64("booking_id", created.ID).Str("date", dateStr).Str("time", clock).Msg("Booking created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("booking_id", created.ID).Msg("Failed to write booking response")
	}
}

// GET /api/v1/bookings?date=YYYY-MM-DD
func HandleBookingsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	dateStr, _, err := apiutil.ParseDateField(r.URL.Query().Get("date"), "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	bookings, err := q.ListBookingsByDate(ctx, dateStr)
	if err != nil {
		logger.Error().Err(err).Str("date", dateStr).Msg("Failed to list bookings")
		http.Error(w, "Failed to list bookings", http.StatusInternalServerError)
		return
	}
	if bookings == nil {
		bookings = []appdb.Booking{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, bookings); err != nil {
		logger.Error().Err(err).Str("date", dateStr).Msg("Failed to write booking list response")
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// PATCH /api/v1/bookings/{id}/status
func HandleBookingStatusUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookingID, err := bookingIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !validStatus(req.Status) {
		http.Error(w, "status must be one of pending, confirmed, cancelled, completed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	affected, err := q.UpdateBookingStatus(ctx, appdb.UpdateBookingStatusParams{
		ID:     bookingID,
		Status: req.Status,
	})
	if err != nil {
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to update booking status")
		http.Error(w, "Failed to update booking status", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	updated, err := q.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to fetch booking")
		http.Error(w, "Failed to fetch booking", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to write booking response")
	}
}

// computeForDate loads the rows for the date and runs the availability
// pipeline against them.
func computeForDate(ctx context.Context, q *appdb.Queries, date time.Time, duration int, settings availability.Settings) (availability.Result, error) {
	dateStr := date.Format(dateLayout)

	bookings, err := q.ListActiveBookingsByDate(ctx, dateStr)
	if err != nil {
		return availability.Result{}, fmt.Errorf("load bookings: %w", err)
	}
	blocks, err := q.ListBlocksByDate(ctx, dateStr)
	if err != nil {
		return availability.Result{}, fmt.Errorf("load blocks: %w", err)
	}
	hours, err := q.ListAvailableHoursByWeekday(ctx, int64(date.Weekday()))
	if err != nil {
		return availability.Result{}, fmt.Errorf("load operating hours: %w", err)
	}

	in := availability.Input{
		Date:     date,
		Duration: duration,
		Now:      nowFunc(),
		Settings: settings,
	}
	for _, b := range bookings {
		in.Bookings = append(in.Bookings, availability.BookingRow{Time: b.Time, Duration: int(b.Duration)})
	}
	for _, b := range blocks {
		in.Blocks = append(in.Blocks, availability.BlockRow{Time: b.Time, Duration: int(b.Duration), IsVirtual: b.IsVirtual})
	}
	for _, h := range hours {
		in.Hours = append(in.Hours, availability.Window{StartTime: h.StartTime, EndTime: h.EndTime})
	}

	return availability.Compute(in), nil
}

// loadSettings returns the stored policy or the defaults when the singleton is
// missing or unreadable. A read failure never fails the request.
func loadSettings(ctx context.Context, q *appdb.Queries, logger *zerolog.Logger) availability.Settings {
	row, err := q.GetBookingSettings(ctx, availability.SettingsID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn().Err(err).Msg("Failed to load booking settings, using defaults")
		}
		return availability.DefaultSettings()
	}
	settings := availability.Settings{
		DisableSameDayBooking: row.DisableSameDayBooking,
		DisableWeekendBooking: row.DisableWeekendBooking,
		MinAdvanceHours:       int(row.MinAdvanceHours),
		MaxAdvanceDays:        int(row.MaxAdvanceDays),
		MaxWeeklySlots:        int(row.MaxWeeklySlots),
		AutoBlockExcessSlots:  row.AutoBlockExcessSlots,
		ShowCallMessage:       row.ShowCallMessage,
		CallMessageText:       row.CallMessageText,
	}
	if settings.CallMessageText == "" {
		settings.CallMessageText = availability.DefaultCallMessage
	}
	return settings
}

func logParseErrors(logger *zerolog.Logger, date string, errs []error) {
	for _, err := range errs {
		logger.Warn().Err(err).Str("date", date).Msg("Dropped malformed time row")
	}
}

func decodeBookingRequest(r *http.Request) (bookingRequest, error) {
	if apiutil.IsJSONRequest(r) {
		var req bookingRequest
		return req, apiutil.DecodeJSON(r, &req)
	}

	if err := r.ParseForm(); err != nil {
		return bookingRequest{}, fmt.Errorf("invalid form data")
	}

	req := bookingRequest{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Phone: strings.TrimSpace(r.FormValue("phone")),
		Date:  strings.TrimSpace(r.FormValue("date")),
		Time:  strings.TrimSpace(r.FormValue("time")),
		Notes: strings.TrimSpace(r.FormValue("notes")),
	}
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		duration, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || duration <= 0 {
			return bookingRequest{}, apiutil.FieldError{Field: "duration", Reason: "must be a positive number of minutes"}
		}
		req.Duration = duration
	}
	return req, nil
}

func bookingIDFromRequest(r *http.Request) (int64, error) {
	pathID := strings.TrimSpace(r.PathValue("id"))
	if pathID == "" {
		return 0, fmt.Errorf("invalid booking ID")
	}
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid booking ID")
	}
	return id, nil
}

func validStatus(status string) bool {
	switch status {
	case appdb.BookingStatusPending, appdb.BookingStatusConfirmed,
		appdb.BookingStatusCancelled, appdb.BookingStatusCompleted:
		return true
	}
	return false
}

func containsClock(clocks []string, clock string) bool {
	for _, c := range clocks {
		if c == clock {
			return true
		}
	}
	return false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func loadQueries() *appdb.Queries {
	return queries
}
