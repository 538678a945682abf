// internal/api/settings/handlers.go
// Admin endpoints for the booking policy singleton.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/masgolf/teetime/internal/api/apiutil"
	"github.com/masgolf/teetime/internal/availability"
	appdb "github.com/masgolf/teetime/internal/db"
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

const settingsQueryTimeout = 5 * time.Second

func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

// GET /api/v1/booking-settings
// Returns the stored singleton, or the defaults when it was never written.
func HandleSettingsGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), settingsQueryTimeout)
	defer cancel()

	row, err := queries.GetBookingSettings(ctx, availability.SettingsID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := availability.DefaultSettings()
			row = appdb.BookingSettings{
				ID:                    availability.SettingsID,
				DisableSameDayBooking: defaults.DisableSameDayBooking,
				DisableWeekendBooking: defaults.DisableWeekendBooking,
				MinAdvanceHours:       int64(defaults.MinAdvanceHours),
				MaxAdvanceDays:        int64(defaults.MaxAdvanceDays),
				MaxWeeklySlots:        int64(defaults.MaxWeeklySlots),
				AutoBlockExcessSlots:  defaults.AutoBlockExcessSlots,
				ShowCallMessage:       defaults.ShowCallMessage,
				CallMessageText:       defaults.CallMessageText,
			}
		} else {
			logger.Error().Err(err).Msg("Failed to load booking settings")
			http.Error(w, "Failed to load booking settings", http.StatusInternalServerError)
			return
		}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, row); err != nil {
		logger.Error().Err(err).Msg("Failed to write settings response")
	}
}

type settingsRequest struct {
	DisableSameDayBooking bool   `json:"disable_same_day_booking"`
	DisableWeekendBooking bool   `json:"disable_weekend_booking"`
	MinAdvanceHours       int64  `json:"min_advance_hours"`
	MaxAdvanceDays        int64  `json:"max_advance_days"`
	MaxWeeklySlots        int64  `json:"max_weekly_slots"`
	AutoBlockExcessSlots  bool   `json:"auto_block_excess_slots"`
	ShowCallMessage       bool   `json:"show_call_message"`
	CallMessageText       string `json:"call_message_text"`
}

// PUT /api/v1/booking-settings
func HandleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req settingsRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MinAdvanceHours < 0 {
		http.Error(w, "min_advance_hours must be 0 or greater", http.StatusBadRequest)
		return
	}
	if req.MaxAdvanceDays <= 0 {
		http.Error(w, "max_advance_days must be greater than 0", http.StatusBadRequest)
		return
	}
	if req.MaxWeeklySlots < 0 {
		http.Error(w, "max_weekly_slots must be 0 or greater", http.StatusBadRequest)
		return
	}
	if req.CallMessageText == "" {
		req.CallMessageText = availability.DefaultCallMessage
	}

	ctx, cancel := context.WithTimeout(r.Context(), settingsQueryTimeout)
	defer cancel()

	updated, err := queries.UpsertBookingSettings(ctx, appdb.UpsertBookingSettingsParams{
		ID:                    availability.SettingsID,
		DisableSameDayBooking: req.DisableSameDayBooking,
		DisableWeekendBooking: req.DisableWeekendBooking,
		MinAdvanceHours:       req.MinAdvanceHours,
		MaxAdvanceDays:        req.MaxAdvanceDays,
		MaxWeeklySlots:        req.MaxWeeklySlots,
		AutoBlockExcessSlots:  req.AutoBlockExcessSlots,
		ShowCallMessage:       req.ShowCallMessage,
		CallMessageText:       req.CallMessageText,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to update booking settings")
		http.Error(w, "Failed to update booking settings", http.StatusInternalServerError)
		return
	}

	logger.Info().Msg("Booking settings updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Msg("Failed to write settings response")
	}
}
