// internal/api/operatinghours/handlers.go
// Admin endpoints for the weekly bookable-hours schedule.
package operatinghours

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/masgolf/teetime/internal/api/apiutil"
	"github.com/masgolf/teetime/internal/availability"
	appdb "github.com/masgolf/teetime/internal/db"
)

var (
	queries     *appdb.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

const hoursQueryTimeout = 5 * time.Second

func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		store = database
	})
}

// GET /api/v1/operating-hours
func HandleHoursList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hoursQueryTimeout)
	defer cancel()

	hours, err := queries.ListOperatingHours(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list operating hours")
		http.Error(w, "Failed to list operating hours", http.StatusInternalServerError)
		return
	}
	if hours == nil {
		hours = []appdb.OperatingHour{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, hours); err != nil {
		logger.Error().Err(err).Msg("Failed to write operating hours response")
	}
}

type windowRequest struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

type replaceDayRequest struct {
	Windows []windowRequest `json:"windows"`
}

// PUT /api/v1/operating-hours/{day_of_week}
// Replaces every window for the weekday in one transaction. An empty windows
// list clears the day, which sends availability to the fallback hourly grid.
func HandleDayReplace(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rawDay := strings.TrimSpace(r.PathValue("day_of_week"))
	day, err := strconv.ParseInt(rawDay, 10, 64)
	if err != nil || day < 0 || day > 6 {
		http.Error(w, "day_of_week must be 0 (Sunday) through 6 (Saturday)", http.StatusBadRequest)
		return
	}

	var req replaceDayRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := make([]appdb.InsertOperatingWindowParams, 0, len(req.Windows))
	for _, win := range req.Windows {
		start, err := availability.NormalizeClock(win.StartTime)
		if err != nil {
			http.Error(w, "start_time must be a valid HH:MM value", http.StatusBadRequest)
			return
		}
		end, err := availability.NormalizeClock(win.EndTime)
		if err != nil {
			http.Error(w, "end_time must be a valid HH:MM value", http.StatusBadRequest)
			return
		}
		startMin, _ := availability.ClockToMinutes(start)
		endMin, _ := availability.ClockToMinutes(end)
		if endMin <= startMin {
			http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
			return
		}
		params = append(params, appdb.InsertOperatingWindowParams{
			DayOfWeek:   day,
			StartTime:   start,
			EndTime:     end,
			IsAvailable: win.IsAvailable,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), hoursQueryTimeout)
	defer cancel()

	err = store.RunInTx(ctx, func(tx *appdb.DB) error {
		if _, err := tx.Queries.DeleteOperatingHoursForDay(ctx, day); err != nil {
			return err
		}
		for _, p := range params {
			if err := tx.Queries.InsertOperatingWindow(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Int64("day_of_week", day).Msg("Failed to replace operating hours")
		http.Error(w, "Failed to replace operating hours", http.StatusInternalServerError)
		return
	}

	hours, err := store.Queries.ListOperatingHours(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list operating hours")
		http.Error(w, "Failed to list operating hours", http.StatusInternalServerError)
		return
	}
	if hours == nil {
		hours = []appdb.OperatingHour{}
	}

	logger.Info().Int64("day_of_week", day).Int("windows", len(params)).Msg("Operating hours replaced")
	if err := apiutil.WriteJSON(w, http.StatusOK, hours); err != nil {
		logger.Error().Err(err).Msg("Failed to write operating hours response")
	}
}
