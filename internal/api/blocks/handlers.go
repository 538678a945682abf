// internal/api/blocks/handlers.go
// Admin endpoints for time blocks and virtual reservation markers.
package blocks

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
	queriesOnce sync.Once
)

const blockQueryTimeout = 5 * time.Second

func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

// GET /api/v1/blocks?date=YYYY-MM-DD
func HandleBlocksList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	dateStr, _, err := apiutil.ParseDateField(r.URL.Query().Get("date"), "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), blockQueryTimeout)
	defer cancel()

	blocks, err := queries.ListBlocksByDate(ctx, dateStr)
	if err != nil {
		logger.Error().Err(err).Str("date", dateStr).Msg("Failed to list blocks")
		http.Error(w, "Failed to list blocks", http.StatusInternalServerError)
		return
	}
	if blocks == nil {
		blocks = []appdb.BookingBlock{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, blocks); err != nil {
		logger.Error().Err(err).Str("date", dateStr).Msg("Failed to write block list response")
	}
}

type blockRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Duration  int64  `json:"duration"`
	IsVirtual bool   `json:"is_virtual"`
}

// POST /api/v1/blocks
func HandleBlockCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req blockRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dateStr, _, err := apiutil.ParseDateField(req.Date, "date")
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

	ctx, cancel := context.WithTimeout(r.Context(), blockQueryTimeout)
	defer cancel()

	created, err := queries.CreateBlock(ctx, appdb.CreateBlockParams{
		Date:      dateStr,
		Time:      clock,
		Duration:  duration,
		IsVirtual: req.IsVirtual,
	})
	if err != nil {
		logger.Error().Err(err).Str("date", dateStr).Str("time", clock).Msg("Failed to create block")
		http.Error(w, "Failed to create block", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("block_id", created.ID).Str("date", dateStr).Str("time", clock).Bool("is_virtual", created.IsVirtual).Msg("Block created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("block_id", created.ID).Msg("Failed to write block response")
	}
}

// DELETE /api/v1/blocks/{id}
func HandleBlockDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	pathID := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid block ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), blockQueryTimeout)
	defer cancel()

	deleted, err := queries.DeleteBlock(ctx, id)
	if err != nil {
		logger.Error().Err(err).Int64("block_id", id).Msg("Failed to delete block")
		http.Error(w, "Failed to delete block", http.StatusInternalServerError)
		return
	}
	if deleted == 0 {
		http.Error(w, "Block not found", http.StatusNotFound)
		return
	}

	logger.Info().Int64("block_id", id).Msg("Block deleted")
	w.WriteHeader(http.StatusNoContent)
}
