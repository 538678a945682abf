package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/masgolf/teetime/internal/db"
)

const (
	defaultStalePendingHours = 48
	expiryJobTimeout         = 2 * time.Minute
)

// RegisterExpiryJob schedules the sweep that cancels pending bookings nobody
// confirmed. Freed slots become bookable again on the next availability read.
func RegisterExpiryJob(database *db.DB, stalePendingHours int) error {
	if database == nil {
		return fmt.Errorf("expiry job requires database")
	}
	if stalePendingHours <= 0 {
		stalePendingHours = defaultStalePendingHours
	}

	jobName := "stale_pending_expiry"
	cronExpr := "*/30 * * * *"
	jobLogger := log.With().
		Str("component", "stale_pending_expiry_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Int("stale_pending_hours", stalePendingHours).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), expiryJobTimeout)
		defer cancel()

		cutoff := time.Now().UTC().
			Add(-time.Duration(stalePendingHours) * time.Hour).
			Format("2006-01-02 15:04:05")

		cancelled, err := database.Queries.ExpireStalePendingBookings(ctx, cutoff)
		if err != nil {
			jobLogger.Error().Err(err).Str("cutoff", cutoff).Msg("Failed to expire stale pending bookings")
			return
		}
		if cancelled > 0 {
			jobLogger.Info().Int64("cancelled", cancelled).Str("cutoff", cutoff).Msg("Expired stale pending bookings")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add stale pending expiry job: %w", err)
	}

	jobLogger.Info().Msg("Stale pending expiry job registered")
	return nil
}
