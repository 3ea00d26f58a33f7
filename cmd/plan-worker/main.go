package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepencare/homecare-scheduler/internal/config"
	"github.com/deepencare/homecare-scheduler/internal/db"
	redisclient "github.com/deepencare/homecare-scheduler/internal/redis"
	"github.com/deepencare/homecare-scheduler/internal/scheduling"
)

// plan-worker keeps a draft plan ready for the upcoming week: every tick it
// generates the next week's plan unless one was already generated or confirmed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := zerolog.New(os.Stderr)
		errLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "plan-worker").Logger()
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("plan-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisWeekLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, cfg.Policy, logger)

	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping plan-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	weekStart := nextMonday(time.Now().UTC())

	start := time.Now()
	plan, advisories, generated, err := svc.EnsureDraftPlan(runCtx, weekStart)
	switch {
	case errors.Is(err, scheduling.ErrPlanAlreadyConfirmed):
		logger.Debug().Time("week_start", weekStart).Msg("week already confirmed, nothing to do")
	case errors.Is(err, scheduling.ErrGenerationInProgress):
		logger.Debug().Time("week_start", weekStart).Msg("another generation in progress, skipping")
	case err != nil:
		logger.Error().Err(err).Time("week_start", weekStart).Msg("plan generation error")
	case !generated:
		logger.Debug().Str("plan_id", plan.ID.String()).Time("week_start", weekStart).Msg("draft already exists, nothing to do")
	default:
		logger.Info().
			Str("plan_id", plan.ID.String()).
			Time("week_start", weekStart).
			Int("advisories", len(advisories)).
			Dur("took", time.Since(start)).
			Msg("draft plan generated")
		for _, a := range advisories {
			logger.Warn().Str("plan_id", plan.ID.String()).Msg(a)
		}
	}
}

// nextMonday returns the Monday strictly after t, at UTC midnight.
func nextMonday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	d = d.AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
