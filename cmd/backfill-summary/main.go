package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/pos/backend/internal/infrastructure/cache"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/persistence"
	"github.com/pos/backend/internal/infrastructure/scheduler"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxBackfillDays caps a single run to one year of rollups.
const maxBackfillDays = 366

func main() {
	var (
		fromRaw  string
		toRaw    string
		logLevel string
		dryRun   bool
	)
	flag.StringVar(&fromRaw, "from", "", "First day to recompute (YYYY-MM-DD, report timezone)")
	flag.StringVar(&toRaw, "to", "", "Last day to recompute, inclusive (default: same as -from)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&dryRun, "dry-run", false, "List the days that would be recomputed and exit")
	flag.Usage = printUsage
	flag.Parse()

	if fromRaw == "" {
		printUsage()
		os.Exit(1)
	}
	if toRaw == "" {
		toRaw = fromRaw
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	loc, err := cfg.Report.Location()
	if err != nil {
		log.Fatal("Invalid report timezone", zap.Error(err))
	}

	days, err := dayRange(fromRaw, toRaw, loc)
	if err != nil {
		log.Fatal("Invalid date range", zap.Error(err))
	}
	if dryRun {
		for _, day := range days {
			fmt.Println("  -", day.Format(time.DateOnly))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel), cfg.Database.SlowQuery)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	// The rollup lock is shared with running servers when redis is configured.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
	}

	executor := scheduler.NewRollupExecutor(
		persistence.NewGormOrderRepository(db.DB),
		persistence.NewGormDailySummaryRepository(db.DB),
		scheduler.NewLocker(redisClient),
		cfg.Rollup.LockTTL,
		loc,
		log,
	)

	failed := 0
	for _, day := range days {
		if ctx.Err() != nil {
			log.Warn("Backfill interrupted", zap.String("next_date", day.Format(time.DateOnly)))
			os.Exit(1)
		}
		if err := executor.Execute(ctx, scheduler.NewJob(day, 0)); err != nil {
			failed++
			log.Error("Rollup failed", zap.String("date", day.Format(time.DateOnly)), zap.Error(err))
		}
	}

	log.Info("Backfill finished",
		zap.Int("days", len(days)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		os.Exit(1)
	}
}

// dayRange expands an inclusive YYYY-MM-DD range into local midnights.
func dayRange(fromRaw, toRaw string, loc *time.Location) ([]time.Time, error) {
	from, err := time.ParseInLocation(time.DateOnly, fromRaw, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid -from %q: %w", fromRaw, err)
	}
	to, err := time.ParseInLocation(time.DateOnly, toRaw, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid -to %q: %w", toRaw, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("-to %s is before -from %s", toRaw, fromRaw)
	}

	var days []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if len(days) == maxBackfillDays {
			return nil, fmt.Errorf("range exceeds %d days", maxBackfillDays)
		}
		days = append(days, day)
	}
	return days, nil
}

func printUsage() {
	fmt.Println(`POS Daily Summary Backfill

Recomputes daily_sales_summary rows from the orders table.

Usage:
  backfill-summary -from YYYY-MM-DD [-to YYYY-MM-DD] [flags]

Flags:
  -from string          First day to recompute
  -to string            Last day to recompute, inclusive (default: -from)
  -dry-run              Print the days and exit
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  POS_DATABASE_*, POS_REDIS_*, POS_REPORT_TIMEZONE

Examples:
  backfill-summary -from 2026-01-01 -to 2026-01-31`)
}
