// Command seed-db loads sample coupons into the database for local
// development. Without -coupons-file it uses the embedded seed data.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/monkcommerce/coupon-service/db"
	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
	"github.com/monkcommerce/coupon-service/internal/repository"
)

type couponJSON struct {
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func main() {
	var (
		databaseURL string
		couponsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&couponsFile, "coupons-file", "", "path to coupons JSON file (default: embedded seed data)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, couponsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, couponsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data := db.SeedCoupons
	if couponsFile != "" {
		slog.Info("reading coupons file", slog.String("path", couponsFile))
		data, err = os.ReadFile(couponsFile)
		if err != nil {
			return errors.Wrap(err, "read coupons file")
		}
	}

	var seeds []couponJSON
	if err := json.Unmarshal(data, &seeds); err != nil {
		return errors.Wrap(err, "parse coupons JSON")
	}

	slog.Info("inserting coupons", slog.Int("count", len(seeds)))

	repo := repository.NewCouponRepository(pool)
	for _, s := range seeds {
		c := &coupon.Coupon{
			Type:      coupon.Type(s.Type),
			Raw:       s.Details,
			ExpiresAt: s.ExpiresAt,
		}
		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "insert %s coupon", s.Type)
		}

		slog.Info("inserted coupon",
			slog.Int64("id", c.ID),
			slog.String("type", s.Type),
			slog.Time("expires_at", s.ExpiresAt),
		)
	}

	return nil
}
