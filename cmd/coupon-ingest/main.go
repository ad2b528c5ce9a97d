// Command coupon-ingest discovers valid promo codes from the coupon base
// dumps and upserts them as coupon rules. A code is valid when it appears
// in at least two of the files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-orders/internal/domain/coupon"
	"github.com/xenking/kart-orders/internal/storage/postgres"
)

func main() {
	var (
		pattern     string
		databaseURL string
		capacity    uint
		dryRun      bool
	)
	flag.StringVar(&pattern, "files", "data/couponbase*.gz", "glob of gzip-compressed coupon files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "bloom-capacity", 120_000_000, "expected number of codes per file")
	flag.BoolVar(&dryRun, "dry-run", false, "only report the discovered codes")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, pattern, databaseURL, capacity, dryRun); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
	lg.Info("Coupon ingest completed")
}

func run(ctx context.Context, lg *zap.Logger, pattern, databaseURL string, capacity uint, dryRun bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "glob files")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least two coupon files, %q matched %d", pattern, len(files))
	}
	slices.Sort(files)

	d := &discoverer{lg: lg, capacity: capacity, fpRate: 0.001}
	codes, err := d.Discover(ctx, files)
	if err != nil {
		return err
	}
	lg.Info("Valid codes found", zap.Int("count", len(codes)))
	if dryRun || len(codes) == 0 {
		for _, code := range codes {
			lg.Info("Code", zap.String("code", code), zap.String("rule", string(ruleFor(code).DiscountType)))
		}
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return writeCoupons(ctx, lg, postgres.NewCouponRepository(pool), codes)
}

type couponWriter interface {
	Upsert(ctx context.Context, rule coupon.Rule) error
}

func writeCoupons(ctx context.Context, lg *zap.Logger, repo couponWriter, codes []string) error {
	for i, code := range codes {
		if err := repo.Upsert(ctx, ruleFor(code)); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}
		if (i+1)%100 == 0 || i+1 == len(codes) {
			lg.Info("Write progress", zap.Int("written", i+1), zap.Int("total", len(codes)))
		}
	}
	return nil
}
