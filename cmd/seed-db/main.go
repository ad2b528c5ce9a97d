// Command seed-db loads the product catalog, the default coupons and the
// API keys into the database.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-orders/internal/domain/auth"
	"github.com/xenking/kart-orders/internal/domain/coupon"
	"github.com/xenking/kart-orders/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	productsFile string
	apiKey       string
	adminAPIKey  string
	apiKeyPepper string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&opts.adminAPIKey, "admin-api-key", "", "optional admin API key (or KART_SEED_ADMIN_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	opts.fromEnv()
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.apiKey == "" {
		lg.Fatal("API key is required: set --api-key or KART_SEED_API_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func (o *options) fromEnv() {
	for _, v := range []struct {
		dst *string
		env string
	}{
		{&o.databaseURL, "DATABASE_URL"},
		{&o.apiKey, "KART_SEED_API_KEY"},
		{&o.adminAPIKey, "KART_SEED_ADMIN_API_KEY"},
		{&o.apiKeyPepper, "KART_API_KEY_PEPPER"},
	} {
		if *v.dst == "" {
			*v.dst = os.Getenv(v.env)
		}
	}
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, lg, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	keys := postgres.NewAPIKeyRepository(pool)
	pepper := []byte(opts.apiKeyPepper)
	if err := seedAPIKey(ctx, lg, keys, pepper, auth.APIKeyInfo{
		ID:     "default",
		Name:   "Default storefront key",
		Scopes: []string{auth.ScopeOrdersWrite},
	}, opts.apiKey); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	if opts.adminAPIKey != "" {
		if err := seedAPIKey(ctx, lg, keys, pepper, auth.APIKeyInfo{
			ID:     "admin",
			Name:   "Back office key",
			Scopes: []string{auth.ScopeOrdersWrite, auth.ScopeOrdersAdmin},
		}, opts.adminAPIKey); err != nil {
			return errors.Wrap(err, "seed admin api key")
		}
	}
	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	products, err := decodeProducts(data)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	lg.Info("Upserting products", zap.Int("count", len(products)), zap.String("path", path))
	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return nil
}

var challengeCoupons = []coupon.Rule{
	{
		Code:         "HAPPYHOURS",
		DiscountType: coupon.DiscountPercentage,
		Value:        decimal.NewFromInt(18),
		Description:  "Happy Hours: 18% off entire order",
	},
	{
		Code:         "BUYGETONE",
		DiscountType: coupon.DiscountFreeLowest,
		Value:        decimal.Zero,
		MinItems:     2,
		Description:  "Buy one get one: lowest priced item free",
	},
}

func seedCoupons(ctx context.Context, lg *zap.Logger, repo *postgres.CouponRepository) error {
	for _, c := range challengeCoupons {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		lg.Info("Upserted coupon", zap.String("code", c.Code), zap.String("description", c.Description))
	}
	return nil
}

func seedAPIKey(
	ctx context.Context,
	lg *zap.Logger,
	repo *postgres.APIKeyRepository,
	pepper []byte,
	info auth.APIKeyInfo,
	key string,
) error {
	info.KeyHash = auth.HashKey(pepper, key)
	if err := repo.Upsert(ctx, info); err != nil {
		return errors.Wrapf(err, "upsert api key %s", info.ID)
	}
	lg.Info("Upserted API key", zap.String("id", info.ID), zap.Strings("scopes", info.Scopes))
	return nil
}
