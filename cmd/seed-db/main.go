// Command seed-db loads demo data for local development: the product catalog
// from a JSON file, a demo user with two addresses, and a handful of promo
// codes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/schndra/storefront-api/internal/repository"
)

type productJSON struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

const demoUserID = "demo-user"

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
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

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDemoUser(ctx, pool); err != nil {
		return errors.Wrap(err, "seed demo user")
	}
	if err := seedPromoCodes(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promo codes")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	const upsert = `INSERT INTO products (id, title, sku, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, sku = EXCLUDED.sku,
			price = EXCLUDED.price, stock = EXCLUDED.stock,
			updated_at = now()`

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsert, p.ID, p.Title, p.SKU, p.Price, p.Stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedDemoUser(ctx context.Context, pool *pgxpool.Pool) error {
	const upsertUser = `INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err := pool.Exec(ctx, upsertUser, demoUserID, "demo@example.com", "Demo User"); err != nil {
		return errors.Wrap(err, "upsert user")
	}

	const upsertAddress = `INSERT INTO addresses
		(id, user_id, name, line1, city, state, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	addresses := [][]any{
		{"demo-addr-home", demoUserID, "Home", "1 Main St", "Springfield", "IL", "62701", "US", true},
		{"demo-addr-work", demoUserID, "Work", "200 Commerce Ave", "Springfield", "IL", "62702", "US", false},
	}
	for _, a := range addresses {
		if _, err := pool.Exec(ctx, upsertAddress, a...); err != nil {
			return errors.Wrapf(err, "upsert address %s", a[0])
		}
	}

	slog.Info("demo user seeded", slog.String("user_id", demoUserID))
	return nil
}

func seedPromoCodes(ctx context.Context, pool *pgxpool.Pool) error {
	const upsert = `INSERT INTO promo_codes (code, discount_type, value, min_items, description, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			min_items = EXCLUDED.min_items, description = EXCLUDED.description,
			max_uses = EXCLUDED.max_uses, active = TRUE`

	promos := [][]any{
		{"WELCOME10", "percentage", "10", 0, "10% off your first order", 0},
		{"FIVER", "fixed", "5", 0, "$5 off your order", 0},
		{"BULK20", "percentage", "20", 5, "20% off orders of 5+ items", 0},
		{"LAUNCH50", "percentage", "50", 0, "Launch week: 50% off", 100},
	}
	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsert, p...); err != nil {
			return errors.Wrapf(err, "upsert promo %s", p[0])
		}
	}

	slog.Info("promo codes seeded", slog.Int("count", len(promos)))
	return nil
}
