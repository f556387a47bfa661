// Command seed-db loads the starter catalog, reward definitions and the
// admin API key into the database. Safe to re-run: everything is upserted.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sawamura722/cardcapital/internal/domain/auth"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

type rewardJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"pointsRequired"`
	Extra          bool   `json:"extra"`
}

type seedFiles struct {
	products string
	rewards  string
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
		files        seedFiles
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&files.products, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&files.rewards, "rewards-file", "db/seed/rewards.json", "path to rewards JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or CARD_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CARD_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CARD_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CARD_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CARD_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, files seedFiles, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	rewards := postgres.NewRewardRepository(pool)
	profiles := postgres.NewProfileRepository(pool)
	apikeys := postgres.NewAPIKeyRepository(pool)

	if err := seedProducts(ctx, products, files.products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedRewards(ctx, rewards, files.rewards); err != nil {
		return errors.Wrap(err, "seed rewards")
	}

	if err := seedProfiles(ctx, profiles); err != nil {
		return errors.Wrap(err, "seed profiles")
	}

	if err := seedAPIKey(ctx, apikeys, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, path string) error {
	slog.Info("reading products file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	// Distinct categories first so product FKs resolve.
	seen := make(map[string]bool)
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		if err := repo.UpsertCategory(ctx, &product.Category{ID: p.Category, Name: p.Category}); err != nil {
			return errors.Wrapf(err, "upsert category %s", p.Category)
		}
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.UpsertByName(ctx, &product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			CategoryID:  p.Category,
			ImageURL:    p.Image,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedRewards(ctx context.Context, repo *postgres.RewardRepository, path string) error {
	slog.Info("reading rewards file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read rewards file")
	}

	var rewards []rewardJSON
	if err := json.Unmarshal(data, &rewards); err != nil {
		return errors.Wrap(err, "parse rewards JSON")
	}

	slog.Info("upserting rewards", slog.Int("count", len(rewards)))

	for _, rw := range rewards {
		if err := repo.UpsertDefinition(ctx, &reward.Definition{
			ID:             rw.ID,
			Name:           rw.Name,
			Description:    rw.Description,
			PointsRequired: rw.PointsRequired,
			Extra:          rw.Extra,
		}); err != nil {
			return errors.Wrapf(err, "upsert reward %s", rw.ID)
		}

		slog.Info("upserted reward", slog.String("id", rw.ID), slog.String("name", rw.Name))
	}

	return nil
}

func seedProfiles(ctx context.Context, repo *postgres.ProfileRepository) error {
	slog.Info("seeding demo profiles")

	demo := []profile.Profile{
		{ID: "demo-alex", FirstName: "Alex", LastName: "Chan", Email: "alex@example.com"},
		{ID: "demo-riley", FirstName: "Riley", LastName: "Nakorn", Email: "riley@example.com", Subscribed: true},
	}

	for i := range demo {
		if err := repo.Upsert(ctx, &demo[i]); err != nil {
			return errors.Wrapf(err, "upsert profile %s", demo[i].ID)
		}

		slog.Info("upserted profile", slog.String("id", demo[i].ID))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := repo.UpsertKey(ctx, &auth.APIKeyInfo{
		ID:      "admin",
		KeyHash: keyHash,
		Name:    "Admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "admin"))

	return nil
}
