// Command catalog-ingest builds the product catalog from vendor feed dumps.
//
// Each vendor ships a gzip-compressed JSON-lines feed of card listings. A
// listing is trusted only when at least two vendors carry it; single-vendor
// listings are treated as noise (typos, delisted cards, scraper artifacts)
// and skipped. Matching across feeds uses per-file bloom filters so the full
// feeds never have to fit in memory at once.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/storage/postgres"
)

const (
	bloomCapacity = 5_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 500_000
)

// listing is one card entry from a vendor feed.
type listing struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
}

// feedResult holds the candidate listings found in a single feed during
// pass 2, keyed by listing name, with a bitmask of the feeds the name
// appeared in.
type feedResult struct {
	listings map[string]listing
	masks    map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing vendorN.jsonl.gz feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("vendor%d.jsonl.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: one bloom filter of listing names per feed, built concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: keep listings whose name appears in 2+ feeds.
	slog.Info("pass 2: cross-checking feeds")

	verified, err := findVerifiedListings(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find verified listings")
	}

	slog.Info("verified listings found", slog.Int("count", len(verified)))

	if len(verified) == 0 {
		slog.Info("no listings to ingest")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeListings(ctx, postgres.NewProductRepository(pool), verified); err != nil {
		return errors.Wrap(err, "write listings to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamFeed(ctx, path, func(l listing) {
			filter.AddString(l.Name)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("listings", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_listings", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findVerifiedListings re-streams each feed and checks names against OTHER
// feeds' bloom filters. A listing is verified if its name appears in 2 or
// more feeds; when several feeds carry it, the lowest price wins.
func findVerifiedListings(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]listing, error) {
	results := make([]feedResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(findCandidatesInFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks and listings from all feeds.
	merged := make(map[string]listing)
	masks := make(map[string]uint)
	for _, r := range results {
		for name, mask := range r.masks {
			masks[name] |= mask
		}
		for name, l := range r.listings {
			if prev, ok := merged[name]; !ok || l.Price.LessThan(prev.Price) {
				merged[name] = l
			}
		}
	}

	var verified []listing
	for name, mask := range masks {
		if bits.OnesCount(mask) >= 2 {
			verified = append(verified, merged[name])
		}
	}

	return verified, nil
}

func findCandidatesInFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []feedResult,
) func() error {
	return func() error {
		res := feedResult{
			listings: make(map[string]listing),
			masks:    make(map[string]uint),
		}
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamFeed(ctx, path, func(l listing) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("listings", count),
				)
			}

			// Check whether this name appears in any OTHER feed's filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(l.Name) {
					res.masks[l.Name] |= feedBit
					res.listings[l.Name] = l
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_listings", count),
			slog.Int("candidates", len(res.listings)),
		)

		results[idx] = res
		return nil
	}
}

// streamFeed opens a gzip-compressed JSON-lines feed and calls fn for each
// well-formed listing. Malformed lines are skipped, not fatal: vendor dumps
// routinely contain a few truncated records.
func streamFeed(ctx context.Context, path string, fn func(listing)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l, err := parseListing(scanner.Bytes())
		if err != nil || l.Name == "" {
			continue
		}
		fn(l)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// parseListing decodes a single feed line.
func parseListing(line []byte) (listing, error) {
	var l listing
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			l.Name = v
		case "description":
			v, err := d.Str()
			if err != nil {
				return err
			}
			l.Description = v
		case "price":
			v, err := d.Str()
			if err != nil {
				return err
			}
			p, err := decimal.NewFromString(v)
			if err != nil {
				return err
			}
			l.Price = p
		case "stock":
			v, err := d.Int()
			if err != nil {
				return err
			}
			l.Stock = v
		case "image":
			v, err := d.Str()
			if err != nil {
				return err
			}
			l.ImageURL = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return listing{}, err
	}
	return l, nil
}

// writeListings upserts all verified listings into the catalog.
func writeListings(ctx context.Context, repo *postgres.ProductRepository, listings []listing) error {
	slog.Info("writing listings to database", slog.Int("count", len(listings)))

	for i, l := range listings {
		p := &product.Product{
			ID:          uuid.New().String(),
			Name:        l.Name,
			Description: l.Description,
			Price:       l.Price,
			Stock:       l.Stock,
			ImageURL:    l.ImageURL,
		}
		if err := repo.UpsertByName(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert listing %q", l.Name)
		}

		if (i+1)%100 == 0 || i+1 == len(listings) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(listings)))
		}
	}

	return nil
}
