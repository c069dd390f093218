// Command coupon-import bulk-loads coupons from gzip-compressed JSONL dumps.
// Each line is one coupon object: {"type", "details", "expires_at"}.
//
// Files are decompressed and parsed concurrently; a single writer goroutine
// inserts rows. A bloom filter keyed on the coupon payload drops duplicate
// lines across files without holding every payload in memory.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
	"github.com/monkcommerce/coupon-service/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

type couponLine struct {
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no input files: usage: coupon-import [flags] file1.jsonl.gz ...")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return importFiles(ctx, repository.NewCouponRepository(pool), files)
}

// importFiles streams every input file into a single writer. Both stages run
// under one errgroup, so a failing insert cancels the readers instead of
// leaving them blocked on a full channel.
func importFiles(ctx context.Context, repo coupon.Repository, files []string) error {
	lines := make(chan couponLine, 1024)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)

		readers, ctx := errgroup.WithContext(ctx)
		for _, f := range files {
			readers.Go(readFile(ctx, f, lines))
		}
		if err := readers.Wait(); err != nil {
			return errors.Wrap(err, "read input files")
		}
		return nil
	})
	g.Go(func() error {
		return writeCoupons(ctx, repo, lines)
	})

	return g.Wait()
}

// readFile streams one gzipped JSONL file into the lines channel. Lines that
// fail to parse as a coupon object are logged and skipped.
func readFile(ctx context.Context, path string, lines chan<- couponLine) func() error {
	return func() error {
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

		var total, skipped uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			var line couponLine
			if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Type == "" {
				skipped++
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case lines <- line:
			}

			total++
			if total%progressEvery == 0 {
				slog.Info("read progress", slog.String("file", path), slog.Uint64("lines", total))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete",
			slog.String("file", path),
			slog.Uint64("lines", total),
			slog.Uint64("skipped", skipped),
		)
		return nil
	}
}

// writeCoupons consumes parsed lines, deduplicates them with a bloom filter,
// and inserts the remainder. Payloads whose details do not decode for their
// type are logged and dropped rather than stored.
func writeCoupons(ctx context.Context, repo coupon.Repository, lines <-chan couponLine) error {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var inserted, duplicates, malformed uint64

	for line := range lines {
		key := make([]byte, 0, len(line.Type)+len(line.Details)+16)
		key = append(key, line.Type...)
		key = append(key, line.Details...)
		key = line.ExpiresAt.AppendFormat(key, time.RFC3339)

		if filter.Test(key) {
			duplicates++
			continue
		}
		filter.Add(key)

		typ := coupon.Type(line.Type)
		if _, err := coupon.ParseDetails(typ, line.Details); err != nil {
			malformed++
			slog.Warn("dropping malformed coupon",
				slog.String("type", line.Type),
				slog.String("error", err.Error()),
			)
			continue
		}

		c := &coupon.Coupon{Type: typ, Raw: line.Details, ExpiresAt: line.ExpiresAt}
		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrap(err, "insert coupon")
		}

		inserted++
		if inserted%progressEvery == 0 {
			slog.Info("write progress", slog.Uint64("inserted", inserted))
		}
	}

	slog.Info("write complete",
		slog.Uint64("inserted", inserted),
		slog.Uint64("duplicates", duplicates),
		slog.Uint64("malformed", malformed),
	)
	return nil
}
