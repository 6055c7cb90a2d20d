// Command signup-import loads gzipped subscriber exports into the signups
// table. Exports are plain text, one address per line; files are scanned in
// parallel and deduplicated with a bloom filter before hitting the database,
// so re-importing overlapping exports stays cheap.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/oddline/storefront/internal/signup"
	"github.com/oddline/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	insertBatch   = 1000
)

const insertSignupSQL = `INSERT INTO signups (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`

func main() {
	var (
		dataDir     string
		databaseURL string
	)
	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.txt.gz subscriber exports")
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
		slog.Error("signup import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("signup import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.txt.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.txt.gz files in %s", dataDir)
	}

	slog.Info("scanning exports", slog.Int("files", len(files)))

	emails, err := collectEmails(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect emails")
	}

	slog.Info("unique valid addresses found", slog.Int("count", len(emails)))
	if len(emails) == 0 {
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

	return writeSignups(ctx, pool, emails)
}

// collectEmails streams every export concurrently, keeping addresses that
// normalize and validate cleanly. The shared bloom filter drops duplicates
// across files; false positives only cost a missed import of an address that
// almost certainly exists in another file, and the ON CONFLICT insert makes
// duplicates that slip through harmless.
func collectEmails(ctx context.Context, files []string) ([]string, error) {
	var (
		mu     sync.Mutex
		seen   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		emails []string
	)
	validate := validator.New()

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(scanExportFile(ctx, i, f, func(email string) {
			email = signup.Normalize(email)
			if validate.Var(email, "required,email") != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !seen.TestString(email) {
				seen.AddString(email)
				emails = append(emails, email)
			}
		}))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return emails, nil
}

func scanExportFile(ctx context.Context, idx int, path string, fn func(email string)) func() error {
	return func() error {
		var count uint64
		if err := streamGzFile(ctx, path, func(line string) {
			fn(line)
			count++
			if count%progressEvery == 0 {
				slog.Info("scan progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d", idx+1)
		}

		slog.Info("scan complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_lines", count),
		)
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
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
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeSignups inserts addresses in batches inside transactions, skipping
// ones already registered.
func writeSignups(ctx context.Context, pool *pgxpool.Pool, emails []string) error {
	slog.Info("writing signups to database", slog.Int("count", len(emails)))

	for start := 0; start < len(emails); start += insertBatch {
		end := min(start+insertBatch, len(emails))

		tx, err := pool.Begin(ctx)
		if err != nil {
			return errors.Wrap(err, "begin tx")
		}
		for _, email := range emails[start:end] {
			if _, err := tx.Exec(ctx, insertSignupSQL, email); err != nil {
				_ = tx.Rollback(ctx)
				return errors.Wrapf(err, "insert %s", email)
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return errors.Wrap(err, "commit tx")
		}

		slog.Info("batch committed", slog.Int("done", end), slog.Int("total", len(emails)))
	}
	return nil
}
