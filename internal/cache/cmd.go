package cache

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/lepinkainen/bookshelf/internal/config"
)

// Open opens the cache described by cfg, using the per-user default
// location when no path is configured.
func Open(cfg config.CacheConfig) (*CacheDB, error) {
	path := cfg.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return NewCacheDB(path, WithExpiryDays(cfg.ExpiryDays))
}

// Cmd groups the cache maintenance subcommands.
type Cmd struct {
	Clear ClearCmd `cmd:"" help:"Delete every cached response"`
	Sweep SweepCmd `cmd:"" help:"Delete expired cached responses"`
	Stats StatsCmd `cmd:"" help:"Show cache size and entry counts"`
}

// ClearCmd deletes every cached response.
type ClearCmd struct{}

func (c *ClearCmd) Run(cfg *config.Config) error {
	db, err := Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	slog.Info("Clearing cache", "database", db.Path())
	if _, err := db.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// SweepCmd deletes expired entries. Opening the cache already sweeps, so
// this only reports what the sweep did.
type SweepCmd struct{}

func (s *SweepCmd) Run(cfg *config.Config) error {
	db, err := Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.ClearExpired()
	if err != nil {
		return err
	}
	slog.Info("Cache swept", "database", db.Path(), "rows_deleted", rows)
	return nil
}

// StatsCmd prints entry counts and the on-disk size.
type StatsCmd struct {
	out io.Writer `kong:"-"`
}

func (s *StatsCmd) Run(cfg *config.Config) error {
	db, err := Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	stats, err := db.Stats()
	if err != nil {
		return err
	}

	out := s.out
	if out == nil {
		out = os.Stdout
	}
	expiry := "never"
	if days := db.ExpiryDays(); days > 0 {
		expiry = fmt.Sprintf("%d days", days)
	}
	_, err = fmt.Fprintf(out, "path:      %s\nsize:      %s\nentries:   %d\nexpired:   %d\npermanent: %d\nexpiry:    %s\n",
		db.Path(), humanize.Bytes(uint64(stats.SizeBytes)), stats.Entries, stats.Expired, stats.Permanent, expiry)
	return err
}
