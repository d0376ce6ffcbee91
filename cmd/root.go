package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/bookshelf/internal/cache"
	"github.com/lepinkainen/bookshelf/internal/config"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// stdout receives command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the bookshelf application
type CLI struct {
	// Global flags
	Debug      bool   `help:"Enable debug logging"`
	ConfigFile string `short:"c" name:"config-file" help:"Path to config file (default: ./config.yaml or the user config dir)" type:"path"`
	Source     string `help:"Override the configured source (openlibrary or googlebooks)"`
	Database   string `help:"Override the catalog database path" type:"path"`
	NoCache    bool   `help:"Bypass the response cache"`

	Normalize  NormalizeCmd  `cmd:"" help:"Normalize an ISBN-10 or ISBN-13 to ISBN-13"`
	Ping       PingCmd       `cmd:"" help:"Check that the configured source is reachable"`
	Resolve    ResolveCmd    `cmd:"" help:"Resolve and reconcile a book without adding it to the catalog"`
	Lookup     LookupCmd     `cmd:"" help:"Add a book to the catalog by ISBN, optionally wished for by a user"`
	Import     ImportCmd     `cmd:"" help:"Add a book to the catalog by ISBN or source id"`
	Goodreads  GoodreadsCmd  `cmd:"" help:"Import every book in a Goodreads library export"`
	Creator    CreatorCmd    `cmd:"" help:"Resolve a creator profile"`
	Refresh    RefreshCmd    `cmd:"" help:"Re-resolve one catalogued book"`
	RefreshAll RefreshAllCmd `cmd:"" name:"refresh-all" help:"Re-resolve every catalogued book"`
	Cache      cache.Cmd     `cmd:"" help:"Manage the response cache"`
	Conf       ConfigCmd     `cmd:"" name:"config" help:"Inspect the effective configuration"`
}

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration as YAML"`
}

// ConfigShowCmd prints the configuration with secrets masked.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(cfg *config.Config) error {
	shown := *cfg
	if shown.GoogleBooks.APIKey != "" {
		shown.GoogleBooks.APIKey = "REDACTED"
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(shown); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("bookshelf"),
		kong.Description("Resolve books from Open Library or Google Books into a local catalog."),
		kong.UsageOnError(),
	)

	initLogging(cli.Debug)

	cfg, err := initConfig(&cli)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := ctx.Run(cfg); err != nil {
		slog.Error("Command failed", "error", err, "status", shelferrors.HTTPStatus(err))
		os.Exit(1)
	}
}

// initConfig builds the configuration. Global flags override the
// environment (including .env), which overrides the config file.
func initConfig(cli *CLI) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	config.SetDefaults(v)

	v.SetEnvPrefix("BOOKSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("googlebooks.api_key", "BOOKSHELF_GOOGLEBOOKS_API_KEY", "GOOGLE_BOOKS_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if cli.ConfigFile != "" {
		v.SetConfigFile(cli.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "bookshelf"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config file found, using defaults")
	} else {
		slog.Debug("loaded config", "file", v.ConfigFileUsed())
	}

	if cli.Source != "" {
		v.Set("source", cli.Source)
	}
	if cli.Database != "" {
		v.Set("database.path", cli.Database)
	}
	if cli.NoCache {
		v.Set("cache.disabled", true)
	}

	return config.Load(v)
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
