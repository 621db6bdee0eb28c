package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	CSVPath   string `long:"csv-path" env:"CSV_PATH" default:"./data/cpes.csv" description:"Path to the CPE records CSV file"`
	FeedsPath string `long:"feeds-path" env:"FEEDS_PATH" description:"Path to the feed sources file (defaults to feeds.yml next to the CSV)"`

	// HTTP configuration
	Port          string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	MaxUploadSize int64  `long:"max-upload-size" env:"MAX_UPLOAD_SIZE" default:"10485760" description:"Maximum proof image size in bytes"`

	// Ingestion configuration
	FetchInterval     time.Duration `long:"fetch-interval" env:"FETCH_INTERVAL" default:"6h" description:"Interval between scheduled feed fetches"`
	InitialFetchDelay time.Duration `long:"initial-fetch-delay" env:"INITIAL_FETCH_DELAY" default:"10s" description:"Delay before the first scheduled fetch"`
	FetchTimeout      time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout for a single feed request"`
	FetchConcurrency  int           `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"4" description:"Number of feeds fetched in parallel"`
	FetchRateLimit    int           `long:"fetch-rate-limit" env:"FETCH_RATE_LIMIT" default:"6" description:"Manual fetches allowed per minute"`
	WorkerCount       int           `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background ingestion workers"`
	UserAgent         string        `long:"user-agent" env:"USER_AGENT" default:"CPE Tracker/1.0" description:"User agent string for HTTP requests"`

	// Application metadata
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

var globalCfg *Cfg

// Load reads an optional .env file, then flags and environment.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		CSVPath:           raw.CSVPath,
		FeedsPath:         cmp.Or(raw.FeedsPath, filepath.Join(filepath.Dir(raw.CSVPath), "feeds.yml")),
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		MaxUploadSize:     raw.MaxUploadSize,
		FetchInterval:     raw.FetchInterval,
		InitialFetchDelay: raw.InitialFetchDelay,
		FetchTimeout:      raw.FetchTimeout,
		FetchConcurrency:  max(raw.FetchConcurrency, 1),
		FetchRateLimit:    raw.FetchRateLimit,
		WorkerCount:       max(raw.WorkerCount, 1),
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		LogFormat:         raw.LogFormat,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
