package cfg

import "time"

type Cfg struct {
	// Storage
	CSVPath   string
	FeedsPath string

	// HTTP
	Port          string
	APIAccessKey  string
	MaxUploadSize int64

	// Ingestion
	FetchInterval     time.Duration
	InitialFetchDelay time.Duration
	FetchTimeout      time.Duration
	FetchConcurrency  int
	FetchRateLimit    int
	WorkerCount       int
	UserAgent         string

	// Application metadata
	Timezone  string
	Debug     bool
	LogFormat string
	Version   string
}
