package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/daehee87/fuzzing-bot/internal/types"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DefaultCoordinatorURL = "http://daehee.kr:7810"
	DefaultOSSFuzzRepo    = "https://github.com/google/oss-fuzz"
	DefaultSessionTime    = time.Hour
	DefaultBuildCacheTTL  = 7 * 24 * time.Hour
	DefaultDiskQuota      = 5 << 30 // one project per 5 GB of free disk
)

type AppConfig struct {
	CoordinatorURL string
	WorkDir        string // holds the build cache files and the local crash store
	OSSFuzzDir     string // corpus checkout, <WorkDir>/oss-fuzz unless overridden
	OSSFuzzRepo    string
	BotID          string // raw identifier, hashed before any network use
	LogLevel       string
	ServiceName    string

	Session  SessionDefaults
	Campaign CampaignConfig

	RedisUrl     string // optional, shared build cache
	DatabaseURL  string // optional, crash ledger
	RabbitMQURL  string // optional, report events
	MetricsAddr  string // optional, prometheus listener
	OtlpEndpoint string // optional, enables telemetry
}

// SessionDefaults are used until the first successful config sync.
type SessionDefaults struct {
	SessionDuration time.Duration
	BuildCacheTTL   time.Duration
}

type CampaignConfig struct {
	DiskQuotaPerProject  uint64
	LoopInterval         time.Duration
	HTTPTimeout          time.Duration
	Sanitizer            string
	UseSudo              bool
	AllowUnauthenticated bool
	ExcludedProjects     []string
}

func LoadConfig() *AppConfig {
	// use a temporary logger for now
	logger := zap.NewExample().Named("config")

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	workDir := os.Getenv("WORK_DIR")
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			logger.Fatal("failed to resolve working directory", zap.Error(err))
		}
		workDir = cwd
	}
	workDir, _ = filepath.Abs(workDir)

	config := &AppConfig{
		CoordinatorURL: strings.TrimRight(os.Getenv("COORDINATOR_URL"), "/"),
		WorkDir:        workDir,
		OSSFuzzDir:     os.Getenv("OSS_FUZZ_DIR"),
		OSSFuzzRepo:    os.Getenv("OSS_FUZZ_REPO"),
		BotID:          os.Getenv("BOT_ID"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		ServiceName:    os.Getenv("SERVICE_NAME"),
		Session: SessionDefaults{
			SessionDuration: parseSeconds(os.Getenv("SESSION_TIME"), DefaultSessionTime),
			BuildCacheTTL:   parseSeconds(os.Getenv("BUILD_CACHE_TIMEOUT"), DefaultBuildCacheTTL),
		},
		Campaign: CampaignConfig{
			DiskQuotaPerProject:  parseUint(os.Getenv("DISK_QUOTA_PER_PROJECT"), DefaultDiskQuota),
			LoopInterval:         parseDuration(os.Getenv("LOOP_INTERVAL"), 5*time.Second),
			HTTPTimeout:          parseDuration(os.Getenv("HTTP_TIMEOUT"), time.Minute),
			Sanitizer:            os.Getenv("SANITIZER"),
			UseSudo:              parseBool(os.Getenv("USE_SUDO"), true),
			AllowUnauthenticated: parseBool(os.Getenv("ALLOW_UNAUTHENTICATED"), true),
			ExcludedProjects:     parseList(os.Getenv("EXCLUDED_PROJECTS")),
		},
		RedisUrl:     os.Getenv("REDIS_URL"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RabbitMQURL:  os.Getenv("RABBITMQ_URL"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		OtlpEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if config.CoordinatorURL == "" {
		config.CoordinatorURL = DefaultCoordinatorURL
	}
	if config.OSSFuzzDir == "" {
		config.OSSFuzzDir = filepath.Join(config.WorkDir, "oss-fuzz")
	}
	if config.OSSFuzzRepo == "" {
		config.OSSFuzzRepo = DefaultOSSFuzzRepo
	}
	if config.LogLevel == "" {
		config.LogLevel = "info" // Set default log level
	}
	if config.ServiceName == "" {
		config.ServiceName = "fuzzbot" // Default service name
	}
	if config.Campaign.Sanitizer == "" {
		config.Campaign.Sanitizer = "address"
	}
	if config.Campaign.DiskQuotaPerProject == 0 {
		config.Campaign.DiskQuotaPerProject = DefaultDiskQuota
	}

	return config
}

// parseSeconds accepts either a plain number of seconds (as the coordinator
// sends them) or a Go duration string. Anything under a second falls back to
// defaultVal.
func parseSeconds(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		if d, ok := types.DurationFromSeconds(secs); ok {
			return d
		}
		return defaultVal
	}
	d := parseDuration(val, defaultVal)
	if d < time.Second {
		return defaultVal
	}
	return min(d, types.MaxConfigDuration)
}

func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseUint(val string, defaultVal uint64) uint64 {
	if val == "" {
		return defaultVal
	}
	i, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func parseBool(val string, defaultVal bool) bool {
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
