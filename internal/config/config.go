package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/deepdefend/deepdefend-cli/pkg/logger"
)

// Config holds every process-wide setting. It is resolved exactly once and is
// read-only afterwards; callers receive it by value.
type Config struct {
	// APIBase is the analysis service endpoint with no trailing slash.
	APIBase string

	ArchivePath string
	ExportDir   string
	TempDir     string

	MaxUploadBytes int64
	HTTPTimeout    time.Duration

	HistoryLimit    int
	RefreshInterval time.Duration
}

const (
	// DefaultAPIBase matches the service's relative mount point. Point
	// DEEPDEFEND_API_BASE at a full origin when the CLI runs off-box.
	DefaultAPIBase = "/api"

	DefaultArchiveFile  = "deepdefend.sqlite3"
	DefaultMaxUploadMB  = 2
	DefaultHistoryLimit = 10
)

var (
	loaded Config
	once   sync.Once
)

// Load resolves the configuration from .env (if present) and the environment.
// The first call wins; later calls return the same snapshot.
func Load() Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			logger.Debugf("no .env file found, using system environment")
		}

		loaded = Config{
			APIBase:         strings.TrimRight(getEnv("DEEPDEFEND_API_BASE", DefaultAPIBase), "/"),
			ArchivePath:     getEnv("DEEPDEFEND_ARCHIVE_PATH", DefaultArchiveFile),
			ExportDir:       getEnv("DEEPDEFEND_EXPORT_DIR", "."),
			TempDir:         getEnv("DEEPDEFEND_TEMP_DIR", os.TempDir()),
			MaxUploadBytes:  int64(getEnvInt("DEEPDEFEND_MAX_UPLOAD_MB", DefaultMaxUploadMB)) << 20,
			HTTPTimeout:     time.Duration(getEnvInt("DEEPDEFEND_HTTP_TIMEOUT", 300)) * time.Second,
			HistoryLimit:    getEnvInt("DEEPDEFEND_HISTORY_LIMIT", DefaultHistoryLimit),
			RefreshInterval: time.Duration(getEnvInt("DEEPDEFEND_REFRESH_SECONDS", 10)) * time.Second,
		}
		if loaded.APIBase == "" {
			loaded.APIBase = DefaultAPIBase
		}
	})
	return loaded
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}
