package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/stemsi/gradcafe-backend/internal/validator"
)

// Config holds all application configuration.
type Config struct {
	ServerPort  string `validate:"required,numeric"`
	GinMode     string `validate:"oneof=debug release test"`
	LogLevel    string `validate:"required"`
	LogFormat   string `validate:"oneof=pretty json auto"`
	DatabaseURL string `validate:"required"`
	MaxDBConns  int32  `validate:"min=1,max=64"`
	// DBConnectAttempts is how many pings are tried at startup before giving up.
	DBConnectAttempts int           `validate:"min=1,max=30"`
	DBConnectBackoff  time.Duration `validate:"min=0s"`
	// TableName is the single denormalized results table. It is always
	// quoted as an identifier before reaching SQL.
	TableName string `validate:"required,max=63"`
	// DataDir receives the JSON hand-off files written between pipeline stages.
	DataDir string `validate:"required"`
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
	// ActionRatePerMin bounds POST /pull-data and /update-analysis per client IP.
	ActionRatePerMin int `validate:"min=1"`

	Scraper ScraperConfig
}

// ScraperConfig controls the upstream listing client.
type ScraperConfig struct {
	BaseURL         string        `validate:"required,url"`
	ResultsPath     string        `validate:"required,startswith=/"`
	ContactEmail    string        `validate:"omitempty,email"`
	MaxPages        int           `validate:"min=1,max=2000"`
	RequestInterval time.Duration `validate:"min=0s"`
	Timeout         time.Duration `validate:"min=1s"`
	RespectRobots   bool
}

// UserAgent identifies the scraper to the upstream site.
func (s ScraperConfig) UserAgent() string {
	if s.ContactEmail == "" {
		return "Academic Research Bot"
	}
	return fmt.Sprintf("Academic Research Bot (+%s)", s.ContactEmail)
}

// ResultsURL is the absolute listing URL.
func (s ScraperConfig) ResultsURL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.ResultsPath
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "auto"),
		DatabaseURL:       databaseURL(),
		MaxDBConns:        int32(getEnvInt("MAX_DB_CONNS", 4)),
		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		DBConnectBackoff:  time.Duration(getEnvInt("DB_CONNECT_BACKOFF_MS", 1000)) * time.Millisecond,
		TableName:         getEnv("TABLE_NAME", "applicant_data"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		ActionRatePerMin:  getEnvInt("ACTION_RATE_PER_MIN", 30),
		Scraper: ScraperConfig{
			BaseURL:         getEnv("SCRAPER_BASE_URL", "https://www.thegradcafe.com"),
			ResultsPath:     getEnv("SCRAPER_RESULTS_PATH", "/survey/index.php"),
			ContactEmail:    getEnv("SCRAPER_CONTACT_EMAIL", ""),
			MaxPages:        getEnvInt("SCRAPER_MAX_PAGES", 50),
			RequestInterval: time.Duration(getEnvInt("SCRAPER_REQUEST_INTERVAL_MS", 500)) * time.Millisecond,
			Timeout:         time.Duration(getEnvInt("SCRAPER_TIMEOUT_SEC", 30)) * time.Second,
			RespectRobots:   getEnvBool("SCRAPER_RESPECT_ROBOTS", true),
		},
	}
}

// Validate checks the loaded values and returns one message per invalid field.
func (c *Config) Validate() error {
	fields := validator.Struct(c)
	if len(fields) == 0 {
		return nil
	}
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, field+": "+msg)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(parts, "; "))
}

// databaseURL prefers DATABASE_URL and otherwise assembles a URL from the
// discrete DB_* variables so the password never has to live in code.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + getEnv("DB_NAME", "gradcafe_db"),
	}
	user := getEnv("DB_USER", "postgres")
	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		u.User = url.UserPassword(user, pw)
	} else {
		u.User = url.User(user)
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
