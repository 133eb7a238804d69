package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Compare  CompareConfig
	Render   RenderConfig
	Database DatabaseConfig
	Server   ServerConfig
	Jobs     JobsConfig
}

// CompareConfig holds the default comparison settings
type CompareConfig struct {
	Mode           string
	Strategy       string
	Highlight      bool
	HighlightColor string
	AllPages       bool
	TrimWhitespace bool
	Normalize      bool
	Exclude        []string
	DPI            int
	ShiftThreshold int
	ImageDir       string
}

// RenderConfig holds rendering-backend configuration
type RenderConfig struct {
	Backend      string // "poppler" | "fitz"
	TextStrategy string // "default" | "plain"
	Pdftoppm     string
	Pdftotext    string
	Pdfinfo      string
	Pdfimages    string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// JobsConfig holds batch execution configuration
type JobsConfig struct {
	Workers    int
	JobTimeout time.Duration
}

// ExcludeSeparator splits PDFCMP_EXCLUDE into individual patterns. A plain
// comma would clash with regex quantifiers such as {1,3}.
const ExcludeSeparator = ";;"

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Compare: CompareConfig{
			Mode:           getEnv("PDFCMP_MODE", "TEXT"),
			Strategy:       getEnv("PDFCMP_STRATEGY", "EXACT"),
			Highlight:      getEnvAsBool("PDFCMP_HIGHLIGHT", false),
			HighlightColor: getEnv("PDFCMP_HIGHLIGHT_COLOR", "magenta"),
			AllPages:       getEnvAsBool("PDFCMP_ALL_PAGES", false),
			TrimWhitespace: getEnvAsBool("PDFCMP_TRIM_WHITESPACE", true),
			Normalize:      getEnvAsBool("PDFCMP_NORMALIZE_UNICODE", false),
			Exclude:        getEnvAsList("PDFCMP_EXCLUDE", ExcludeSeparator),
			DPI:            getEnvAsInt("PDFCMP_DPI", 300),
			ShiftThreshold: getEnvAsInt("PDFCMP_SHIFT_THRESHOLD", 50),
			ImageDir:       getEnv("PDFCMP_IMAGE_DIR", ""),
		},
		Render: RenderConfig{
			Backend:      getEnv("PDFCMP_BACKEND", "poppler"),
			TextStrategy: getEnv("PDFCMP_TEXT_STRATEGY", "default"),
			Pdftoppm:     getEnv("PDFTOPPM", "pdftoppm"),
			Pdftotext:    getEnv("PDFTOTEXT", "pdftotext"),
			Pdfinfo:      getEnv("PDFINFO", "pdfinfo"),
			Pdfimages:    getEnv("PDFIMAGES", "pdfimages"),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Jobs: JobsConfig{
			Workers:    getEnvAsInt("PDFCMP_WORKERS", 4),
			JobTimeout: getEnvAsDuration("PDFCMP_JOB_TIMEOUT", 10*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key, sep string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("PDFCMP_MODE", strings.ToUpper(c.Compare.Mode), OneOf("TEXT", "VISUAL"))
	v.Field("PDFCMP_STRATEGY", strings.ToUpper(c.Compare.Strategy), OneOf("EXACT", "SHIFT_TOLERANT", "SHIFT"))
	v.Field("PDFCMP_DPI", c.Compare.DPI, IntBetween(1, 2400))
	v.Field("PDFCMP_SHIFT_THRESHOLD", c.Compare.ShiftThreshold, IntBetween(0, 1<<30))
	v.Field("PDFCMP_BACKEND", strings.ToLower(c.Render.Backend), OneOf("poppler", "fitz"))
	v.Field("PDFCMP_TEXT_STRATEGY", strings.ToLower(c.Render.TextStrategy), OneOf("default", "plain"))
	v.Field("PDFCMP_WORKERS", c.Jobs.Workers, IntBetween(1, 256))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// ValidateServer checks the settings only the daemon needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Compare.Highlight && c.Compare.ImageDir == "" {
		return NewAppError(CodeConfig, "PDFCMP_HIGHLIGHT needs PDFCMP_IMAGE_DIR", ErrInvalidInput)
	}
	return nil
}
