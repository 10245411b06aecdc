package common

import (
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	Notifier NotifierConfig
	Render   RenderConfig
}

// StoreConfig holds order-ledger configuration. Backend selects between the
// local XLSX workbook and the hosted sheet gateway.
type StoreConfig struct {
	Backend      string // "workbook" | "sheetapi"
	WorkbookPath string
	SheetName    string
	APIBaseURL   string
	APIKey       string
	Timeout      time.Duration
}

// NotifierConfig holds the messaging gateway configuration. Notification is
// disabled when APIKey is empty.
type NotifierConfig struct {
	APIBase string
	APIKey  string
	GroupID string
	Timeout time.Duration
}

// RenderConfig holds PDF rendering configuration.
type RenderConfig struct {
	LogoPath string
}

// Store backends.
const (
	StoreBackendWorkbook = "workbook"
	StoreBackendSheetAPI = "sheetapi"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:      getEnv("OC_STORE_BACKEND", StoreBackendWorkbook),
			WorkbookPath: getEnv("OC_WORKBOOK_PATH", "ordenes_compra.xlsx"),
			SheetName:    getEnv("OC_SHEET_NAME", "OrdenesCompra"),
			APIBaseURL:   getEnv("SHEETAPI_URL", ""),
			APIKey:       getEnv("SHEETAPI_KEY", ""),
			Timeout:      getEnvAsDuration("SHEETAPI_TIMEOUT", 10*time.Second),
		},
		Notifier: NotifierConfig{
			APIBase: getEnv("WASENDER_API_BASE", "https://www.wasenderapi.com"),
			APIKey:  getEnv("WASENDER_API_KEY", ""),
			GroupID: getEnv("GRUPO_OC_ID", ""),
			Timeout: getEnvAsDuration("WASENDER_TIMEOUT", 60*time.Second),
		},
		Render: RenderConfig{
			LogoPath: getEnv("OC_LOGO_PATH", ""),
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendWorkbook:
		if c.Store.WorkbookPath == "" {
			return NewAppError("CONFIG_ERROR", "OC_WORKBOOK_PATH is required", ErrInvalidInput)
		}
	case StoreBackendSheetAPI:
		if c.Store.APIBaseURL == "" {
			return NewAppError("CONFIG_ERROR", "SHEETAPI_URL is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown OC_STORE_BACKEND: "+c.Store.Backend, ErrInvalidInput)
	}
	if c.Notifier.APIKey != "" && c.Notifier.GroupID == "" {
		return NewAppError("CONFIG_ERROR", "GRUPO_OC_ID is required when WASENDER_API_KEY is set", ErrInvalidInput)
	}
	return nil
}

// NotifierEnabled reports whether a messaging credential was configured.
func (c *Config) NotifierEnabled() bool {
	return c.Notifier.APIKey != ""
}
