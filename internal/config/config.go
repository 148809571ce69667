package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// AI providers.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	AI        AIConfig
	Inventory InventoryConfig
	Health    HealthConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// The channel is disabled when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	ManagerID     string
}

// Enabled reports whether the WhatsApp channel is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != ""
}

// SheetsConfig contains configuration required to export to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether spreadsheet export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule     string
	ReminderSchedule string
	SnapshotSchedule string
	Timezone         string
}

// AIConfig holds settings for narrative analysis providers.
type AIConfig struct {
	Provider     string
	AnthropicKey string
	GeminiKey    string
	Model        string
}

// InventoryConfig names the stock items touched by daily log capture.
type InventoryConfig struct {
	FeedItemID string
	EggItemID  string
}

// HealthConfig points at the default vaccination program.
type HealthConfig struct {
	ProgramFile string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: strings.ToLower(getenvWithDefault("LOG_LEVEL", "info")),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getenvWithDefault("STORAGE_DRIVER", StorageMongo)),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "flockboard"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerID:     os.Getenv("WHATSAPP_MANAGER_ID"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule:     getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			ReminderSchedule: getenvWithDefault("REMINDER_CRON_SCHEDULE", "0 7 * * *"),
			SnapshotSchedule: getenvWithDefault("SNAPSHOT_CRON_SCHEDULE", "55 23 * * *"),
			Timezone:         getenvWithDefault("TIMEZONE", "Africa/Conakry"),
		},
		AI: AIConfig{
			Provider:     strings.ToLower(getenvWithDefault("AI_PROVIDER", ProviderNone)),
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			GeminiKey:    os.Getenv("GEMINI_API_KEY"),
			Model:        os.Getenv("AI_MODEL"),
		},
		Inventory: InventoryConfig{
			FeedItemID: getenvWithDefault("FEED_ITEM_ID", "feed"),
			EggItemID:  getenvWithDefault("EGG_ITEM_ID", "eggs"),
		},
		Health: HealthConfig{
			ProgramFile: os.Getenv("VACCINATION_PROGRAM_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case StorageMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	switch c.AI.Provider {
	case ProviderNone:
	case ProviderAnthropic:
		if c.AI.AnthropicKey == "" {
			return errors.New("ANTHROPIC_API_KEY must be provided when AI_PROVIDER=anthropic")
		}
	case ProviderGemini:
		if c.AI.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY must be provided when AI_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider)
	}

	if c.Inventory.FeedItemID == "" || c.Inventory.EggItemID == "" {
		return errors.New("FEED_ITEM_ID and EGG_ITEM_ID must not be empty")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
