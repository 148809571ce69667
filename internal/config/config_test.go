package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080"},
		Storage:   StorageConfig{Driver: StorageMemory},
		Reporting: ReportingConfig{CronSchedule: "0 20 * * 5", Timezone: "UTC"},
		AI:        AIConfig{Provider: ProviderNone},
		Inventory: InventoryConfig{FeedItemID: "feed", EggItemID: "eggs"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("minimal memory config is valid", func(t *testing.T) {
		assert.NoError(t, baseConfig().Validate())
	})

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown storage driver", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Storage.Driver = "postgres"
		assert.ErrorContains(t, cfg.Validate(), "STORAGE_DRIVER")
	})

	t.Run("mongo requires uri", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Storage.Driver = StorageMongo
		cfg.MongoDB.DBName = "flockboard"
		assert.ErrorContains(t, cfg.Validate(), "MONGODB_URI")
	})

	t.Run("whatsapp needs phone number once enabled", func(t *testing.T) {
		cfg := baseConfig()
		cfg.WhatsApp.AccessToken = "token"
		assert.ErrorContains(t, cfg.Validate(), "WHATSAPP_PHONE_NUMBER_ID")
	})

	t.Run("sheets settings come in pairs", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Sheets.CredentialsPath = "/tmp/creds.json"
		assert.Error(t, cfg.Validate())
	})

	t.Run("gemini provider requires key", func(t *testing.T) {
		cfg := baseConfig()
		cfg.AI.Provider = ProviderGemini
		assert.ErrorContains(t, cfg.Validate(), "GEMINI_API_KEY")

		cfg.AI.GeminiKey = "key"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("AI_PROVIDER", "none")
	t.Setenv("WHATSAPP_TOKEN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "feed", cfg.Inventory.FeedItemID)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoadVaccinationProgram(t *testing.T) {
	t.Run("default when no file", func(t *testing.T) {
		program, err := LoadVaccinationProgram("")
		require.NoError(t, err)
		assert.Equal(t, "standard-layer", program.Name)
		assert.NotEmpty(t, program.Steps)
	})

	t.Run("yaml file sorted by age", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "program.yaml")
		content := `name: broiler-short
steps:
  - age_day: 14
    vaccine: Gumboro
    method: drinking water
  - age_day: 7
    vaccine: Newcastle
    method: eye drop
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		program, err := LoadVaccinationProgram(path)
		require.NoError(t, err)
		assert.Equal(t, "broiler-short", program.Name)
		require.Len(t, program.Steps, 2)
		assert.Equal(t, 7, program.Steps[0].AgeDay)
		assert.Equal(t, "Newcastle", program.Steps[0].Vaccine)
	})

	t.Run("rejects steps without vaccine", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "program.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"x","steps":[{"age_day":3}]}`), 0o600))

		_, err := LoadVaccinationProgram(path)
		assert.ErrorContains(t, err, "vaccine must be provided")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadVaccinationProgram(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
