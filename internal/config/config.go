package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App   AppConfig
	Local LocalModelConfig
	Cloud CloudModelConfig
	Vault VaultConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type LocalModelConfig struct {
	Endpoint       string // host:port or full URL of the local inference server
	Model          string
	TimeoutSeconds int
	ProposalCount  int
	RetryAttempts  int // extra immediate attempts for refused connections
}

type CloudModelConfig struct {
	BaseURL        string // empty means the provider default
	APIKey         string // OpenRouter key, "sk-or-" prefixed
	Model          string
	TimeoutSeconds int
}

type VaultConfig struct {
	NotesDir string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Local: LocalModelConfig{
			Endpoint:       getEnv("LOCAL_ENDPOINT", "http://localhost:11434"),
			Model:          getEnv("LOCAL_MODEL", "llama3"),
			TimeoutSeconds: getEnvAsInt("LOCAL_TIMEOUT_SECONDS", 120),
			ProposalCount:  getEnvAsInt("PROPOSAL_COUNT", 3),
			RetryAttempts:  getEnvAsInt("RETRY_ATTEMPTS", 1),
		},
		Cloud: CloudModelConfig{
			BaseURL:        getEnv("CLOUD_BASE_URL", ""),
			APIKey:         getEnv("CLOUD_API_KEY", ""),
			Model:          getEnv("CLOUD_MODEL", ""),
			TimeoutSeconds: getEnvAsInt("CLOUD_TIMEOUT_SECONDS", 30),
		},
		Vault: VaultConfig{
			NotesDir: getEnv("NOTES_DIR", "notes"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
