package config

import (
	"fmt"
	"os"
	"strconv"
)

// BettingConfig agrupa os limites de aposta.
type BettingConfig struct {
	MinBetAmount   float64
	MaxBetAmount   float64
	MaxBetsPerHour int
	// WindowSeconds is how long after the estimated match start bets are accepted.
	WindowSeconds int
}

// DetectionConfig agrupa os parâmetros de detecção de partida.
type DetectionConfig struct {
	PollIntervalSeconds int
	BatchSize           int
	// ConfidenceThreshold gates the "validated" notification, not the tracking itself.
	ConfidenceThreshold int
	MaxMatchDuration    int // seconds; hard ceiling before forced cleanup
	APIRequestsPerMin   int
}

type DatabaseConfig struct {
	Type       string // "sqlite" ou "postgres"
	ConnString string
}

type Config struct {
	DiscordToken string
	LogChannelID string
	SteamAPIKey  string
	APIPort      string
	PublicURL    string // endpoint baked into generated GSI configs
	Env          string

	Betting   BettingConfig
	Detection DetectionConfig
	Database  DatabaseConfig
}

// Load monta a configuração a partir das variáveis de ambiente.
// Chame godotenv.Load() antes, como no main.
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		LogChannelID: os.Getenv("LOG_CHANNEL_ID"),
		SteamAPIKey:  os.Getenv("STEAM_API_KEY"),
		APIPort:      getEnv("API_PORT", ":8081"),
		PublicURL:    getEnv("PUBLIC_URL", "http://localhost:8081"),
		Env:          getEnv("ENV", "local"),
		Betting: BettingConfig{
			MinBetAmount:   getEnvFloat("MIN_BET_AMOUNT", 0.01),
			MaxBetAmount:   getEnvFloat("MAX_BET_AMOUNT", 1.0),
			MaxBetsPerHour: getEnvInt("MAX_BETS_PER_HOUR", 5),
			WindowSeconds:  getEnvInt("BETTING_WINDOW_SECONDS", 300),
		},
		Detection: DetectionConfig{
			PollIntervalSeconds: getEnvInt("MATCH_DETECTION_POLL_INTERVAL", 15),
			BatchSize:           getEnvInt("MATCH_DETECTION_BATCH_SIZE", 5),
			ConfidenceThreshold: getEnvInt("MATCH_DETECTION_CONFIDENCE", 80),
			MaxMatchDuration:    getEnvInt("MAX_MATCH_DURATION", 7200),
			APIRequestsPerMin:   getEnvInt("API_RATE_LIMIT", 30),
		},
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN not found in environment variables")
	}
	if cfg.SteamAPIKey == "" {
		return nil, fmt.Errorf("STEAM_API_KEY not found in environment variables")
	}

	if err := setupDatabaseConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupDatabaseConfig(cfg *Config) error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	switch dbType {
	case "postgres":
		connString := os.Getenv("DATABASE_URL")
		if connString == "" {
			return fmt.Errorf("DATABASE_URL is required for PostgreSQL. Set it in .env file")
		}
		cfg.Database = DatabaseConfig{Type: "postgres", ConnString: connString}
	case "sqlite":
		fallthrough
	default:
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "./goodgains.db"
		}
		cfg.Database = DatabaseConfig{Type: "sqlite", ConnString: path}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
