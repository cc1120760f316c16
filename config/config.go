package config

import (
	"log"
	"os"
	"strconv"
)

// Config carries the environment-driven settings read once at startup.
// Token signing settings (JWT_SECRET, JWT_TTL_HOURS) are read by the utils
// package at call time so that godotenv has already run.
type Config struct {
	Port        string
	MongoURI    string
	MongoDB     string
	UploadDir   string
	FixturePath string
	StatsSource string // "live" or "fixture"
	FEOrigin    string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "pos_vendas"),
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		FixturePath: getEnv("FIXTURE_PATH", "./fixtures/dashboard.json"),
		StatsSource: getEnv("STATS_SOURCE", "live"),
		FEOrigin:    getEnv("FE_ORIGIN", "http://localhost:3000"),
	}

	if cfg.StatsSource != "live" && cfg.StatsSource != "fixture" {
		log.Printf("Invalid STATS_SOURCE %q, falling back to \"live\"", cfg.StatsSource)
		cfg.StatsSource = "live"
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		log.Printf("Invalid PORT %q, falling back to 8080", cfg.Port)
		cfg.Port = "8080"
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Println("JWT_SECRET not set. Using the development default; set JWT_SECRET in production.")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
