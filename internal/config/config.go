// Package config carga la configuración del servicio desde variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	Port string

	// Storage: memory | postgres | sqlite. Sin valor explícito se usa postgres
	// si hay DSN, memory si no.
	Storage     string
	DatabaseURL string
	SQLitePath  string

	LogLevel  string
	LogFormat string
	AppName   string

	CORSOrigins []string

	// MaxBodyBytes limita el body de cada request (MAX_BODY_BYTES, default 1 MiB).
	MaxBodyBytes int64

	// AuthJWTSecret vacío = modo dev (headers X-Debug-User-ID).
	AuthJWTSecret string
	AuthIssuer    string

	// PetNameCaseSensitive cambia la política de duplicados de nombres.
	PetNameCaseSensitive bool
}

func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", os.Getenv("DB_DSN")),
		SQLitePath:    getEnv("SQLITE_PATH", "vet-clinic.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		AppName:       getEnv("APP_NAME", "vet-clinic-records"),
		CORSOrigins:   splitCSV(os.Getenv("CORS_ORIGINS")),
		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		AuthIssuer:    os.Getenv("AUTH_JWT_ISSUER"),
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE")))
	if cfg.Storage == "" {
		cfg.Storage = StorageMemory
		if cfg.DatabaseURL != "" {
			cfg.Storage = StoragePostgres
		}
	}

	cfg.MaxBodyBytes = 1 << 20
	if v := strings.TrimSpace(os.Getenv("MAX_BODY_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("MAX_BODY_BYTES must be a positive integer, got %q", v)
		}
		cfg.MaxBodyBytes = n
	}

	if v := strings.TrimSpace(os.Getenv("PET_NAME_CASE_SENSITIVE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("PET_NAME_CASE_SENSITIVE: %w", err)
		}
		cfg.PetNameCaseSensitive = b
	}

	var missing []string
	switch cfg.Storage {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StorageSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE %q (memory, postgres, sqlite)", cfg.Storage)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
