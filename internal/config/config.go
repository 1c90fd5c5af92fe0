package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AgentSpec names one agent this process should run a router for.
type AgentSpec struct {
	ID   string
	Name string
}

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Hub
	HubURL     string
	HubTimeout time.Duration

	// Bus transport: "local" or "redis"
	Bus      string
	RedisURL string

	// Optional hub websocket feed bridged onto the bus.
	HubWSURL string

	// Registry persistence. Postgres when DatabaseURL is set, SQLite
	// otherwise.
	DatabaseURL string
	SQLitePath  string

	// Per-agent router state directory (one SQLite file per agent).
	AgentDataDir string

	// Agents to run, parsed from "id:name,id:name".
	Agents []AgentSpec

	// source_type values that bypass the self-message filter.
	SelfSourceAllow []string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		HubURL:       os.Getenv("HUB_URL"),
		Bus:          getEnv("BUS", "local"),
		RedisURL:     os.Getenv("REDIS_URL"),
		HubWSURL:     os.Getenv("HUB_WS_URL"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/atrium.db"),
		AgentDataDir: getEnv("AGENT_DATA_DIR", "./data/agents"),
	}

	cfg.HubTimeout = 10 * time.Second
	if ms := os.Getenv("HUB_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.HubTimeout = time.Duration(v) * time.Millisecond
		}
	}

	// ROUTER_AGENTS is "uuid:name,uuid:name"
	for _, entry := range strings.Split(os.Getenv("ROUTER_AGENTS"), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, found := strings.Cut(entry, ":")
		if !found {
			name = id
		}
		cfg.Agents = append(cfg.Agents, AgentSpec{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}

	for _, entry := range strings.Split(getEnv("ROUTER_SELF_SOURCE_ALLOW", "operator_console"), ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			cfg.SelfSourceAllow = append(cfg.SelfSourceAllow, entry)
		}
	}

	if cfg.Env == "production" {
		if cfg.HubURL == "" {
			panic("HUB_URL is required in production")
		}
		if cfg.Bus == "redis" && cfg.RedisURL == "" {
			panic("REDIS_URL is required when BUS=redis")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
