package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	RoleAuthoritative = "authoritative"
	RoleFollower      = "follower"
)

// Config holds process configuration (env + Viper). Gameplay settings live in
// SETTINGS_FILE and are loaded by the settings manager.
type Config struct {
	Env                 string
	Port                string
	Role                string
	DatabaseURL         string // postgres:// URL or a sqlite file path
	RedisURL            string // empty runs an embedded redis in development
	RedisChannel        string
	CatalogFile         string
	SettingsFile        string
	AdminKeyHash        string // bcrypt hash of the X-Admin-Key header value
	HealthAdminKey      string
	SaveSlot            string
	TickInterval        time.Duration // real time per in-game hour
	LogLevel            string
	RNGSeed             int64
	FrontendURLEndsWith string
	DevPassword         string
	// SeedFarms are created with StartingBalance when the host has none.
	SeedFarms       []int
	StartingBalance float64
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ROLE", RoleAuthoritative)
	v.SetDefault("DATABASE_URL", "usedplus.db")
	v.SetDefault("REDIS_CHANNEL", "usedplus:events")
	v.SetDefault("CATALOG_FILE", "catalog.yaml")
	v.SetDefault("SAVE_SLOT", "default")
	v.SetDefault("TICK_INTERVAL", "2s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_FARMS", "1")
	v.SetDefault("STARTING_BALANCE", 500000)

	role := strings.ToLower(strings.TrimSpace(v.GetString("ROLE")))
	if role != RoleAuthoritative && role != RoleFollower {
		return nil, fmt.Errorf("config: ROLE must be %q or %q, got %q", RoleAuthoritative, RoleFollower, role)
	}
	tick := v.GetDuration("TICK_INTERVAL")
	if tick <= 0 {
		return nil, fmt.Errorf("config: TICK_INTERVAL must be positive")
	}
	farms, err := seedFarms(v.GetString("SEED_FARMS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:                 v.GetString("APP_ENV"),
		Port:                v.GetString("PORT"),
		Role:                role,
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		RedisChannel:        v.GetString("REDIS_CHANNEL"),
		CatalogFile:         v.GetString("CATALOG_FILE"),
		SettingsFile:        v.GetString("SETTINGS_FILE"),
		AdminKeyHash:        v.GetString("ADMIN_KEY_HASH"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		SaveSlot:            v.GetString("SAVE_SLOT"),
		TickInterval:        tick,
		LogLevel:            v.GetString("LOG_LEVEL"),
		RNGSeed:             v.GetInt64("RNG_SEED"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		SeedFarms:           farms,
		StartingBalance:     v.GetFloat64("STARTING_BALANCE"),
	}, nil
}

func (c *Config) Authoritative() bool { return c.Role == RoleAuthoritative }

func (c *Config) IsProduction() bool { return c.Env == "production" }

// seedFarms parses a comma separated list of farm ids.
func seedFarms(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := cast.ToIntE(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("config: bad farm id %q in SEED_FARMS", part)
		}
		out = append(out, id)
	}
	return out, nil
}
