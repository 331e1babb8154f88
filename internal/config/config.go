package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Adherence policy knobs. SystemActorID is the reserved actor
	// identity recorded on automated reminders.
	SweepHour              int    `mapstructure:"SWEEP_HOUR"`
	PickupCadenceMonths    int    `mapstructure:"PICKUP_CADENCE_MONTHS"`
	ViralLoadCadenceMonths int    `mapstructure:"VIRAL_LOAD_CADENCE_MONTHS"`
	SystemActorID          string `mapstructure:"SYSTEM_ACTOR_ID"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TOKEN_TTL_HOURS", 12)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SWEEP_HOUR", 6)
	v.SetDefault("PICKUP_CADENCE_MONTHS", 1)
	v.SetDefault("VIRAL_LOAD_CADENCE_MONTHS", 6)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_HOURS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SWEEP_HOUR")
	v.BindEnv("PICKUP_CADENCE_MONTHS")
	v.BindEnv("VIRAL_LOAD_CADENCE_MONTHS")
	v.BindEnv("SYSTEM_ACTOR_ID")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside
// development a JWT secret is mandatory, and the scheduler knobs must
// be in range.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is not development")
	}
	if c.SweepHour < 0 || c.SweepHour > 23 {
		return fmt.Errorf("SWEEP_HOUR must be between 0 and 23, got %d", c.SweepHour)
	}
	if c.PickupCadenceMonths < 1 {
		return fmt.Errorf("PICKUP_CADENCE_MONTHS must be at least 1, got %d", c.PickupCadenceMonths)
	}
	if c.ViralLoadCadenceMonths < 1 {
		return fmt.Errorf("VIRAL_LOAD_CADENCE_MONTHS must be at least 1, got %d", c.ViralLoadCadenceMonths)
	}
	if c.SystemActorID != "" {
		if _, err := uuid.Parse(c.SystemActorID); err != nil {
			return fmt.Errorf("SYSTEM_ACTOR_ID is not a valid UUID: %w", err)
		}
	}
	return nil
}

// SystemActor returns the configured system-actor identity, or the nil
// UUID when unset (automated reminders are then attributed to no user).
func (c *Config) SystemActor() uuid.UUID {
	if c.SystemActorID == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(c.SystemActorID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
