package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Team     TeamConfig     `mapstructure:"team"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

// ServerConfig HTTP server.
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL connection.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// CalendarTTL bounds how long a cached status map lives.
	CalendarTTL time.Duration `mapstructure:"calendar_ttl"`
}

// AuthConfig verifies access tokens issued by the external identity
// provider. Sign-in itself happens there.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CalendarConfig drives aggregation and ICS rendering.
type CalendarConfig struct {
	GapToleranceDays int    `mapstructure:"gap_tolerance_days"`
	Timezone         string `mapstructure:"timezone"`
	AMStartHour      int    `mapstructure:"am_start_hour"`
	AMEndHour        int    `mapstructure:"am_end_hour"`
	PMStartHour      int    `mapstructure:"pm_start_hour"`
	PMEndHour        int    `mapstructure:"pm_end_hour"`
	ProductID        string `mapstructure:"product_id"`
	UIDDomain        string `mapstructure:"uid_domain"`
}

type TeamConfig struct {
	InviteTTL        time.Duration `mapstructure:"invite_ttl"`
	InviteCodeLength int           `mapstructure:"invite_code_length"`
	MaxMembers       int           `mapstructure:"max_members"`
}

// JobsConfig background jobs. An empty cron spec disables the job.
type JobsConfig struct {
	InvitePurgeCron string `mapstructure:"invite_purge_cron"`
	// InvitePurgeGrace is how long expired codes stay readable as
	// "expired" before deletion.
	InvitePurgeGrace time.Duration `mapstructure:"invite_purge_grace"`
}

// Load reads defaults, then the config file, then PGV_* environment
// variables (highest priority).
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "pgvplaning")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Paris")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.calendar_ttl", "24h")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("calendar.gap_tolerance_days", 3)
	v.SetDefault("calendar.timezone", "Europe/Paris")
	v.SetDefault("calendar.am_start_hour", 8)
	v.SetDefault("calendar.am_end_hour", 12)
	v.SetDefault("calendar.pm_start_hour", 14)
	v.SetDefault("calendar.pm_end_hour", 18)
	v.SetDefault("calendar.product_id", "-//PGV Planning//Calendrier//FR")
	v.SetDefault("calendar.uid_domain", "pgvplaning.app")

	v.SetDefault("team.invite_ttl", "168h")
	v.SetDefault("team.invite_code_length", 8)
	v.SetDefault("team.max_members", 100)

	v.SetDefault("jobs.invite_purge_cron", "0 3 * * *")
	v.SetDefault("jobs.invite_purge_grace", "24h")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("PGV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("lecture du fichier de configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("décodage de la configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("configuration invalide: auth.jwt_secret est obligatoire")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("configuration invalide: auth.jwt_secret doit contenir au moins 16 caractères")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("configuration invalide: server.port doit être compris entre 1 et 65535")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("configuration invalide: calendar.timezone %q inconnu", c.Calendar.Timezone)
	}
	cal := c.Calendar
	if !(0 <= cal.AMStartHour && cal.AMStartHour < cal.AMEndHour &&
		cal.AMEndHour <= cal.PMStartHour && cal.PMStartHour < cal.PMEndHour && cal.PMEndHour <= 24) {
		return fmt.Errorf("configuration invalide: horaires matin/après-midi incohérents")
	}
	if cal.GapToleranceDays < 1 {
		return fmt.Errorf("configuration invalide: calendar.gap_tolerance_days doit être >= 1")
	}
	if c.Team.InviteCodeLength < 6 || c.Team.InviteCodeLength > 26 {
		return fmt.Errorf("configuration invalide: team.invite_code_length doit être compris entre 6 et 26")
	}
	return nil
}
