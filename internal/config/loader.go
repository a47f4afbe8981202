// Package config loads runtime settings from config.yaml, a .env file and
// MOVEMENT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// EnvPrefix namespaces environment overrides, e.g. MOVEMENT_DATABASE_HOST.
const EnvPrefix = "MOVEMENT"

// Storage and session backends.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type DatabaseConfig struct {
	Driver string
	db.Config
}

type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	CookieName   string
	SecureCookie bool
}

type SessionsConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type AppConfig struct {
	TimeZone        string
	Location        *time.Location
	DefaultFacility string
	PageSize        int
	LoaderWait      time.Duration
}

type ExportConfig struct {
	PDFFont string
}

type LogConfig struct {
	Level  string
	Format string
}

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Sessions SessionsConfig
	App      AppConfig
	Export   ExportConfig
	Log      LogConfig
	// Permissions replaces the codenames of the named groups.
	Permissions map[string][]string
	// Source is the config file that was read, empty when none was found.
	Source string
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)
	v.SetDefault("database.min_conns", dbDefaults.MinConns)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("auth.cookie_name", "movementcontrol_session")
	v.SetDefault("auth.secure_cookie", false)

	v.SetDefault("sessions.driver", DriverMemory)
	v.SetDefault("sessions.redis_addr", "localhost:6379")
	v.SetDefault("sessions.redis_password", "")
	v.SetDefault("sessions.redis_db", 0)

	v.SetDefault("app.time_zone", "Asia/Kamchatka")
	v.SetDefault("app.default_facility", "")
	v.SetDefault("app.page_size", domain.DefaultPageSize)
	v.SetDefault("app.loader_wait", 2*time.Millisecond)

	v.SetDefault("export.pdf_font", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yaml from configPath (if present), then .env in the same
// directory, then the environment.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(filepath.Join(configPath, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		cfg.Source = v.ConfigFileUsed()
	}

	cfg.Server = ServerConfig{
		Addr:            v.GetString("server.addr"),
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		IdleTimeout:     v.GetDuration("server.idle_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
	}
	cfg.Database = DatabaseConfig{
		Driver: strings.ToLower(v.GetString("database.driver")),
		Config: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
			MinConns: v.GetInt32("database.min_conns"),
		},
	}
	cfg.Auth = AuthConfig{
		JWTSecret:    v.GetString("auth.jwt_secret"),
		SessionTTL:   v.GetDuration("auth.session_ttl"),
		CookieName:   v.GetString("auth.cookie_name"),
		SecureCookie: v.GetBool("auth.secure_cookie"),
	}
	cfg.Sessions = SessionsConfig{
		Driver:        strings.ToLower(v.GetString("sessions.driver")),
		RedisAddr:     v.GetString("sessions.redis_addr"),
		RedisPassword: v.GetString("sessions.redis_password"),
		RedisDB:       v.GetInt("sessions.redis_db"),
	}
	cfg.App = AppConfig{
		TimeZone:        v.GetString("app.time_zone"),
		DefaultFacility: v.GetString("app.default_facility"),
		PageSize:        v.GetInt("app.page_size"),
		LoaderWait:      v.GetDuration("app.loader_wait"),
	}
	cfg.Export = ExportConfig{PDFFont: v.GetString("export.pdf_font")}
	cfg.Log = LogConfig{
		Level:  strings.ToLower(v.GetString("log.level")),
		Format: strings.ToLower(v.GetString("log.format")),
	}
	if v.IsSet("permissions.groups") {
		cfg.Permissions = v.GetStringMapStringSlice("permissions.groups")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	switch c.Sessions.Driver {
	case DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("sessions.driver: unknown driver %q", c.Sessions.Driver))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret: must be at least 16 bytes"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl: must be positive"))
	}
	if c.App.PageSize < 1 {
		errs = append(errs, errors.New("app.page_size: must be positive"))
	}
	loc, err := time.LoadLocation(c.App.TimeZone)
	if err != nil {
		errs = append(errs, fmt.Errorf("app.time_zone: %w", err))
	}
	c.App.Location = loc
	return errors.Join(errs...)
}
