package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/faactracker/internal/db"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// DefaultSourceTemplates are tried in order when no templates are configured.
var DefaultSourceTemplates = []string{
	"https://nigerianstat.gov.ng/resource/FAAC_{Month}_{Year}.xlsx",
	"https://nigerianstat.gov.ng/resource/FAAC%20{MONTH}%20{Year}.xlsx",
	"https://nigerianstat.gov.ng/resource/faac-disbursement-{month}-{Year}.xlsx",
	"https://nigerianstat.gov.ng/resource/FAAC_{Mon}_{Year}.xls",
}

// Config is the full application configuration
type Config struct {
	Database  db.Config
	Backend   string // postgres or memory
	Server    ServerConfig
	Ingestion IngestionConfig
	Admin     AdminConfig
	Log       LogConfig
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// IngestionConfig configures the pipeline and its schedule
type IngestionConfig struct {
	Templates      []string
	Timeout        time.Duration
	MinBytes       int64
	MinRegions     int
	HeaderScanRows int
	Schedule       string
	Timezone       string
	Grace          time.Duration
	ScheduleOff    bool
}

// AdminConfig configures the admin session
type AdminConfig struct {
	Password      string
	SessionSecret string
	SessionTTL    time.Duration
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads config.yaml from configPath when present, then applies
// environment overrides such as DATABASE_URL or INGESTION_MIN_REGIONS.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Database: db.Config{
			URL:      v.GetString("database.url"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Backend: strings.ToLower(v.GetString("backend")),
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Ingestion: IngestionConfig{
			Templates:      v.GetStringSlice("ingestion.templates"),
			Timeout:        v.GetDuration("ingestion.timeout"),
			MinBytes:       v.GetInt64("ingestion.min_bytes"),
			MinRegions:     v.GetInt("ingestion.min_regions"),
			HeaderScanRows: v.GetInt("ingestion.header_scan_rows"),
			Schedule:       v.GetString("ingestion.schedule"),
			Timezone:       v.GetString("ingestion.timezone"),
			Grace:          v.GetDuration("ingestion.grace"),
			ScheduleOff:    v.GetBool("ingestion.schedule_off"),
		},
		Admin: AdminConfig{
			Password:      v.GetString("admin.password"),
			SessionSecret: v.GetString("admin.session_secret"),
			SessionTTL:    v.GetDuration("admin.session_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}
	if len(cfg.Ingestion.Templates) == 0 {
		cfg.Ingestion.Templates = append([]string(nil), DefaultSourceTemplates...)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := db.DefaultConfig()
	v.SetDefault("database.host", def.Host)
	v.SetDefault("database.port", def.Port)
	v.SetDefault("database.user", def.User)
	v.SetDefault("database.password", def.Password)
	v.SetDefault("database.dbname", def.DBName)
	v.SetDefault("database.sslmode", def.SSLMode)
	v.SetDefault("database.max_conns", def.MaxConns)
	v.SetDefault("backend", "postgres")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("ingestion.timeout", 30*time.Second)
	v.SetDefault("ingestion.min_bytes", 10000)
	v.SetDefault("ingestion.min_regions", 35)
	v.SetDefault("ingestion.header_scan_rows", 15)
	v.SetDefault("ingestion.schedule", "0 6 5 * *")
	v.SetDefault("ingestion.timezone", "Africa/Lagos")
	v.SetDefault("ingestion.grace", 72*time.Hour)
	v.SetDefault("ingestion.schedule_off", false)

	v.SetDefault("admin.session_ttl", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// AutomaticEnv only sees keys viper already knows about.
	for _, key := range []string{"database.url", "admin.password", "admin.session_secret", "ingestion.templates"} {
		_ = v.BindEnv(key)
	}
}

// Validate checks the configuration and reports every problem at once
func (c Config) Validate() error {
	var problems []string

	switch c.Backend {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			problems = append(problems, "database url or host is required for the postgres backend")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("invalid backend '%s': must be one of [postgres memory]", c.Backend))
	}

	if c.Server.Addr == "" {
		problems = append(problems, "server addr cannot be empty")
	}

	ing := c.Ingestion
	if len(ing.Templates) == 0 {
		problems = append(problems, "at least one ingestion template is required")
	}
	for _, tmpl := range ing.Templates {
		if !strings.Contains(tmpl, "{Year}") {
			problems = append(problems, fmt.Sprintf("ingestion template %q has no {Year} placeholder", tmpl))
		}
	}
	if ing.Timeout <= 0 {
		problems = append(problems, "ingestion timeout must be positive")
	}
	if ing.MinBytes < 0 {
		problems = append(problems, "ingestion min_bytes cannot be negative")
	}
	if ing.MinRegions < 1 {
		problems = append(problems, "ingestion min_regions must be at least 1")
	}
	if ing.HeaderScanRows < 1 {
		problems = append(problems, "ingestion header_scan_rows must be at least 1")
	}
	if !ing.ScheduleOff {
		if _, err := cron.ParseStandard(ing.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid ingestion schedule '%s': %v", ing.Schedule, err))
		}
		if _, err := time.LoadLocation(ing.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("invalid ingestion timezone '%s': %v", ing.Timezone, err))
		}
	}

	if c.Admin.Password != "" && len(c.Admin.SessionSecret) < 16 {
		problems = append(problems, "admin session_secret must be at least 16 characters when a password is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
