package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port     string `yaml:"port"`
		APIToken string `yaml:"api_token"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"server"`

	DB struct {
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"db"`

	// Edviron collect-request gateway. Credentials are only ever read from
	// here and handed to the gateway client at construction time.
	Edviron struct {
		BaseURL     string `yaml:"base_url"`
		PGKey       string `yaml:"pg_key"`
		APIKey      string `yaml:"api_key"`
		SchoolID    string `yaml:"school_id"`
		CallbackURL string `yaml:"callback_url"`
	} `yaml:"edviron"`

	Razorpay struct {
		KeyID     string `yaml:"key_id"`
		KeySecret string `yaml:"key_secret"`
	} `yaml:"razorpay"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		User      string `yaml:"user"`
		Pass      string `yaml:"pass"`
		EmailFrom string `yaml:"email_from"`
	} `yaml:"smtp"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

// envLocations are tried in order; the first readable .env wins.
var envLocations = []string{
	".env",
	"config/.env",
	"../config/.env",
	"../../config/.env",
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins). When path is
// empty CONFIG_PATH is consulted; a missing YAML file is not an error.
func Load(path string) (*Config, error) {
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.LogLevel = "INFO"
	cfg.DB.Host = "localhost"
	cfg.DB.Port = "5432"
	cfg.DB.User = "postgres"
	cfg.DB.Name = "postgres"
	cfg.DB.SSLMode = "disable"
	cfg.Edviron.BaseURL = "https://dev-vanilla.edviron.com/erp"
	cfg.Edviron.CallbackURL = "http://localhost:5173/payment-success"
	cfg.SMTP.Host = "smtp.gmail.com"
	cfg.SMTP.Port = 587
	cfg.Kafka.Topic = "payments"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.APIToken, "API_TOKEN")
	setString(&cfg.Server.LogLevel, "LOG_LEVEL")

	setString(&cfg.DB.URL, "DATABASE_URL")
	setString(&cfg.DB.Host, "DB_HOST")
	setString(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")

	setString(&cfg.Edviron.BaseURL, "EDVIRON_BASE_URL")
	setString(&cfg.Edviron.PGKey, "EDVIRON_PG_KEY")
	setString(&cfg.Edviron.APIKey, "EDVIRON_API_KEY")
	setString(&cfg.Edviron.SchoolID, "EDVIRON_SCHOOL_ID")
	setString(&cfg.Edviron.CallbackURL, "EDVIRON_CALLBACK_URL")

	setString(&cfg.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	setString(&cfg.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")

	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.User, "SMTP_USER")
	setString(&cfg.SMTP.Pass, "SMTP_PASS")
	setString(&cfg.SMTP.EmailFrom, "EMAIL_FROM")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = p
		}
	}

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitCommaList(v)
	}
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.DB.URL == "" && (c.DB.Host == "" || c.DB.Name == "") {
		return errors.New("db config is incomplete: set DATABASE_URL or DB_HOST and DB_NAME")
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DB.User, c.DB.Password),
		Host:   c.DB.Host + ":" + c.DB.Port,
		Path:   "/" + c.DB.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.DB.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// EmailFrom falls back to the SMTP user when no explicit sender is set.
func (c *Config) EmailFrom() string {
	if c.SMTP.EmailFrom != "" {
		return c.SMTP.EmailFrom
	}
	return c.SMTP.User
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
