package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/hours"
)

// Config holds all configuration required by the agent process.
// All values come from env (or an env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Model     ModelConfig
	Dashboard DashboardConfig
	Voice     VoiceConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode must be explicit in production.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional: an empty Host disables the inbound
// concurrency guard entirely.
type RedisConfig struct {
	Host string
	Port int
}

type ModelConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible completion endpoint.
	BaseURL string
	Name    string
}

type DashboardConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// VoiceConfig is the call-flow configuration: business-hours window,
// department destination numbers (empty = department not offered) and
// the stale-call recovery knobs.
type VoiceConfig struct {
	HoursStart string
	HoursEnd   string
	Timezone   string

	SalesNumber   string
	SupportNumber string

	StaleCallMaxAge   time.Duration
	ReaperInterval    time.Duration
	MaxCallsPerOrigin int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Model.APIKey = os.Getenv("MODEL_API_KEY")
	c.Model.BaseURL = strings.TrimSpace(os.Getenv("MODEL_BASE_URL"))
	c.Model.Name = envOr("MODEL_NAME", "llama-3.3-70b-versatile")

	c.Dashboard.Secret = os.Getenv("DASHBOARD_SECRET")
	c.Dashboard.TokenTTL = durationOr("DASHBOARD_TOKEN_TTL", 12*time.Hour)

	c.Voice.HoursStart = envOr("BUSINESS_HOURS_START", "09:00")
	c.Voice.HoursEnd = envOr("BUSINESS_HOURS_END", "17:00")
	c.Voice.Timezone = envOr("BUSINESS_TIMEZONE", "America/New_York")
	// Empty means the department is not offered; there is no placeholder
	// sentinel number.
	c.Voice.SalesNumber = strings.TrimSpace(os.Getenv("SALES_PHONE_NUMBER"))
	c.Voice.SupportNumber = strings.TrimSpace(os.Getenv("SUPPORT_PHONE_NUMBER"))
	c.Voice.StaleCallMaxAge = durationOr("STALE_CALL_MAX_AGE", 15*time.Minute)
	c.Voice.ReaperInterval = durationOr("REAPER_INTERVAL", time.Minute)
	c.Voice.MaxCallsPerOrigin = intOr("MAX_CALLS_PER_ORIGIN", 3)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		}
	} else if !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Model.Name == "" {
		errs = append(errs, errors.New("MODEL_NAME is required"))
	}
	if c.IsProduction() && c.Model.APIKey == "" {
		errs = append(errs, errors.New("MODEL_API_KEY is required in production"))
	}

	if c.Dashboard.Secret == "" {
		errs = append(errs, errors.New("DASHBOARD_SECRET is required"))
	}
	if c.Dashboard.TokenTTL <= 0 {
		errs = append(errs, errors.New("DASHBOARD_TOKEN_TTL must be positive"))
	}

	// Malformed business-hours configuration is a startup error, never a
	// runtime fault.
	if _, err := hours.NewWindow(c.Voice.HoursStart, c.Voice.HoursEnd, c.Voice.Timezone); err != nil {
		errs = append(errs, err)
	}
	if c.Voice.StaleCallMaxAge <= 0 {
		errs = append(errs, errors.New("STALE_CALL_MAX_AGE must be positive"))
	}
	if c.Voice.ReaperInterval <= 0 {
		errs = append(errs, errors.New("REAPER_INTERVAL must be positive"))
	}
	if c.Voice.MaxCallsPerOrigin <= 0 {
		errs = append(errs, errors.New("MAX_CALLS_PER_ORIGIN must be positive"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	sslMode := c.DB.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		sslMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durationOr(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
