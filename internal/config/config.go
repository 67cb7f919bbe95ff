package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Realtime  RealtimeConfig
	Auth      AuthConfig
	AppServer AppServerConfig
	Voice     VoiceConfig
	Media     MediaConfig
	Signup    SignupConfig
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

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// RealtimeConfig selects the broker carrying row-change events between instances.
type RealtimeConfig struct {
	Transport        string // redis | nats
	NATSURL          string
	NotifyChannel    string // Postgres LISTEN channel fed by the row-change trigger
	SubscriberBuffer int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AppServerConfig points at the external chat/voice application server.
type AppServerConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type VoiceConfig struct {
	BaseURL string
	APIKey  string
}

// MediaConfig carries the media room credentials used to mint web call tokens.
type MediaConfig struct {
	RoomURL   string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

type SignupConfig struct {
	WebhookSecret string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFrom(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "local")
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REALTIME_TRANSPORT", "redis")
	v.SetDefault("REALTIME_NOTIFY_CHANNEL", "row_changes")
	v.SetDefault("REALTIME_SUBSCRIBER_BUFFER", 64)
	v.SetDefault("APPSERVER_TIMEOUT", "30s")
	v.SetDefault("MEDIA_TOKEN_TTL", "1h")
	return v
}

// LoadFrom builds a Config from an already prepared viper instance.
func LoadFrom(v *viper.Viper) (Config, error) {
	c := Config{}

	c.App.Env = strings.TrimSpace(v.GetString("APP_ENV"))
	c.App.Port = v.GetInt("APP_PORT")

	c.DB.Host = strings.TrimSpace(v.GetString("DB_HOST"))
	c.DB.Port = v.GetInt("DB_PORT")
	c.DB.User = strings.TrimSpace(v.GetString("DB_USER"))
	c.DB.Password = v.GetString("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(v.GetString("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(v.GetString("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(v.GetString("REDIS_HOST"))
	c.Redis.Port = v.GetInt("REDIS_PORT")
	c.Redis.Password = v.GetString("REDIS_PASSWORD")

	c.Realtime.Transport = strings.ToLower(strings.TrimSpace(v.GetString("REALTIME_TRANSPORT")))
	c.Realtime.NATSURL = strings.TrimSpace(v.GetString("NATS_URL"))
	c.Realtime.NotifyChannel = strings.TrimSpace(v.GetString("REALTIME_NOTIFY_CHANNEL"))
	c.Realtime.SubscriberBuffer = v.GetInt("REALTIME_SUBSCRIBER_BUFFER")

	c.Auth.JWTSecret = v.GetString("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(v.GetString("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(v.GetString("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = v.GetDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = v.GetDuration("JWT_REFRESH_TTL")

	c.AppServer.BaseURL = strings.TrimRight(strings.TrimSpace(v.GetString("APPSERVER_BASE_URL")), "/")
	c.AppServer.APIKey = v.GetString("APPSERVER_API_KEY")
	c.AppServer.Timeout = v.GetDuration("APPSERVER_TIMEOUT")

	c.Voice.BaseURL = strings.TrimRight(strings.TrimSpace(v.GetString("VOICE_BASE_URL")), "/")
	c.Voice.APIKey = v.GetString("VOICE_API_KEY")

	c.Media.RoomURL = strings.TrimSpace(v.GetString("MEDIA_ROOM_URL"))
	c.Media.APIKey = strings.TrimSpace(v.GetString("MEDIA_API_KEY"))
	c.Media.APISecret = v.GetString("MEDIA_API_SECRET")
	c.Media.TokenTTL = v.GetDuration("MEDIA_TOKEN_TTL")

	c.Signup.WebhookSecret = v.GetString("SIGNUP_WEBHOOK_SECRET")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills environment-dependent defaults.
func (c *Config) Validate() error {
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
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	switch c.Realtime.Transport {
	case "", "redis":
		c.Realtime.Transport = "redis"
	case "nats":
		if c.Realtime.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL is required when REALTIME_TRANSPORT=nats"))
		}
	default:
		errs = append(errs, fmt.Errorf("REALTIME_TRANSPORT must be redis or nats, got %q", c.Realtime.Transport))
	}
	if c.Realtime.NotifyChannel == "" {
		c.Realtime.NotifyChannel = "row_changes"
	}
	if c.Realtime.SubscriberBuffer <= 0 {
		c.Realtime.SubscriberBuffer = 64
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Signup.WebhookSecret == "" {
			errs = append(errs, errors.New("SIGNUP_WEBHOOK_SECRET is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.AppServer.BaseURL == "" {
		errs = append(errs, errors.New("APPSERVER_BASE_URL is required"))
	}
	if c.AppServer.Timeout <= 0 {
		c.AppServer.Timeout = 30 * time.Second
	}
	if c.Voice.BaseURL == "" {
		// The voice platform usually sits behind the same application server.
		c.Voice.BaseURL = c.AppServer.BaseURL
		if c.Voice.APIKey == "" {
			c.Voice.APIKey = c.AppServer.APIKey
		}
	}

	if c.Media.RoomURL != "" && (c.Media.APIKey == "" || c.Media.APISecret == "") {
		errs = append(errs, errors.New("MEDIA_API_KEY and MEDIA_API_SECRET are required when MEDIA_ROOM_URL is set"))
	}
	if c.Media.TokenTTL <= 0 {
		c.Media.TokenTTL = time.Hour
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
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
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
