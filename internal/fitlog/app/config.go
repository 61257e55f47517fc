package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      int    `env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	Env       string `env:"ENV" env-default:"dev" env-description:"dev, staging or prod"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`

	Issuer         string        `env:"BFL_ISSUER" env-default:"bfl" env-description:"issuer claim of session tokens"`
	DatabaseFile   string        `env:"BFL_DATABASE_FILE" env-default:"bfl.db"`
	PepperFile     string        `env:"BFL_PEPPER_FILE" env-default:"pepper"`
	SessionKeyFile string        `env:"BFL_SESSION_KEY_FILE" env-default:"session.pem"`
	SessionTTL     time.Duration `env:"BFL_SESSION_TTL" env-default:"336h"`
	CSRFKeyFile    string        `env:"BFL_CSRF_KEY_FILE" env-default:"csrf.key"`
	SecureCookies  bool          `env:"BFL_SECURE_COOKIES" env-default:"false" env-description:"set when served over HTTPS"`
	MediaRoot      string        `env:"BFL_MEDIA_ROOT" env-default:"media"`

	// Comma separated addresses or CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:","`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"1h"`

	// Used once, when the user table is empty.
	AdminUsername  string `env:"BFL_ADMIN_USERNAME"`
	AdminEmail     string `env:"BFL_ADMIN_EMAIL"`
	AdminPassword  string `env:"BFL_ADMIN_PASSWORD"`
	AdminFirstName string `env:"BFL_ADMIN_FIRST_NAME"`
	AdminLastName  string `env:"BFL_ADMIN_LAST_NAME"`

	StrictRequests    int `env:"RATELIMIT_STRICT_REQUESTS" env-default:"5"`
	StrictWindowSec   int `env:"RATELIMIT_STRICT_WINDOW_SEC" env-default:"60"`
	StrictBurst       int `env:"RATELIMIT_STRICT_BURST" env-default:"5"`
	ModerateRequests  int `env:"RATELIMIT_MODERATE_REQUESTS" env-default:"20"`
	ModerateWindowSec int `env:"RATELIMIT_MODERATE_WINDOW_SEC" env-default:"60"`
	ModerateBurst     int `env:"RATELIMIT_MODERATE_BURST" env-default:"20"`
}

// LoadConfig reads an optional .env file from the working directory and then
// the process environment. Real environment variables win over .env entries.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return errors.New("BFL_SESSION_TTL must be positive")
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		return errors.New("BFL_ADMIN_PASSWORD is required with BFL_ADMIN_USERNAME")
	}
	return nil
}

func (c Config) BootstrapAdmin() domain.BootstrapAdmin {
	return domain.BootstrapAdmin{
		Username:  c.AdminUsername,
		Email:     c.AdminEmail,
		Password:  c.AdminPassword,
		FirstName: c.AdminFirstName,
		LastName:  c.AdminLastName,
	}
}

// Proxies is TrustedProxies parsed. LoadConfig has already rejected bad entries.
func (c Config) Proxies() []netip.Prefix {
	p, _ := httpx.ParseTrustedProxies(c.TrustedProxies)
	return p
}

func (c Config) StrictLimit() httpx.RateLimitConfig {
	return rateLimit(c.StrictRequests, c.StrictWindowSec, c.StrictBurst, httpx.StrictLimit)
}

func (c Config) ModerateLimit() httpx.RateLimitConfig {
	return rateLimit(c.ModerateRequests, c.ModerateWindowSec, c.ModerateBurst, httpx.ModerateLimit)
}

// rateLimit falls back to def for any non-positive field.
func rateLimit(requests, windowSec, burst int, def httpx.RateLimitConfig) httpx.RateLimitConfig {
	out := def
	if requests > 0 {
		out.RequestsPerWindow = requests
	}
	if windowSec > 0 {
		out.Window = time.Duration(windowSec) * time.Second
	}
	if burst > 0 {
		out.Burst = burst
	}
	return out
}
