package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	PIN           PINConfig
	Kiosk         KioskConfig
	Shop          ShopConfig
	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Kiosk.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KIOSK_APP_ENV" required:"true"`
	Port         string `envconfig:"KIOSK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"KIOSK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIOSK_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"KIOSK_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"KIOSK_DB_DSN"`

	Host     string `envconfig:"KIOSK_DB_HOST"`
	Port     int    `envconfig:"KIOSK_DB_PORT" default:"5432"`
	User     string `envconfig:"KIOSK_DB_USER"`
	Password string `envconfig:"KIOSK_DB_PASSWORD"`
	Name     string `envconfig:"KIOSK_DB_NAME"`
	SSLMode  string `envconfig:"KIOSK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIOSK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIOSK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIOSK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIOSK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either KIOSK_DB_DSN or KIOSK_DB_HOST/USER/NAME must be set")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"KIOSK_REDIS_URL"`
	Address      string        `envconfig:"KIOSK_REDIS_ADDR"`
	Password     string        `envconfig:"KIOSK_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIOSK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIOSK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIOSK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIOSK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIOSK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIOSK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KIOSK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIOSK_JWT_ISSUER" default:"coop-kiosk"`
	ExpirationMinutes int    `envconfig:"KIOSK_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PINConfig struct {
	ArgonMemoryKB    int `envconfig:"KIOSK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KIOSK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KIOSK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KIOSK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KIOSK_ARGON_KEY_LEN" default:"32"`
}

type KioskConfig struct {
	VATRate              string        `envconfig:"KIOSK_VAT_RATE" default:"0.12"`
	DefaultPatronageRate string        `envconfig:"KIOSK_DEFAULT_PATRONAGE_RATE" default:"0.05"`
	MaxLineQuantity      int           `envconfig:"KIOSK_MAX_LINE_QUANTITY" default:"1000"`
	ScanSessionTTL       time.Duration `envconfig:"KIOSK_SCAN_SESSION_TTL" default:"5m"`

	vatRate       decimal.Decimal
	patronageRate decimal.Decimal
}

func (k *KioskConfig) validate() error {
	rate, err := decimal.NewFromString(k.VATRate)
	if err != nil {
		return fmt.Errorf("invalid KIOSK_VAT_RATE %q: %w", k.VATRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("KIOSK_VAT_RATE must be in [0,1), got %s", rate)
	}
	patronage, err := decimal.NewFromString(k.DefaultPatronageRate)
	if err != nil {
		return fmt.Errorf("invalid KIOSK_DEFAULT_PATRONAGE_RATE %q: %w", k.DefaultPatronageRate, err)
	}
	if patronage.IsNegative() {
		return fmt.Errorf("KIOSK_DEFAULT_PATRONAGE_RATE must not be negative")
	}
	if k.MaxLineQuantity <= 0 {
		return fmt.Errorf("KIOSK_MAX_LINE_QUANTITY must be positive")
	}
	k.vatRate = rate
	k.patronageRate = patronage
	return nil
}

// VAT returns the parsed VAT rate.
func (k KioskConfig) VAT() decimal.Decimal {
	return k.vatRate
}

// DefaultPatronage returns the parsed fallback patronage rate.
func (k KioskConfig) DefaultPatronage() decimal.Decimal {
	return k.patronageRate
}

type ShopConfig struct {
	Name    string `envconfig:"KIOSK_SHOP_NAME" default:"COOPERATIVE STORE"`
	Address string `envconfig:"KIOSK_SHOP_ADDRESS" default:""`
	Phone   string `envconfig:"KIOSK_SHOP_PHONE" default:""`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KIOSK_LOGIN_RATE_WINDOW" default:"5m"`
	LoginIPLimit       int           `envconfig:"KIOSK_LOGIN_RATE_IP_LIMIT" default:"20"`
	LoginUsernameLimit int           `envconfig:"KIOSK_LOGIN_RATE_USERNAME_LIMIT" default:"8"`
}
