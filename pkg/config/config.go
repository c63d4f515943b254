package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Session       SessionConfig
	Catalog       CatalogConfig
	Orders        OrdersConfig
	Payments      PaymentsConfig
	Stripe        StripeConfig
	Square        SquareConfig
	Admin         AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOP_LOG_WARN_STACK" default:"false"`
	BaseURL      string `envconfig:"SHOP_APP_BASE_URL" default:"http://localhost:8080"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN         string `envconfig:"SHOP_DB_DSN"`
	Driver      string `envconfig:"SHOP_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"SHOP_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"SHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOP_DB_USER"`
	LegacyPassword string `envconfig:"SHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite backend.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	Enabled      bool          `envconfig:"SHOP_REDIS_ENABLED" default:"true"`
	URL          string        `envconfig:"SHOP_REDIS_URL"`
	Address      string        `envconfig:"SHOP_REDIS_ADDR"`
	Password     string        `envconfig:"SHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SHOP_JWT_ISSUER" default:"ds-online-shop"`
	ExpirationMinutes      int    `envconfig:"SHOP_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"SHOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SHOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SHOP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SHOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SHOP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SHOP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SHOP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type SessionConfig struct {
	CookieName string        `envconfig:"SHOP_SESSION_COOKIE_NAME" default:"shop_session"`
	TTL        time.Duration `envconfig:"SHOP_SESSION_TTL" default:"168h"`
	Secure     bool          `envconfig:"SHOP_SESSION_SECURE" default:"false"`
}

type CatalogConfig struct {
	ItemsPath string `envconfig:"SHOP_CATALOG_ITEMS_PATH" default:"data/items.json"`

	// ReloadInterval re-reads ItemsPath periodically; zero disables it.
	ReloadInterval time.Duration `envconfig:"SHOP_CATALOG_RELOAD_INTERVAL" default:"0s"`
}

type OrdersConfig struct {
	LogDriver string `envconfig:"SHOP_ORDERS_LOG_DRIVER" default:"file"`
	LogPath   string `envconfig:"SHOP_ORDERS_LOG_PATH" default:"orders.json"`
}

// UsesDB reports whether orders are appended to the relational store instead of a file.
func (o OrdersConfig) UsesDB() bool {
	return strings.EqualFold(strings.TrimSpace(o.LogDriver), OrdersLogDriverDB)
}

type PaymentsConfig struct {
	Authorizer        string        `envconfig:"SHOP_PAYMENT_AUTHORIZER" default:"simulated"`
	ApprovalRate      float64       `envconfig:"SHOP_PAYMENT_APPROVAL_RATE" default:"0.85"`
	Currency          string        `envconfig:"SHOP_PAYMENT_CURRENCY" default:"usd"`
	SuccessPath       string        `envconfig:"SHOP_PAYMENT_SUCCESS_PATH" default:"/api/v1/checkout/success"`
	CancelPath        string        `envconfig:"SHOP_PAYMENT_CANCEL_PATH" default:"/api/v1/cart"`
	HostedCallbackTTL time.Duration `envconfig:"SHOP_PAYMENT_HOSTED_CALLBACK_TTL" default:"24h"`
}

// AuthorizerKind returns the normalized authorizer selector.
func (p PaymentsConfig) AuthorizerKind() string {
	kind := strings.ToLower(strings.TrimSpace(p.Authorizer))
	if kind == "" {
		return PaymentAuthorizerSimulated
	}
	return kind
}

func (p PaymentsConfig) validate() error {
	switch p.AuthorizerKind() {
	case PaymentAuthorizerSimulated, PaymentAuthorizerStripe, PaymentAuthorizerSquare:
	default:
		return fmt.Errorf("%s must be one of %q, %q, %q", EnvPaymentAuthorizer,
			PaymentAuthorizerSimulated, PaymentAuthorizerStripe, PaymentAuthorizerSquare)
	}
	if p.ApprovalRate < 0 || p.ApprovalRate > 1 {
		return fmt.Errorf("%s must be within [0, 1]", EnvPaymentApprovalRate)
	}
	return nil
}

type StripeConfig struct {
	APIKey          string `envconfig:"SHOP_STRIPE_API_KEY"`
	Env             string `envconfig:"SHOP_STRIPE_ENV" default:"test"`
	PaymentMethodID string `envconfig:"SHOP_STRIPE_PAYMENT_METHOD_ID" default:"pm_card_visa"`
	WebhookSecret   string `envconfig:"SHOP_STRIPE_WEBHOOK_SECRET"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken string `envconfig:"SHOP_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"SHOP_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"SHOP_SQUARE_LOCATION_ID"`
	SourceID    string `envconfig:"SHOP_SQUARE_SOURCE_ID" default:"cnon:card-nonce-ok"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type AdminConfig struct {
	Token string `envconfig:"SHOP_ADMIN_TOKEN"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
