package config

const (
	EnvPrefix = "SHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:shop.db?cache=shared"

	OrdersLogDriverFile = "file"
	OrdersLogDriverDB   = "db"

	PaymentAuthorizerSimulated = "simulated"
	PaymentAuthorizerStripe    = "stripe"
	PaymentAuthorizerSquare    = "square"
)

const (
	EnvAppEnv     = "SHOP_APP_ENV"
	EnvPort       = "SHOP_APP_PORT"
	EnvDBDSN      = "SHOP_DB_DSN"
	EnvDBHost     = "SHOP_DB_HOST"
	EnvDBUser     = "SHOP_DB_USER"
	EnvDBPassword = "SHOP_DB_PASSWORD"
	EnvDBName     = "SHOP_DB_NAME"
	EnvDBDriver   = "SHOP_DB_DRIVER"
	EnvRedisURL   = "SHOP_REDIS_URL"

	EnvJWTSecret              = "SHOP_JWT_SECRET"
	EnvJWTIssuer              = "SHOP_JWT_ISSUER"
	EnvJWTExpMins             = "SHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SHOP_REFRESH_TOKEN_TTL_MINUTES"

	EnvPaymentAuthorizer   = "SHOP_PAYMENT_AUTHORIZER"
	EnvPaymentApprovalRate = "SHOP_PAYMENT_APPROVAL_RATE"
	EnvOrdersLogDriver     = "SHOP_ORDERS_LOG_DRIVER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
