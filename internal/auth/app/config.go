package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Issuer is the iss claim stamped into every access token.
	Issuer string `envconfig:"AUTH_ISSUER" default:"lattice-auth"`

	// TokenSecret is the shared HS256 signing secret. Must be at least 32
	// bytes; the signer refuses shorter keys at startup.
	TokenSecret string `envconfig:"AUTH_TOKEN_SECRET" required:"true"`

	AccessTTL  time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"720h"`

	DatabaseFile string `envconfig:"AUTH_DATABASE_FILE" default:"auth.db"`

	Env       string `envconfig:"ENV" default:"dev"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Port      int    `envconfig:"PORT" default:"8080"`

	ShutdownGracePeriod  time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD" default:"10s"`
	HousekeepingInterval time.Duration `envconfig:"HOUSEKEEPING_INTERVAL" default:"1h"`

	// SessionRetention is how long revoked or expired sessions stay visible
	// in the session list before housekeeping deletes them.
	SessionRetention time.Duration `envconfig:"SESSION_RETENTION" default:"720h"`

	// Bootstrap seeds an empty directory at startup. Ignored once any user
	// exists.
	BootstrapTenantName    string `envconfig:"BOOTSTRAP_TENANT_NAME" default:"default"`
	BootstrapAppName       string `envconfig:"BOOTSTRAP_APP_NAME"`
	BootstrapAdminEmail    string `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
	BootstrapAdminName     string `envconfig:"BOOTSTRAP_ADMIN_NAME"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
