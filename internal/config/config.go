package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mail      MailConfig      `mapstructure:"mail"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	SES       SESConfig       `mapstructure:"ses"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Links     LinksConfig     `mapstructure:"links"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"loglevel"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// MailConfig selects the outbound email provider ("smtp" or "ses").
type MailConfig struct {
	Provider string `mapstructure:"provider"`
	From     string `mapstructure:"from"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SESConfig struct {
	Region string `mapstructure:"region"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// AuthConfig selects how login credentials are issued: "jwt" or opaque "session".
type AuthConfig struct {
	CredentialMode     string        `mapstructure:"credentialmode"`
	SessionSlidingTTL  time.Duration `mapstructure:"sessionslidingttl"`
	SessionAbsoluteTTL time.Duration `mapstructure:"sessionabsolutettl"`
}

// LinksConfig holds the frontend URLs embedded in outbound emails.
type LinksConfig struct {
	ResetPasswordURL string `mapstructure:"resetpasswordurl"`
	BlockAccountURL  string `mapstructure:"blockaccounturl"`
	SupportEmail     string `mapstructure:"supportemail"`
}

type TemplatesConfig struct {
	Dir    string `mapstructure:"dir"`
	Reload bool   `mapstructure:"reload"`
}

// SecurityConfig tunes the OTP, login and password-reset throttles.
type SecurityConfig struct {
	OTP             OTPConfig     `mapstructure:"otp"`
	Login           LoginConfig   `mapstructure:"login"`
	Reset           ResetConfig   `mapstructure:"reset"`
	CleanupInterval time.Duration `mapstructure:"cleanupinterval"`
}

type OTPConfig struct {
	Digits          int           `mapstructure:"digits"`
	TTL             time.Duration `mapstructure:"ttl"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	MaxPerWindow    int           `mapstructure:"maxperwindow"`
	Window          time.Duration `mapstructure:"window"`
	MaxRetries      int           `mapstructure:"maxretries"`
	ResetGrantTTL   time.Duration `mapstructure:"resetgrantttl"`
	DispatchTimeout time.Duration `mapstructure:"dispatchtimeout"`
}

type LoginConfig struct {
	MaxFailedAttempts int           `mapstructure:"maxfailedattempts"`
	LockDuration      time.Duration `mapstructure:"lockduration"`
	BcryptCost        int           `mapstructure:"bcryptcost"`
}

type ResetConfig struct {
	TokenTTL       time.Duration `mapstructure:"tokenttl"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	MaxRequests    int           `mapstructure:"maxrequests"`
	Window         time.Duration `mapstructure:"window"`
	ActionTokenTTL time.Duration `mapstructure:"actiontokenttl"`
}

// envBindings maps structured viper keys to environment variable names.
var envBindings = map[string]string{
	"server.port":                      "SERVER_PORT",
	"server.env":                       "SERVER_ENV",
	"server.loglevel":                  "LOG_LEVEL",
	"database.url":                     "DATABASE_URL",
	"redis.url":                        "REDIS_URL",
	"mail.provider":                    "MAIL_PROVIDER",
	"mail.from":                        "MAIL_FROM",
	"smtp.host":                        "SMTP_HOST",
	"smtp.port":                        "SMTP_PORT",
	"smtp.username":                    "SMTP_USERNAME",
	"smtp.password":                    "SMTP_PASSWORD",
	"ses.region":                       "AWS_REGION",
	"jwt.secret":                       "JWT_SECRET",
	"jwt.issuer":                       "JWT_ISSUER",
	"jwt.ttl":                          "JWT_TTL",
	"auth.credentialmode":              "AUTH_CREDENTIAL_MODE",
	"auth.sessionslidingttl":           "AUTH_SESSION_SLIDING_TTL",
	"auth.sessionabsolutettl":          "AUTH_SESSION_ABSOLUTE_TTL",
	"links.resetpasswordurl":           "LINKS_RESET_PASSWORD_URL",
	"links.blockaccounturl":            "LINKS_BLOCK_ACCOUNT_URL",
	"links.supportemail":               "LINKS_SUPPORT_EMAIL",
	"templates.dir":                    "TEMPLATES_DIR",
	"templates.reload":                 "TEMPLATES_RELOAD",
	"security.otp.digits":              "OTP_DIGITS",
	"security.otp.ttl":                 "OTP_TTL",
	"security.otp.cooldown":            "OTP_COOLDOWN",
	"security.otp.maxperwindow":        "OTP_MAX_PER_WINDOW",
	"security.otp.window":              "OTP_WINDOW",
	"security.otp.maxretries":          "OTP_MAX_RETRIES",
	"security.otp.resetgrantttl":       "OTP_RESET_GRANT_TTL",
	"security.otp.dispatchtimeout":     "OTP_DISPATCH_TIMEOUT",
	"security.login.maxfailedattempts": "LOGIN_MAX_FAILED_ATTEMPTS",
	"security.login.lockduration":      "LOGIN_LOCK_DURATION",
	"security.login.bcryptcost":        "BCRYPT_COST",
	"security.reset.tokenttl":          "RESET_TOKEN_TTL",
	"security.reset.cooldown":          "RESET_COOLDOWN",
	"security.reset.maxrequests":       "RESET_MAX_REQUESTS",
	"security.reset.window":            "RESET_WINDOW",
	"security.reset.actiontokenttl":    "RESET_ACTION_TOKEN_TTL",
	"security.cleanupinterval":         "CLEANUP_INTERVAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("mail.provider", "smtp")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("jwt.issuer", "account-guard")
	v.SetDefault("jwt.ttl", time.Hour)
	v.SetDefault("auth.credentialmode", "jwt")
	v.SetDefault("auth.sessionslidingttl", 7*24*time.Hour)
	v.SetDefault("auth.sessionabsolutettl", 30*24*time.Hour)

	v.SetDefault("security.otp.digits", 6)
	v.SetDefault("security.otp.ttl", 10*time.Minute)
	v.SetDefault("security.otp.cooldown", 30*time.Second)
	v.SetDefault("security.otp.maxperwindow", 5)
	v.SetDefault("security.otp.window", time.Hour)
	v.SetDefault("security.otp.maxretries", 3)
	v.SetDefault("security.otp.resetgrantttl", 10*time.Minute)
	v.SetDefault("security.otp.dispatchtimeout", 30*time.Second)
	v.SetDefault("security.login.maxfailedattempts", 3)
	v.SetDefault("security.login.lockduration", 24*time.Hour)
	v.SetDefault("security.login.bcryptcost", 10)
	v.SetDefault("security.reset.tokenttl", 30*time.Minute)
	v.SetDefault("security.reset.cooldown", 30*time.Second)
	v.SetDefault("security.reset.maxrequests", 5)
	v.SetDefault("security.reset.window", time.Hour)
	v.SetDefault("security.reset.actiontokenttl", time.Hour)
	v.SetDefault("security.cleanupinterval", 10*time.Minute)
}

// Load creates a new Config object from the optional .env file and environment variables.
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env into process environment for BindEnv to work with file-based envs
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	}

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("❌ Error reading config file: %s", err)
		}
		log.Printf("⚠️ .env file not found, relying on environment variables")
	} else {
		log.Printf("ℹ️ Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}

	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.SMTP.Username
	}
	if cfg.Links.SupportEmail == "" {
		cfg.Links.SupportEmail = cfg.Mail.From
	}

	log.Printf("🔎 Config loaded: Server.Port=%d Server.Env=%q Mail.Provider=%q Auth.CredentialMode=%q JWTSecretEmpty=%t",
		cfg.Server.Port,
		cfg.Server.Env,
		cfg.Mail.Provider,
		cfg.Auth.CredentialMode,
		cfg.JWT.Secret == "",
	)
	return &cfg
}
