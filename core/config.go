package core

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

type (
	Config struct {
		AppName      string
		Build        string
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Auth     AuthConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Addr            string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		SecureCookies   bool
	}

	AuthConfig struct {
		AccessTokenLifetime        time.Duration
		WebRefreshTokenLifetime    time.Duration
		MobileRefreshTokenLifetime time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		URL string
	}
)

// Address returns the "host:port" of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

func (dc DatabaseConfig) IsMemory() bool {
	return dc.Engine == "memory"
}

// NewConfig loads the app configuration from the environment.
// `config/.env.<env>` is loaded first if it exists.
func NewConfig() *Config {
	conf, err := LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("loading config: %v", err))
	}
	return conf
}

func LoadConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SecureCookies:   v.GetBool("server.secureCookies"),
		},
		Auth: AuthConfig{
			AccessTokenLifetime:        v.GetDuration("auth.accessTokenLifetime"),
			WebRefreshTokenLifetime:    v.GetDuration("auth.webRefreshTokenLifetime"),
			MobileRefreshTokenLifetime: v.GetDuration("auth.mobileRefreshTokenLifetime"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "SSM")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.secureCookies", false)

	v.SetDefault("auth.accessTokenLifetime", 30*time.Minute)
	v.SetDefault("auth.webRefreshTokenLifetime", 24*time.Hour)
	v.SetDefault("auth.mobileRefreshTokenLifetime", 90*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ssm")
	v.SetDefault("database.user", "ssm")
	v.SetDefault("database.password", "ssm")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.url", "")
}

// Validate checks the settings the app cannot run without.
func (conf *Config) Validate() error {
	checks := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.AppName, "appName"),
		vala.StringNotEmpty(conf.SecretKey, "secretKey"),
		vala.GreaterThan(int(conf.Auth.AccessTokenLifetime), 0, "auth.accessTokenLifetime"),
		vala.GreaterThan(int(conf.Auth.WebRefreshTokenLifetime), 0, "auth.webRefreshTokenLifetime"),
		vala.GreaterThan(int(conf.Auth.MobileRefreshTokenLifetime), 0, "auth.mobileRefreshTokenLifetime"),
	)
	if !conf.Database.IsMemory() {
		checks = checks.Validate(vala.StringNotEmpty(conf.Database.Name, "database.name"))
	}
	if err := checks.Check(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if !(conf.Debug || conf.TestMode) && conf.SecretKey == defaultSecretKey {
		return errors.New("invalid config: secretKey must be set outside DEV|TEST")
	}
	return nil
}

// NewTestConfig returns a config suitable for tests: in-memory storage, no external services.
func NewTestConfig() *Config {
	return &Config{
		AppName:   "SSM",
		Build:     "test",
		Env:       "TEST",
		Debug:     false,
		TestMode:  true,
		SecretKey: "secret",
		Server: ServerConfig{
			Addr:            ":0",
			ShutdownTimeout: time.Second,
		},
		Auth: AuthConfig{
			AccessTokenLifetime:        30 * time.Minute,
			WebRefreshTokenLifetime:    24 * time.Hour,
			MobileRefreshTokenLifetime: 90 * 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "memory"},
	}
}
