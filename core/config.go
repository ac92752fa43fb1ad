package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		SecretKey          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	EmailConfig struct {
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
		NotifyEmails     []mail.Address
	}

	GradingConfig struct {
		DefaultMaxScore    float64
		Weights            Weights
		Boundaries         Boundaries
		AuditMaxRetries    uint64
		AuditRetryInterval time.Duration
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string
		Database     DatabaseConfig
		Server       ServerConfig
		Email        EmailConfig
		Grading      GradingConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Gradebook")
	v.SetDefault("build", "develop")

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "gradebook")
	v.SetDefault("dbUser", "gradebook")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("secretKey", "9xk3-#w2@(l9d+0h_ns*qf7o2jz6y!$8u^g%v1pe&at5mc=rb4")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)

	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Gradebook <noreply@localhost>")
	v.SetDefault("notifyEmails", "")

	v.SetDefault("defaultMaxScore", 100.0)
	v.SetDefault("courseworkWeight", DefaultWeights.Coursework)
	v.SetDefault("examWeight", DefaultWeights.Exam)
	v.SetDefault("gradeBoundaries", DefaultBoundaries.String())
	v.SetDefault("auditMaxRetries", 3)
	v.SetDefault("auditRetryInterval", 200*time.Millisecond)
}

// NewConfig loads the app configuration from the environment.
// Variables are prefixed with the value of ENV (DEV (local; default), TEST, QA, PROD),
// and a `config/.env.<env>` file is loaded first if it exists.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	return buildConfig(v, env, wd)
}

func buildConfig(v *viper.Viper, env, wd string) (*Config, error) {
	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Address:            v.GetString("serverAddress"),
			DebugHost:          v.GetString("serverDebugHost"),
			SecretKey:          v.GetString("secretKey"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("shutdownTimeout"),
		},
		Email: EmailConfig{
			SendgridAPIKey: v.GetString("sendgridApiKey"),
		},
		Grading: GradingConfig{
			DefaultMaxScore: v.GetFloat64("defaultMaxScore"),
			Weights: Weights{
				Coursework: v.GetFloat64("courseworkWeight"),
				Exam:       v.GetFloat64("examWeight"),
			},
			AuditMaxRetries:    v.GetUint64("auditMaxRetries"),
			AuditRetryInterval: v.GetDuration("auditRetryInterval"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}
	conf.Email.DefaultFromEmail = *from

	if raw := CleanString(v.GetString("notifyEmails")); raw != "" {
		addrs, err := mail.ParseAddressList(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parsing notifyEmails")
		}
		for _, a := range addrs {
			conf.Email.NotifyEmails = append(conf.Email.NotifyEmails, *a)
		}
	}

	bounds, err := ParseBoundaries(v.GetString("gradeBoundaries"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing gradeBoundaries")
	}
	conf.Grading.Boundaries = bounds

	if err := conf.Grading.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating grading config")
	}
	return conf, nil
}

// Validate rejects inconsistent grading defaults at load time.
func (c GradingConfig) Validate() error {
	if c.DefaultMaxScore <= 0 {
		return NewValidationError(
			errors.New("invalid default max score"),
			FieldError{Field: "default_max_score", Error: "must be greater than 0"},
		)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	return c.Boundaries.Validate()
}
