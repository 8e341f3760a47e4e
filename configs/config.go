package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREAPI_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
		AllowOrigins    []string      `koanf:"allow_origins"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		AutoMigrate     bool          `koanf:"auto_migrate"`
	} `koanf:"mysql"`

	// Redis is optional; without it locks are in-process and there is no
	// status cache or idempotency store.
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Cache struct {
		StatusTTL time.Duration `koanf:"status_ttl"`
	} `koanf:"cache"`

	CartLock struct {
		TTL  time.Duration `koanf:"ttl"`
		Wait time.Duration `koanf:"wait"`
	} `koanf:"cart_lock"`

	// Rabbit is optional; without it notifications are mailed directly.
	Rabbit struct {
		URL      string `koanf:"url"`
		Prefetch int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	// Kafka is optional; the restock consumer only starts with brokers set.
	Kafka struct {
		Brokers     []string      `koanf:"brokers"`
		GroupID     string        `koanf:"group_id"`
		TopicStock  string        `koanf:"topic_stock"`
		ClientID    string        `koanf:"client_id"`
		FromOldest  bool          `koanf:"from_oldest"`
		DialTimeout time.Duration `koanf:"dial_timeout"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret       string        `koanf:"jwt_secret"`
		Issuer          string        `koanf:"issuer"`
		Audience        string        `koanf:"audience"`
		TTL             time.Duration `koanf:"ttl"`
		BcryptCost      int           `koanf:"bcrypt_cost"`
		BootstrapAdmins []string      `koanf:"bootstrap_admins"`
	} `koanf:"security"`

	Mail struct {
		Host          string        `koanf:"host"`
		Port          int           `koanf:"port"`
		Username      string        `koanf:"username"`
		Password      string        `koanf:"password"`
		From          string        `koanf:"from"`
		StoreName     string        `koanf:"store_name"`
		NotifyTimeout time.Duration `koanf:"notify_timeout"`
	} `koanf:"mail"`

	Storage struct {
		Driver    string `koanf:"driver"` // local | s3
		LocalRoot string `koanf:"local_root"`
		BaseURL   string `koanf:"base_url"`
		URLPath   string `koanf:"url_path"` // route serving local files
		S3        struct {
			Bucket    string `koanf:"bucket"`
			Region    string `koanf:"region"`
			Endpoint  string `koanf:"endpoint"`
			PublicURL string `koanf:"public_url"`
			Prefix    string `koanf:"prefix"`
		} `koanf:"s3"`
	} `koanf:"storage"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix STOREAPI_, nested with __)
	// e.g. STOREAPI_MYSQL__DSN, STOREAPI_SECURITY__JWT_SECRET
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.MySQL.DSN == "" {
		errs = append(errs, errors.New("mysql.dsn required"))
	}
	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 32 bytes"))
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		errs = append(errs, errors.New("mail.from required when mail.host is set"))
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.GroupID == "" || c.Kafka.TopicStock == "") {
		errs = append(errs, errors.New("kafka.group_id and kafka.topic_stock required when brokers are set"))
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalRoot == "" || c.Storage.BaseURL == "" {
			errs = append(errs, errors.New("storage.local_root and storage.base_url required for local storage"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "" {
			errs = append(errs, errors.New("storage.s3.bucket and storage.s3.region required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be local or s3, got %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
