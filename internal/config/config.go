package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const referenceDateLayout = "2006-01-02"

type Config struct {
	App struct {
		Env      string `validate:"omitempty,oneof=dev prod test"`
		Timezone string
		LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	} `mapstructure:"app"`

	Telegram struct {
		Token       string `validate:"required"`
		AdminChatID int64  `mapstructure:"admin_chat_id"`
		PollTimeout int    `mapstructure:"poll_timeout" validate:"gte=0"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string `validate:"required"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string `validate:"required"`
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Stock struct {
		SheetName     string `mapstructure:"sheet_name"`
		MaxUploadMB   int    `mapstructure:"max_upload_mb" validate:"gte=1"`
		PreviewRows   int    `mapstructure:"preview_rows" validate:"gte=0"`
		ReferenceDate string `mapstructure:"reference_date" validate:"omitempty,datetime=2006-01-02"`
	} `mapstructure:"stock"`

	Redis struct {
		Addr     string
		Password string
		DB       int           `validate:"gte=0"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`

	Memo struct {
		MaxEntries int `mapstructure:"max_entries" validate:"gte=0"`
	} `mapstructure:"memo"`
}

func Load(path string) (Config, error) {
	// .env is optional; values from it are visible to AutomaticEnv below
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if err := validator.New().Struct(c); err != nil {
		return c, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("stock.sheet_name", "Sheet1")
	v.SetDefault("stock.max_upload_mb", 20)
	v.SetDefault("stock.preview_rows", 15)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("memo.max_entries", 256)
}

// Location resolves app.timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil || c.App.Timezone == "" {
		return time.UTC
	}
	return loc
}

// Clock returns the reference-time source for bucketing: the pinned
// stock.reference_date when set, otherwise the wall clock in app.timezone.
func (c Config) Clock() func() time.Time {
	loc := c.Location()
	if c.Stock.ReferenceDate != "" {
		if d, err := time.ParseInLocation(referenceDateLayout, c.Stock.ReferenceDate, loc); err == nil {
			return func() time.Time { return d }
		}
	}
	return func() time.Time { return time.Now().In(loc) }
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.Stock.MaxUploadMB) << 20
}
