package config

import (
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// AppConfig holds global application configuration
var AppConfig *Config
var once sync.Once

type Config struct {
	AppName  string `mapstructure:"APP_NAME"`
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"`
	Debug    bool   `mapstructure:"DEBUG"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// Scheduler timers (robfig/cron specs)
	PMSchedule         string `mapstructure:"PM_SCHEDULE"`
	CycleCountSchedule string `mapstructure:"CYCLE_COUNT_SCHEDULE"`
	SchedulerTZ        string `mapstructure:"SCHEDULER_TZ"`

	// Work order policy
	PMWorkOrderStatus  string `mapstructure:"PM_WO_STATUS"`
	RequireApproval    bool   `mapstructure:"WO_REQUIRE_APPROVAL"`
	MeterBaselineReset string `mapstructure:"PM_METER_BASELINE_RESET"`

	AllowNegativeStock bool `mapstructure:"ALLOW_NEGATIVE_STOCK"`

	SignalChannel   string        `mapstructure:"SIGNAL_CHANNEL"`
	SignalDedupeTTL time.Duration `mapstructure:"SIGNAL_DEDUPE_TTL"`
}

// Defaults applied before the environment is decoded on top.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"APP_NAME":                "cmms",
		"PORT":                    "8080",
		"APP_ENV":                 "development",
		"LOG_LEVEL":               "info",
		"DB_DRIVER":               "mysql",
		"SQLITE_PATH":             "cmms.db",
		"PM_SCHEDULE":             "@every 5m",
		"CYCLE_COUNT_SCHEDULE":    "@every 15m",
		"SCHEDULER_TZ":            "UTC",
		"PM_WO_STATUS":            "APPROVED",
		"WO_REQUIRE_APPROVAL":     false,
		"PM_METER_BASELINE_RESET": "generation",
		"SIGNAL_CHANNEL":          "cmms:signals",
		"SIGNAL_DEDUPE_TTL":       "1h",
	}
}

// LoadAppConfig initializes the global AppConfig variable
func LoadAppConfig() {
	once.Do(func() {
		cfg, err := Decode(environ())
		if err != nil {
			panic("config: " + err.Error())
		}
		AppConfig = cfg
	})
}

// Decode builds a Config from defaults overlaid with values. Values may be strings.
func Decode(values map[string]string) (*Config, error) {
	in := defaults()
	for k, v := range values {
		if v != "" {
			in[k] = v
		}
	}
	cfg := &Config{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			trimSpaceHook(),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(in); err != nil {
		return nil, err
	}
	cfg.PMWorkOrderStatus = strings.ToUpper(cfg.PMWorkOrderStatus)
	cfg.MeterBaselineReset = strings.ToLower(cfg.MeterBaselineReset)
	return cfg, nil
}

// Location returns the scheduler time zone, UTC when unknown.
func (c *Config) Location() *time.Location {
	if c == nil || c.SchedulerTZ == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.SchedulerTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// GetEnv returns the env var or def when unset.
func GetEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

func trimSpaceHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() == reflect.String && to.Kind() == reflect.String {
			return strings.TrimSpace(data.(string)), nil
		}
		return data, nil
	}
}
