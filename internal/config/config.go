// Package config loads worker configuration from the environment, following
// the same getenv/getint/getduration shape the rest of this codebase uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
)

type Config struct {
	AWSRegion    string
	SNSOutARN    string
	DBTableName  string
	RedisAddr    string
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	H3Resolution int

	IndexBatchMax  int
	H3QueryMax     int
	NotifyBatchMax int
	StoreMaxRetries int

	StoreReadTimeout    time.Duration
	StoreConnectTimeout time.Duration

	NotificationAttrMaxBytes int
	WorkerConcurrency        int

	LogLevel   string
	LogConsole bool

	AdminAddr string
}

// FromEnv builds a Config, returning a ConfigError-kinded error when a
// required variable is missing.
func FromEnv() (Config, error) {
	cfg := Config{
		AWSRegion:    getenv("AWS_REGION", "us-west-2"),
		SNSOutARN:    os.Getenv("SNS_OUT_ARN"),
		DBTableName:  os.Getenv("DB_TABLE_NAME"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getenv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   getenv("KAFKA_WORK_TOPIC", "aoi-work"),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "aoi-notifier"),

		H3Resolution: getint("H3_RESOLUTION", 3),

		IndexBatchMax:   getint("INDEX_BATCH_MAX", 25),
		H3QueryMax:      getint("H3_QUERY_MAX", 50),
		NotifyBatchMax:  getint("NOTIFY_BATCH_MAX", 10),
		StoreMaxRetries: getint("STORE_MAX_RETRIES", 8),

		StoreReadTimeout:    getduration("STORE_READ_TIMEOUT", 30*time.Second),
		StoreConnectTimeout: getduration("STORE_CONNECT_TIMEOUT", 10*time.Second),

		NotificationAttrMaxBytes: getint("NOTIFICATION_ATTR_MAX_BYTES", 256*1024),
		WorkerConcurrency:        getint("WORKER_CONCURRENCY", 4),

		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),

		AdminAddr: getenv("ADMIN_ADDR", ":8090"),
	}

	if cfg.SNSOutARN == "" {
		return Config{}, errs.New(errs.ConfigError, "config.FromEnv", fmt.Errorf("SNS_OUT_ARN is required"))
	}
	if cfg.DBTableName == "" {
		return Config{}, errs.New(errs.ConfigError, "config.FromEnv", fmt.Errorf("DB_TABLE_NAME is required"))
	}
	if cfg.H3Resolution < 0 || cfg.H3Resolution > 15 {
		return Config{}, errs.New(errs.ConfigError, "config.FromEnv", fmt.Errorf("H3_RESOLUTION must be 0..15, got %d", cfg.H3Resolution))
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
