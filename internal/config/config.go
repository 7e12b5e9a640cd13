// Package config загружает настройки taskflow и record сервера через viper:
// значения по умолчанию, taskflow.yaml и переменные окружения TASKFLOW_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/St1cky1/taskflow/internal/infrastructure/client"
	"github.com/spf13/viper"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"

	BlobFile  = "file"
	BlobRedis = "redis"
)

type StorageConfig struct {
	Backend string
	Blob    string
	Dir     string
	Key     string
}

type Config struct {
	Storage      StorageConfig
	RedisAddr    string
	RecordsAddr  string
	RecordsTable string
	HTTPAddr     string
	RabbitMQURL  string

	Database       client.Config
	GRPCPort       string
	GatewayPort    string
	MigrationsPath string
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "taskflow")
	}
	return ".taskflow"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.blob", BlobFile)
	v.SetDefault("storage.dir", defaultDataDir())
	v.SetDefault("storage.key", "taskflow_tasks")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("records.addr", "localhost:9090")
	v.SetDefault("records.table", "tasks")
	v.SetDefault("http.addr", ":8081")
	v.SetDefault("rabbitmq.url", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "taskflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("grpc.port", "9090")
	v.SetDefault("gateway.port", "8080")
	v.SetDefault("migrations.path", "migrations")
}

// Load читает конфигурацию. configFile может быть пустым, тогда ищется
// taskflow.yaml в текущей директории и в $HOME/.config/taskflow.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("taskflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "taskflow"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage.backend")),
			Blob:    strings.ToLower(v.GetString("storage.blob")),
			Dir:     v.GetString("storage.dir"),
			Key:     v.GetString("storage.key"),
		},
		RedisAddr:    v.GetString("redis.addr"),
		RecordsAddr:  v.GetString("records.addr"),
		RecordsTable: v.GetString("records.table"),
		HTTPAddr:     v.GetString("http.addr"),
		RabbitMQURL:  v.GetString("rabbitmq.url"),
		Database: client.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		GRPCPort:       v.GetString("grpc.port"),
		GatewayPort:    v.GetString("gateway.port"),
		MigrationsPath: v.GetString("migrations.path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		switch c.Storage.Blob {
		case BlobFile:
			if c.Storage.Dir == "" {
				return fmt.Errorf("storage.dir is required for file blob store")
			}
		case BlobRedis:
			if c.RedisAddr == "" {
				return fmt.Errorf("redis.addr is required for redis blob store")
			}
		default:
			return fmt.Errorf("unknown storage.blob %q (want %s or %s)", c.Storage.Blob, BlobFile, BlobRedis)
		}
	case BackendRemote:
		if c.RecordsAddr == "" {
			return fmt.Errorf("records.addr is required for remote backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q (want %s or %s)", c.Storage.Backend, BackendLocal, BackendRemote)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key must not be empty")
	}
	return nil
}
