package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type ConfigSchema struct {
	Databases struct {
		// Driver: postgres (по умолчанию) или sqlite
		Driver     string     `yaml:"driver"`
		SQLitePath string     `yaml:"sqlite_path"`
		Master     DBConfig   `yaml:"master"`
		Replicas   []DBConfig `yaml:"replicas"`
	} `yaml:"databases"`
	Backend struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"backend"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Host      string        `yaml:"host"`
		Port      int           `yaml:"port"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		MatrixTTL time.Duration `yaml:"matrix_ttl"`
	} `yaml:"redis"`
	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled"`
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Friends struct {
		ResendCooldown time.Duration `yaml:"resend_cooldown"`
	} `yaml:"friends"`
	Correlation struct {
		MissingValue *float64 `yaml:"missing_value"`
	} `yaml:"correlation"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
}

const (
	DefaultResendCooldown = 5 * time.Minute
	DefaultMissingValue   = 1.0
	DefaultMatrixTTL      = 10 * time.Minute
)

// LoadConfig читает yaml, затем поверх накладывает .env и переменные окружения
func LoadConfig(filePath string) (*ConfigSchema, error) {
	conf := &ConfigSchema{}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
		}
	}

	// .env необязателен
	_ = godotenv.Load()
	if err := conf.applyEnv(); err != nil {
		return nil, err
	}
	conf.applyDefaults()
	return conf, nil
}

// MissingCorrelation - значение для пары без записи в correlation_entries
func (c *ConfigSchema) MissingCorrelation() float64 {
	if c.Correlation.MissingValue == nil {
		return DefaultMissingValue
	}
	return *c.Correlation.MissingValue
}

func (c *ConfigSchema) applyDefaults() {
	if c.Databases.Driver == "" {
		c.Databases.Driver = "postgres"
	}
	if c.Databases.Master.Port == 0 {
		c.Databases.Master.Port = 5432
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8080
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.MatrixTTL <= 0 {
		c.Redis.MatrixTTL = DefaultMatrixTTL
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "stock_list_events"
	}
	if c.Friends.ResendCooldown <= 0 {
		c.Friends.ResendCooldown = DefaultResendCooldown
	}
}

func (c *ConfigSchema) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("DB_DRIVER", &c.Databases.Driver)
	setString("DB_HOST", &c.Databases.Master.Host)
	setString("DB_USER", &c.Databases.Master.User)
	setString("DB_PASSWORD", &c.Databases.Master.Password)
	setString("DB_NAME", &c.Databases.Master.DBName)
	setString("REDIS_HOST", &c.Redis.Host)
	if err := setInt("DB_PORT", &c.Databases.Master.Port); err != nil {
		return err
	}
	if err := setInt("REDIS_PORT", &c.Redis.Port); err != nil {
		return err
	}
	if err := setInt("BACKEND_PORT", &c.Backend.Port); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("RABBITMQ_URL"); ok {
		c.RabbitMQ.URL = v
		c.RabbitMQ.Enabled = v != ""
	}
	return nil
}
