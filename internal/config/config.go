// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMTP                    `yaml:"smtp"`
	RabbitMQ                `yaml:"rabbitmq"`
	Trial                   `yaml:"trial"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// SMTP структура для настройки подключения к почтовому серверу
type SMTP struct {
	SMTPHost   string `yaml:"smtp_host"`
	SMTPPort   string `yaml:"smtp_port"`
	SMTPUser   string `yaml:"smtp_user"`
	SMTPPass   string `yaml:"smtp_pass"`
	SalesEmail string `yaml:"sales_email"` // Адрес отдела продаж для писем о новых заявках
}

// RabbitMQ структура для настройки подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay"`
}

// Trial структура с политикой пробного периода.
//
// TrialAccessBaseURL — базовый адрес, относительно которого строится ссылка входа.
// TrialDays — длительность пробного периода по умолчанию.
// ReminderWindowDays — за сколько дней до окончания отправляется напоминание.
// SweepInterval — периодичность запуска очистки просроченных записей.
// StrictStatusTransitions — проверять ли граф переходов статусов при
// административном обновлении (false сохраняет разрешающее поведение).
type Trial struct {
	TrialAccessBaseURL      string        `yaml:"trial_access_base_url" env-default:"https://trial.example.com"`
	TrialDays               int           `yaml:"trial_days" env-default:"30"`
	ReminderWindowDays      int           `yaml:"reminder_window_days" env-default:"7"`
	SweepInterval           time.Duration `yaml:"sweep_interval" env-default:"12h"`
	StrictStatusTransitions bool          `yaml:"strict_status_transitions" env-default:"false"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной окружения CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
