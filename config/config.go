package config

import (
	"time"

	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

type DealstackDatabaseConfig struct {
	Host            string `env:"DEALSTACK_POSTGRES_HOST,required"`
	Port            string `env:"DEALSTACK_POSTGRES_PORT,required"`
	User            string `env:"DEALSTACK_POSTGRES_USER,required"`
	DBName          string `env:"DEALSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"DEALSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"DEALSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"DEALSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"DEALSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"DEALSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"DEALSTACK_POSTGRES_SSL_MODE"`
}

type PipelineConfig struct {
	// IntakeAlias is the address that marks an email as deal intake
	IntakeAlias string `env:"PIPELINE_INTAKE_ALIAS" envDefault:"deals@mycrm"`

	RetryAttempts  int           `env:"PIPELINE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay     time.Duration `env:"PIPELINE_RETRY_DELAY" envDefault:"5s"`
	AttemptTimeout time.Duration `env:"PIPELINE_ATTEMPT_TIMEOUT" envDefault:"30s"`

	// StalenessWindow caps how old an email may be and still be processed
	StalenessWindow time.Duration `env:"PIPELINE_STALENESS_WINDOW" envDefault:"720h"`

	// RetirementHorizon is the inactivity window after which thread
	// entries stop being correlation candidates
	RetirementHorizon time.Duration `env:"PIPELINE_RETIREMENT_HORIZON" envDefault:"2160h"`

	// DefaultUserID is the acting user credited with created records
	DefaultUserID string `env:"PIPELINE_DEFAULT_USER_ID" envDefault:"1"`
}
