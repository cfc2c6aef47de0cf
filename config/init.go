package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/tracing"
)

type Config struct {
	AppConfig               *AppConfig
	Logger                  *logger.Config
	Tracing                 *tracing.JaegerConfig
	DealstackDatabaseConfig *DealstackDatabaseConfig
	PipelineConfig          *PipelineConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:               &AppConfig{},
		Logger:                  &logger.Config{},
		Tracing:                 &tracing.JaegerConfig{},
		DealstackDatabaseConfig: &DealstackDatabaseConfig{},
		PipelineConfig:          &PipelineConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading dealstack config: %v", err)
	}

	return config, nil
}
