package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	MailConfig     *MailConfig
	FanoutConfig   *FanoutConfig
	DatabaseConfig *DatabaseConfig
	SheetsConfig   *SheetsConfig
	R2Config       *R2StorageConfig
	CronConfig     *CronConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		MailConfig:     &MailConfig{},
		FanoutConfig:   &FanoutConfig{},
		DatabaseConfig: &DatabaseConfig{},
		SheetsConfig:   &SheetsConfig{},
		R2Config:       &R2StorageConfig{},
		CronConfig:     &CronConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
