package handlers

import (
	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/repository"
)

type APIHandlers struct {
	Users *UsersHandler
	Lemon *LemonHandler
}

func InitHandlers(cfg *config.Config, log logger.Logger, r *repository.Repositories) *APIHandlers {
	return &APIHandlers{
		Users: NewUsersHandler(r, cfg.MailConfig.Domain, cfg.AppConfig.LemonPaymentURL),
		Lemon: NewLemonHandler(r, cfg.AppConfig.LemonWebhookSecret, log),
	}
}
