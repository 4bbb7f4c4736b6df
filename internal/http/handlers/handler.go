package handlers

import (
	"genfity-analytics-service/internal/config"
	"genfity-analytics-service/internal/services"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	Analytics *services.Analytics
	Snapshots *services.Snapshotter
	Logger    *zap.Logger
	Config    config.Config
	Validate  *validator.Validate
}

func New(svc *services.Analytics, snapshots *services.Snapshotter, logger *zap.Logger, cfg config.Config) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Analytics: svc,
		Snapshots: snapshots,
		Logger:    logger,
		Config:    cfg,
		Validate:  newValidator(),
	}
}
