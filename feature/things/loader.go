package things

import (
	"collection-mapper/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new things feature.
func NewFeature(db *gorm.DB, engine *reconcile.Engine, logger *zap.Logger, cfg Config) *Feature {
	svc := NewService(db, engine, logger, cfg)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "things"
}

// IsEnabled reports whether the routes should be served. A database is required.
func (f *Feature) IsEnabled() bool {
	return f.service.cfg.Enabled && f.service.db != nil
}

// Service returns the feature's service.
func (f *Feature) Service() *Service {
	return f.service
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
