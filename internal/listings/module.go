// Package listings provides the food listing lifecycle domain module.
package listings

import (
	"foodbridge_backend/internal/events"
	apphttp "foodbridge_backend/internal/http"
	"foodbridge_backend/internal/listings/handler"
	"foodbridge_backend/internal/listings/repository"
	"foodbridge_backend/internal/listings/service"
	"foodbridge_backend/platform/logger"
	"foodbridge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the listings domain module.
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new listings module with all dependencies wired.
// reminders may be nil when no scheduler backend is configured.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, enricher service.DistanceEnricher, bus events.Bus, reminders service.ReminderScheduler, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, enricher, bus, reminders, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "listings"
}

// RegisterRoutes registers the module's routes under /api/v1/listings.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	listings := ctx.Protected.Group("/listings")
	m.handler.RegisterRoutes(listings)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
