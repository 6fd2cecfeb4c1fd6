// Package foodtypes serves the canonical food type reference list used by
// listing filters and forms. The list lives in the database and changes
// rarely, so reads go through a short-lived in-process cache.
package foodtypes

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	apphttp "foodbridge_backend/internal/http"
	"foodbridge_backend/platform/httpkit"
	"foodbridge_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cacheTTL = 10 * time.Minute

// Module serves the food type reference list.
type Module struct {
	pool *pgxpool.Pool
	log  *logger.Logger

	cacheMu   sync.RWMutex
	cached    []string
	expiresAt time.Time
}

// NewModule creates the food types module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{pool: pool, log: log}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "foodtypes"
}

// RegisterRoutes registers the module's routes under /api/v1/food-types.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/food-types", m.getFoodTypes)
}

func (m *Module) getFoodTypes(c *gin.Context) {
	types, err := m.list(c.Request.Context())
	if err != nil {
		m.log.Error("failed to load food types", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to load food types")
		return
	}

	httpkit.OK(c, gin.H{"foodTypes": types})
}

func (m *Module) list(ctx context.Context) ([]string, error) {
	if cached := m.fromCache(); cached != nil {
		return cached, nil
	}

	rows, err := m.pool.Query(ctx, `SELECT name FROM food_types ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("query food types: %w", err)
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan food type: %w", err)
		}
		types = append(types, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate food types: %w", err)
	}

	m.store(types)
	return types, nil
}

func (m *Module) fromCache() []string {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	if m.cached == nil || time.Now().After(m.expiresAt) {
		return nil
	}
	return m.cached
}

func (m *Module) store(types []string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	m.cached = types
	m.expiresAt = time.Now().Add(cacheTTL)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
