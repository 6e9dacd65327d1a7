package handler

import (
	"context"

	apppricing "github.com/erp/marketsync/internal/application/pricing"
	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/interfaces/http/middleware"
	"github.com/erp/marketsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PriceOptimizer prices a batch in place
type PriceOptimizer interface {
	Optimize(ctx context.Context, batch *pricing.Batch) (*apppricing.OptimizeResult, error)
	Enrich(ctx context.Context, batch *pricing.Batch) (int, error)
}

// ProfitabilityScanner finds items sold below cost
type ProfitabilityScanner interface {
	Scan(ctx context.Context, items []*pricing.PricedItem) *apppricing.ScanReport
}

// PricingHandler serves batch pricing and the unprofitability scan
type PricingHandler struct {
	BaseHandler
	optimizer PriceOptimizer
	scanner   ProfitabilityScanner
}

// NewPricingHandler creates a PricingHandler
func NewPricingHandler(optimizer PriceOptimizer, scanner ProfitabilityScanner) *PricingHandler {
	return &PricingHandler{
		optimizer: optimizer,
		scanner:   scanner,
	}
}

// Routes returns the pricing route group
func (h *PricingHandler) Routes() *router.Group {
	return router.NewGroup("pricing", "/pricing", middleware.BodyLimit(middleware.MaxBatchBodySize)).
		POST("/optimize", h.Optimize).
		POST("/unprofitable", h.Unprofitable)
}

// Optimize prices a batch of items. Items that cannot be priced are listed
// in skipped and returned without a quote.
func (h *PricingHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	batch := pricing.NewBatch(toDomainItems(req.Items))

	enriched := 0
	if req.Enrich {
		n, err := h.optimizer.Enrich(ctx, batch)
		if err != nil {
			// pricing still runs on the submitted data
			logger.FromContext(ctx).Warn("catalog enrichment failed",
				zap.String("batch_id", batch.ID.String()),
				zap.Error(err),
			)
		}
		enriched = n
	}

	result, err := h.optimizer.Optimize(ctx, batch)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, OptimizeResponse{
		BatchID:  result.BatchID,
		Total:    result.Total,
		Priced:   result.Priced,
		Enriched: enriched,
		Skipped:  result.Skipped,
		Items:    batch.Items,
	})
}

// Unprofitable reports the items whose payout at their current price does not
// cover their cost
func (h *PricingHandler) Unprofitable(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	h.Success(c, h.scanner.Scan(c.Request.Context(), toDomainItems(req.Items)))
}
