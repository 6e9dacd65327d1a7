package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	apppricing "github.com/erp/marketsync/internal/application/pricing"
	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/interfaces/http/dto"
	"github.com/erp/marketsync/internal/interfaces/http/middleware"
	"github.com/erp/marketsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxCommissionFileSize bounds commission spreadsheet uploads (10MB)
const MaxCommissionFileSize = 10 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CommissionService is the commission cache the handler works on
type CommissionService interface {
	GetCommission(ctx context.Context, categoryID int64) (pricing.CommissionEntry, error)
	SetCommission(ctx context.Context, categoryID int64, entry pricing.CommissionEntry) error
	GetTypeID(ctx context.Context, offerID string) (int64, error)
	LoadCommissionsFromXlsx(ctx context.Context, src io.Reader) (*apppricing.ImportResult, error)
}

// CommissionHandler serves the commission cache endpoints
type CommissionHandler struct {
	BaseHandler
	service CommissionService
}

// NewCommissionHandler creates a CommissionHandler
func NewCommissionHandler(service CommissionService) *CommissionHandler {
	return &CommissionHandler{service: service}
}

// Routes returns the read-only commission route group
func (h *CommissionHandler) Routes() *router.Group {
	return router.NewGroup("commissions", "/commissions").
		GET("/:categoryId", h.Get)
}

// WriteRoutes returns the commission routes that change the cache. guards
// run after the upload body limit, before the handlers.
func (h *CommissionHandler) WriteRoutes(guards ...gin.HandlerFunc) *router.Group {
	mw := append([]gin.HandlerFunc{middleware.BodyLimit(middleware.MaxUploadBodySize)}, guards...)
	return router.NewGroup("commission-writes", "/commissions", mw...).
		POST("/import", h.Import).
		PUT("/:categoryId", h.Put)
}

// TypeIDRoutes returns the SKU category route group
func (h *CommissionHandler) TypeIDRoutes() *router.Group {
	return router.NewGroup("type-ids", "/type-ids").
		GET("/:offerId", h.GetTypeID)
}

// Import loads category commissions from an uploaded xlsx workbook
// (multipart field "file").
func (h *CommissionHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxCommissionFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "file exceeds maximum size of 10MB")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") ||
		(contentType != "" && contentType != xlsxContentType && contentType != "application/octet-stream") {
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeUnsupportedMedia, "file must be an xlsx workbook")
		return
	}

	result, err := h.service.LoadCommissionsFromXlsx(c.Request.Context(), file)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("commissions imported",
		zap.String("file", header.Filename),
		zap.Int("loaded", result.Loaded),
		zap.Int("unmatched", len(result.Unmatched)),
		zap.Int("malformed", len(result.Malformed)),
	)
	h.Success(c, result)
}

// Get returns the cached commission of a category
func (h *CommissionHandler) Get(c *gin.Context) {
	categoryID, ok := h.categoryID(c)
	if !ok {
		return
	}

	entry, err := h.service.GetCommission(c.Request.Context(), categoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CommissionResponse{CategoryID: categoryID, FBO: entry.FBO, FBS: entry.FBS})
}

// Put overwrites the commission of a single category
func (h *CommissionHandler) Put(c *gin.Context) {
	categoryID, ok := h.categoryID(c)
	if !ok {
		return
	}

	var req CommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !validFraction(req.FBO) || !validFraction(req.FBS) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "commissions must be fractions between 0 and 1")
		return
	}

	entry := pricing.CommissionEntry{FBO: req.FBO, FBS: req.FBS}
	if err := h.service.SetCommission(c.Request.Context(), categoryID, entry); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CommissionResponse{CategoryID: categoryID, FBO: entry.FBO, FBS: entry.FBS})
}

// GetTypeID resolves the category of a SKU, asking the catalog on a cache miss
func (h *CommissionHandler) GetTypeID(c *gin.Context) {
	offerID := c.Param("offerId")
	id, err := h.service.GetTypeID(c.Request.Context(), offerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, TypeIDResponse{OfferID: offerID, CategoryID: id})
}

func (h *CommissionHandler) categoryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("categoryId"), 10, 64)
	if err != nil || id <= 0 {
		h.BadRequest(c, "categoryId must be a positive integer")
		return 0, false
	}
	return id, true
}

var one = decimal.NewFromInt(1)

func validFraction(v decimal.Decimal) bool {
	return !v.IsNegative() && v.LessThanOrEqual(one)
}
