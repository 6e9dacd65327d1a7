package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/marketsync/internal/domain/pricing"
	"go.uber.org/zap"
)

const (
	commissionKeyPrefix = "commission:"
	typeIDKeyPrefix     = "type_id:"
)

func commissionKey(categoryID int64) string {
	return commissionKeyPrefix + strconv.FormatInt(categoryID, 10)
}

func typeIDKey(offerID string) string {
	return typeIDKeyPrefix + offerID
}

// CommissionResolver reads category commissions and SKU category ids through
// the shared key-value store. Commissions are only written by bulk import;
// category ids are filled lazily from the catalog.
type CommissionResolver struct {
	store   pricing.KeyValueStore
	catalog pricing.CatalogClient
	layout  SheetLayout
	logger  *zap.Logger
}

// NewCommissionResolver creates a resolver. catalog may be nil, in which case
// category ids come only from the cache and spreadsheet import is unavailable.
func NewCommissionResolver(store pricing.KeyValueStore, catalog pricing.CatalogClient, logger *zap.Logger) *CommissionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommissionResolver{
		store:   store,
		catalog: catalog,
		layout:  DefaultSheetLayout(),
		logger:  logger,
	}
}

// WithSheetLayout overrides the column layout of commission spreadsheets
func (r *CommissionResolver) WithSheetLayout(layout SheetLayout) *CommissionResolver {
	r.layout = layout
	return r
}

// GetCommission returns the commission fractions of a category. A cold cache
// yields ErrCommissionNotFound; there is no network fallback.
func (r *CommissionResolver) GetCommission(ctx context.Context, categoryID int64) (pricing.CommissionEntry, error) {
	raw, found, err := r.store.Get(ctx, commissionKey(categoryID))
	if err != nil {
		return pricing.CommissionEntry{}, fmt.Errorf("commission lookup for category %d: %w", categoryID, err)
	}
	if !found {
		return pricing.CommissionEntry{}, fmt.Errorf("%w: category %d", pricing.ErrCommissionNotFound, categoryID)
	}

	var entry pricing.CommissionEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return pricing.CommissionEntry{}, fmt.Errorf("commission cache entry for category %d is corrupt: %w", categoryID, err)
	}
	return entry, nil
}

// SetCommission overwrites the commission fractions of a category
func (r *CommissionResolver) SetCommission(ctx context.Context, categoryID int64, entry pricing.CommissionEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, commissionKey(categoryID), string(raw))
}

// GetTypeID returns the category id of a SKU, asking the catalog on a cache
// miss and caching its answer. Unknown SKUs yield ErrCategoryNotFound.
func (r *CommissionResolver) GetTypeID(ctx context.Context, offerID string) (int64, error) {
	raw, found, err := r.store.Get(ctx, typeIDKey(offerID))
	if err != nil {
		return 0, fmt.Errorf("type id lookup for %s: %w", offerID, err)
	}
	if found {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err == nil && id != 0 {
			return id, nil
		}
		r.logger.Warn("ignoring corrupt type id cache entry",
			zap.String("offer_id", offerID),
			zap.String("value", raw),
		)
	}

	if r.catalog == nil {
		return 0, fmt.Errorf("%w: %s", pricing.ErrCategoryNotFound, offerID)
	}

	info, err := r.catalog.GetProductInfo(ctx, offerID)
	if errors.Is(err, pricing.ErrProductNotFound) {
		return 0, fmt.Errorf("%w: %s", pricing.ErrCategoryNotFound, offerID)
	}
	if err != nil {
		return 0, err
	}
	if info.CategoryID == 0 {
		return 0, fmt.Errorf("%w: %s has no category", pricing.ErrCategoryNotFound, offerID)
	}

	if err := r.RememberTypeID(ctx, offerID, info.CategoryID); err != nil {
		return 0, err
	}
	return info.CategoryID, nil
}

// RememberTypeID caches the category id of a SKU
func (r *CommissionResolver) RememberTypeID(ctx context.Context, offerID string, categoryID int64) error {
	return r.store.Set(ctx, typeIDKey(offerID), strconv.FormatInt(categoryID, 10))
}
