package pricewatch

import "time"

// ReconcileResult is the ChangeDetector's output for one product: the
// snapshot to upsert unconditionally, plus the events the transition earned.
type ReconcileResult struct {
	Entry    CatalogEntry
	History  *PriceHistoryEvent
	Movement *StockMovementEvent
}

// ChangeDetector diffs a fresh extraction against the last stored snapshot
// and classifies the transition.
type ChangeDetector struct {
	TenantID     string
	CompetitorID string
}

// Reconcile compares rec against prior (nil on first observation). The entry
// update is always produced; events only when a prior snapshot exists.
func (d *ChangeDetector) Reconcile(rec *ProductRecord, prior *CatalogEntry, now time.Time) ReconcileResult {
	var (
		priceBefore float64
		stockBefore *int
	)
	if prior != nil {
		priceBefore = prior.Price
		stockBefore = prior.Stock
	}

	priceAfter := rec.Price()
	stockAfter := rec.StockQuantity
	priceDelta := priceAfter - priceBefore

	percentDelta := 0.0
	if priceBefore > 0 {
		percentDelta = priceDelta / priceBefore * 100
	}

	result := ReconcileResult{
		Entry: CatalogEntry{
			TenantID:        d.TenantID,
			CompetitorID:    d.CompetitorID,
			Url:             rec.Url,
			Name:            rec.Name,
			Brand:           rec.Brand,
			Sku:             rec.Sku,
			Category:        rec.Category,
			ImageUrl:        rec.ImageUrl,
			Description:     rec.Description,
			Price:           priceAfter,
			PriceNormal:     rec.PriceNormal,
			PricePix:        rec.PricePix,
			Stock:           stockAfter,
			Available:       rec.Available,
			PreviousPrice:   priceBefore,
			PreviousStock:   stockBefore,
			Active:          true,
			LastCollectedAt: now,
		},
	}

	// First observation: snapshot only, no events.
	if prior == nil || (priceBefore == 0 && stockBefore == nil) {
		return result
	}

	movement := MovementNone
	switch {
	case stockBefore != nil && stockAfter != nil && *stockAfter < *stockBefore:
		movement = MovementSale
	case stockBefore != nil && stockAfter != nil && *stockAfter > *stockBefore:
		movement = MovementPurchase
	case priceDelta > 0:
		movement = MovementPriceIncrease
	case priceDelta < 0:
		movement = MovementPriceDecrease
	case prior.Available && !rec.Available:
		movement = MovementStockout
	case !prior.Available && rec.Available:
		movement = MovementRestocked
	}

	result.Movement = &StockMovementEvent{
		TenantID:       d.TenantID,
		CompetitorID:   d.CompetitorID,
		ProductUrl:     rec.Url,
		PriceBefore:    priceBefore,
		PriceAfter:     priceAfter,
		StockBefore:    stockBefore,
		StockAfter:     stockAfter,
		AvailableAfter: rec.Available,
		MovementType:   movement,
		PercentDelta:   percentDelta,
		CollectedAt:    now,
	}

	if priceBefore != 0 && priceBefore != priceAfter {
		result.History = &PriceHistoryEvent{
			TenantID:     d.TenantID,
			CompetitorID: d.CompetitorID,
			ProductUrl:   rec.Url,
			PriceBefore:  priceBefore,
			PriceAfter:   priceAfter,
			PercentDelta: percentDelta,
			CollectedAt:  now,
		}
	}

	return result
}
