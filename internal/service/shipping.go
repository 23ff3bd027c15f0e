package service

import (
	"context"
	"fmt"

	"print-checkout-backend/internal/client"
	"print-checkout-backend/internal/model"
)

// consolidateTiers collapses the cart's per-item shipping tiers into the
// minimal set of charges: one flat-pack envelope covers every flat item, and
// one tube sized to the largest item covers every rolled item. Smaller tubes
// are absorbed and never separately charged. Output is at most two tiers,
// tube first, independent of input order.
func consolidateTiers(lines []*model.ValidatedLine) []model.ShippingTier {
	var largestTube model.ShippingTier
	flat := false

	for _, line := range lines {
		tier := line.Product.ShippingTier
		if tier == model.TierFlat {
			flat = true
			continue
		}
		if tier.IsTube() && tier.TubeRank() > largestTube.TubeRank() {
			largestTube = tier
		}
	}

	var tiers []model.ShippingTier
	if largestTube != "" {
		tiers = append(tiers, largestTube)
	}
	if flat {
		tiers = append(tiers, model.TierFlat)
	}
	return tiers
}

// resolveRates prices the consolidated tiers against the country-scoped rate
// table. A tier with no rate row contributes zero and is not an error; that
// is the shop's pricing policy for destinations without a configured rate.
func resolveRates(ctx context.Context, store client.AirtableClient, tiers []model.ShippingTier, country string) (int64, []model.ShippingCharge, error) {
	if len(tiers) == 0 {
		return 0, nil, nil
	}

	rates, err := store.FetchShippingRates(ctx, tiers, country)
	if err != nil {
		return 0, nil, fmt.Errorf("resolve shipping rates: %w", err)
	}

	byTier := make(map[model.ShippingTier]*model.ShippingRate, len(rates))
	for _, rate := range rates {
		byTier[rate.Tier] = rate
	}

	var total int64
	var charges []model.ShippingCharge
	for _, tier := range tiers {
		rate, ok := byTier[tier]
		if !ok {
			continue
		}
		total += rate.AmountMinorUnits
		charges = append(charges, model.ShippingCharge{
			Tier:             tier,
			Label:            rate.Label,
			AmountMinorUnits: rate.AmountMinorUnits,
		})
	}
	return total, charges, nil
}
