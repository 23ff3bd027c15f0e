package service

import "print-checkout-backend/internal/model"

type validationResult struct {
	Validated  []*model.ValidatedLine
	NotFound   []string
	OutOfStock []model.OutOfStockItem
}

// validateCart merges the client cart against fetched inventory. Each line
// lands in exactly one bucket: validated, not found, or out of stock. A line
// is all-or-nothing at its requested quantity; there is no partial fill.
func validateCart(lines []model.CartLine, products []*model.Product) validationResult {
	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var result validationResult
	for _, line := range lines {
		qty := line.Qty
		if qty < 1 {
			qty = 1
		}

		product, ok := byID[line.ProductID]
		if !ok {
			result.NotFound = append(result.NotFound, line.ProductID)
			continue
		}
		if product.Status != model.StatusAvailable || product.AvailableQty < qty {
			result.OutOfStock = append(result.OutOfStock, model.OutOfStockItem{
				ID:   product.ID,
				Name: product.Name,
			})
			continue
		}

		result.Validated = append(result.Validated, &model.ValidatedLine{
			Product: product,
			Qty:     qty,
		})
	}
	return result
}

func cartProductIDs(lines []model.CartLine) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == "" || seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true
		ids = append(ids, line.ProductID)
	}
	return ids
}
