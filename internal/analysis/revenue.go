package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/dataset"
)

const revenuePreviewRows = 5

var RevenueRequired = []string{ColTransactionQty, ColUnitPrice, ColProductType}

type ProductRevenue struct {
	Product string  `json:"product"`
	Revenue float64 `json:"revenue"`
}

type RevenueResult struct {
	Preview dataset.Table
	Totals  []ProductRevenue
	Chart   charts.Spec
}

// Revenue derives the Revenue column and rolls it up per product. The returned dataset
// carries the new column and replaces ds for the rest of the session; ds itself is
// left untouched. Missing columns abort before anything is derived.
func Revenue(ds *dataset.Dataset) (*RevenueResult, *dataset.Dataset, error) {
	if missing := ds.Missing(RevenueRequired...); len(missing) > 0 {
		return nil, nil, &MissingColumnError{Columns: missing}
	}

	next, err := ds.WithRevenue(ColTransactionQty, ColUnitPrice)
	if err != nil {
		return nil, nil, fmt.Errorf("derive revenue: %w", err)
	}

	preview, err := next.Head(revenuePreviewRows, ColProductType, dataset.RevenueColumn)
	if err != nil {
		return nil, nil, err
	}

	products, err := next.Strings(ColProductType)
	if err != nil {
		return nil, nil, err
	}
	revenue, err := next.Floats(dataset.RevenueColumn)
	if err != nil {
		return nil, nil, err
	}

	totals := RevenueByProduct(products, revenue)
	spec := charts.Spec{
		Type:   charts.TypeBar,
		Title:  "Revenue by Product",
		XLabel: ColProductType,
		YLabel: dataset.RevenueColumn,
	}
	for _, t := range totals {
		spec.Labels = append(spec.Labels, t.Product)
		spec.Values = append(spec.Values, t.Revenue)
	}

	return &RevenueResult{Preview: preview, Totals: totals, Chart: spec}, next, nil
}

// RevenueByProduct sums revenue per product, highest total first. Rows without a
// product are dropped and null revenue adds nothing. Equal totals keep first-appearance
// order.
func RevenueByProduct(products []string, revenue []float64) []ProductRevenue {
	index := make(map[string]int)
	var totals []ProductRevenue
	for i := range min(len(products), len(revenue)) {
		product := products[i]
		if dataset.IsNull(product) {
			continue
		}

		j, ok := index[product]
		if !ok {
			j = len(totals)
			index[product] = j
			totals = append(totals, ProductRevenue{Product: product})
		}
		if v := revenue[i]; !math.IsNaN(v) {
			totals[j].Revenue += v
		}
	}

	slices.SortStableFunc(totals, func(a, b ProductRevenue) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
	return totals
}
