package analysis

import (
	"fmt"
	"slices"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/dataset"
)

const topProducts = 5

// Definition binds an analysis kind to the columns it needs and the routine that
// computes it. Run is only called once every Required column is present.
type Definition struct {
	Kind     Kind
	Label    string
	Title    string
	Required []string
	Run      func(ds *dataset.Dataset) (*Result, error)
}

// Result is one computed analysis, ready to present. Narrative is markdown and empty
// for the count-based analyses.
type Result struct {
	Kind      Kind
	Title     string
	Chart     charts.Spec
	Narrative string

	Counts  []CategoryCount
	Points  []PricePoint
	Summary *PriceSummary
}

var definitions = []Definition{
	{
		Kind:     SalesByStoreLocation,
		Title:    "🏬 Sales by Store Location",
		Required: []string{ColStoreLocation},
		Run:      countsOf(ColStoreLocation, 0, charts.TypeBar, "Sales by Store Location"),
	},
	{
		Kind:     MostPopularProducts,
		Title:    "🏆 Top 5 Most Popular Products",
		Required: []string{ColProductType},
		Run:      countsOf(ColProductType, topProducts, charts.TypeBar, "Top 5 Most Popular Products"),
	},
	{
		Kind:     OrganicCoffee,
		Title:    "🌱 Organic Coffee Distribution",
		Required: []string{ColOrganicCoffee},
		Run:      countsOf(ColOrganicCoffee, 0, charts.TypePie, "Organic Coffee Distribution"),
	},
	{
		Kind:     EcoFriendlyCup,
		Title:    "♻️ Eco_Friendly_cup Usage",
		Required: []string{ColEcoFriendlyCup},
		Run:      countsOf(ColEcoFriendlyCup, 0, charts.TypePie, "Eco_Friendly_cup Usage"),
	},
	{
		Kind:     PriceVsQuantity,
		Title:    "📈 Price vs Quantity Line Plot",
		Required: []string{ColUnitPrice, ColTransactionQty},
		Run:      runPriceVsQuantity,
	},
	{
		Kind:     PriceDistribution,
		Title:    "📊 Price Distribution Histogram",
		Required: []string{ColUnitPrice},
		Run:      runPriceDistribution,
	},
}

func init() {
	for i := range definitions {
		definitions[i].Label = definitions[i].Kind.String()
	}
}

// Registry returns every analysis definition in menu order.
func Registry() []Definition {
	return slices.Clone(definitions)
}

func Lookup(kind Kind) (Definition, bool) {
	for _, def := range definitions {
		if def.Kind == kind {
			return def, true
		}
	}
	return Definition{}, false
}

// Run validates the required columns and computes one analysis. Absent columns yield a
// *MissingColumnError naming only those columns, and no result.
func Run(kind Kind, ds *dataset.Dataset) (*Result, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown analysis %v", kind)
	}

	if missing := ds.Missing(def.Required...); len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}

	res, err := def.Run(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Label, err)
	}
	res.Kind = kind
	res.Title = def.Title
	return res, nil
}

// countsOf builds a frequency analysis over column. A positive limit keeps only the
// most frequent values.
func countsOf(column string, limit int, chartType charts.Type, chartTitle string) func(*dataset.Dataset) (*Result, error) {
	return func(ds *dataset.Dataset) (*Result, error) {
		cells, err := ds.Strings(column)
		if err != nil {
			return nil, err
		}

		counts := ValueCounts(cells)
		if limit > 0 {
			counts = TopN(counts, limit)
		}

		spec := charts.Spec{Type: chartType, Title: chartTitle}
		if chartType == charts.TypeBar {
			spec.XLabel = column
			spec.YLabel = "count"
		}
		for _, c := range counts {
			spec.Labels = append(spec.Labels, c.Value)
			spec.Values = append(spec.Values, float64(c.Count))
		}

		return &Result{Chart: spec, Counts: counts}, nil
	}
}

func runPriceVsQuantity(ds *dataset.Dataset) (*Result, error) {
	prices, err := ds.Floats(ColUnitPrice)
	if err != nil {
		return nil, err
	}
	qty, err := ds.Floats(ColTransactionQty)
	if err != nil {
		return nil, err
	}

	pq, err := SummarizePriceQuantity(MeanByPrice(prices, qty))
	if err != nil {
		return nil, fmt.Errorf("%s and %s: %w", ColUnitPrice, ColTransactionQty, err)
	}

	spec := charts.Spec{
		Type:   charts.TypeLine,
		Title:  "Unit Price vs Quantity Sold",
		XLabel: "Unit Price",
		YLabel: "Average Transaction Quantity",
	}
	for _, pt := range pq.Points {
		spec.X = append(spec.X, pt.Price)
		spec.Values = append(spec.Values, pt.MeanQty)
	}

	return &Result{
		Chart:     spec,
		Narrative: priceQuantityNarrative(pq),
		Points:    pq.Points,
	}, nil
}

func runPriceDistribution(ds *dataset.Dataset) (*Result, error) {
	prices, err := ds.Floats(ColUnitPrice)
	if err != nil {
		return nil, err
	}

	bins, err := Bins(prices, HistogramBins)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ColUnitPrice, err)
	}
	summary, err := Summarize(prices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ColUnitPrice, err)
	}

	return &Result{
		Chart: charts.Spec{
			Type:   charts.TypeHistogram,
			Title:  "Distribution of Unit Prices",
			XLabel: "Unit Price",
			YLabel: "Frequency",
			Bins:   bins,
		},
		Narrative: priceDistributionNarrative(summary),
		Summary:   &summary,
	}, nil
}
