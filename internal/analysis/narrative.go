package analysis

import (
	"fmt"
	"strings"
)

// Narratives are markdown bullet lists; the page renders them to HTML.

func priceQuantityNarrative(pq PriceQuantity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- The **highest average quantity sold** was **%.2f** at a unit price of **$%.2f**.\n",
		pq.Highest.MeanQty, pq.Highest.Price)
	fmt.Fprintf(&b, "- The **lowest average quantity sold** was **%.2f** at a unit price of **$%.2f**.\n",
		pq.Lowest.MeanQty, pq.Lowest.Price)

	article := "an"
	if pq.Trend == TrendDecreasing {
		article = "a"
	}
	fmt.Fprintf(&b, "- Overall, there is **%s %s trend in quantity sold as price increases**.\n", article, pq.Trend)
	return b.String()
}

func priceDistributionNarrative(s PriceSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- The **average (mean)** unit price is **$%.2f**.\n", s.Mean)
	fmt.Fprintf(&b, "- The **median** unit price is **$%.2f**, and the **most frequent (mode)** price is **$%.2f**.\n",
		s.Median, s.Mode)
	fmt.Fprintf(&b, "- Prices range from **$%.2f** to **$%.2f**.\n", s.Min, s.Max)

	if s.RightSkewed() {
		b.WriteString("- The price distribution is **right-skewed**, indicating higher-priced outliers.\n")
	} else {
		b.WriteString("- The price distribution is **left-skewed** or fairly symmetric.\n")
	}
	return b.String()
}
