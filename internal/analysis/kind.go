package analysis

import "fmt"

// Kind identifies one of the fixed analyses offered by the dashboard.
type Kind int

const (
	SalesByStoreLocation Kind = iota + 1
	MostPopularProducts
	OrganicCoffee
	EcoFriendlyCup
	PriceVsQuantity
	PriceDistribution
)

// Column names the analyses depend on, as they appear after header trimming.
const (
	ColStoreLocation  = "Store_location"
	ColProductType    = "Product_type"
	ColOrganicCoffee  = "Organic Coffee"
	ColEcoFriendlyCup = "Eco_Friendly_cup"
	ColUnitPrice      = "Unit_price"
	ColTransactionQty = "Transaction_qty"
)

var kindLabels = map[Kind]string{
	SalesByStoreLocation: "Sales by Store Location",
	MostPopularProducts:  "Most Popular Products",
	OrganicCoffee:        "Organic Coffee Analysis",
	EcoFriendlyCup:       "Eco_Friendly_cup Analysis",
	PriceVsQuantity:      "Price vs Quantity (Line Plot)",
	PriceDistribution:    "Price Distribution (Histogram)",
}

// Kinds returns every analysis in menu order.
func Kinds() []Kind {
	return []Kind{
		SalesByStoreLocation,
		MostPopularProducts,
		OrganicCoffee,
		EcoFriendlyCup,
		PriceVsQuantity,
		PriceDistribution,
	}
}

// String returns the menu label.
func (k Kind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps an exact menu label back to its Kind.
func ParseKind(label string) (Kind, bool) {
	for k, l := range kindLabels {
		if l == label {
			return k, true
		}
	}
	return 0, false
}
