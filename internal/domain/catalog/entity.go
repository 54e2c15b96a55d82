// internal/domain/catalog/entity.go
package catalog

// ServiceItem is one orderable laundry service. Price ranges (duvets,
// leather jackets) carry the range text and the low end as the base price.
type ServiceItem struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	PriceNote string  `json:"price_note,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Note      string  `json:"note,omitempty"`
}

// PriceList is the full catalog served to dashboards and injected into the
// assistant's system instruction.
func PriceList() []ServiceItem {
	return []ServiceItem{
		{Code: "wash-dry-fold", Name: "Assorted Clothes: Wash, Dry & Fold", Category: "clothes", Price: 90, Unit: "kg", Note: "minimum 5kg"},
		{Code: "wash-dry-fold-iron", Name: "Assorted Clothes: Wash, Dry, Fold & Iron", Category: "clothes", Price: 140, Unit: "kg", Note: "minimum 5kg"},
		{Code: "duvet-small-white", Name: "Duvet Small (White)", Category: "bedding", Price: 600, PriceNote: "600-700"},
		{Code: "duvet-small-color", Name: "Duvet Small (Colors)", Category: "bedding", Price: 500, PriceNote: "500-600"},
		{Code: "duvet-medium-white", Name: "Duvet Medium (White)", Category: "bedding", Price: 700, PriceNote: "700-800"},
		{Code: "duvet-medium-color", Name: "Duvet Medium (Colors)", Category: "bedding", Price: 600, PriceNote: "600-700"},
		{Code: "duvet-large-white", Name: "Duvet Large (White)", Category: "bedding", Price: 800, PriceNote: "800-900"},
		{Code: "duvet-large-color", Name: "Duvet Large (Colors)", Category: "bedding", Price: 700, PriceNote: "700-800"},
		{Code: "sleeping-bag-white", Name: "Sleeping Bag (White)", Category: "bedding", Price: 400, PriceNote: "400-600"},
		{Code: "sleeping-bag-color", Name: "Sleeping Bag (Colors)", Category: "bedding", Price: 300, PriceNote: "300-500"},
		{Code: "suit-2pc", Name: "Suit (2-piece)", Category: "special", Price: 500},
		{Code: "suit-3pc", Name: "Suit (3-piece)", Category: "special", Price: 600},
		{Code: "gown-graduation", Name: "Graduation Gown", Category: "special", Price: 500},
		{Code: "gown-wedding", Name: "Wedding Gown", Category: "special", Price: 2000},
		{Code: "trench-coat", Name: "Trench Coat", Category: "special", Price: 200},
		{Code: "hoodie", Name: "Hoodie", Category: "special", Price: 200},
		{Code: "jacket", Name: "Jacket", Category: "special", Price: 200},
		{Code: "leather-jacket", Name: "Leather Jacket", Category: "special", Price: 300, PriceNote: "300-700"},
		{Code: "cassock", Name: "Cassock", Category: "special", Price: 200},
	}
}
