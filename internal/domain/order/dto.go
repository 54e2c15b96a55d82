// internal/domain/order/dto.go
package order

type CreateOrderItem struct {
	Name     string  `json:"name" binding:"required,max=120"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items          []CreateOrderItem `json:"items" binding:"required,min=1,dive"`
	PickupLocation *Location         `json:"pickup_location"`
}

type OrderListFilters struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type OrderListResponse struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

type RevenueSummary struct {
	TotalRevenue    float64 `json:"total_revenue"`
	DeliveredOrders int     `json:"delivered_orders"`
	ActiveOrders    int     `json:"active_orders"`
}
