// internal/domain/order/entity.go
package order

import (
	"database/sql"
	"time"
)

// Status is the order lifecycle state. Transitions move forward through
// statusSequence one step at a time; Delivered is terminal. ConfirmDelivery
// is the single sanctioned exception and may force Delivered from any state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPickingUp Status = "PICKING_UP"
	StatusWashing   Status = "WASHING"
	StatusDelivery  Status = "DELIVERY"
	StatusDelivered Status = "DELIVERED"
)

var statusSequence = []Status{
	StatusPending,
	StatusPickingUp,
	StatusWashing,
	StatusDelivery,
	StatusDelivered,
}

func (s Status) Valid() bool {
	for _, st := range statusSequence {
		if st == s {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered
}

// Next returns the single next status in the sequence, or the receiver
// unchanged with ok=false when the status is terminal or unknown.
func (s Status) Next() (Status, bool) {
	for i, st := range statusSequence {
		if st == s && i < len(statusSequence)-1 {
			return statusSequence[i+1], true
		}
	}
	return s, false
}

type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type Order struct {
	ID                  string         `json:"id" db:"id"`
	CustomerID          string         `json:"customer_id" db:"customer_id"`
	CustomerName        string         `json:"customer_name" db:"customer_name"`
	Items               []Item         `json:"items" db:"items"`
	TotalAmount         float64        `json:"total_amount" db:"total_amount"`
	Status              Status         `json:"status" db:"status"`
	PickupLocation      *Location      `json:"pickup_location,omitempty" db:"pickup_location"`
	StaffID             sql.NullString `json:"staff_id,omitempty" db:"staff_id"`
	DeliveryCode        string         `json:"delivery_code" db:"delivery_code"`
	ConfirmedByCustomer bool           `json:"confirmed_by_customer" db:"confirmed_by_customer"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	CompletedAt         sql.NullTime   `json:"completed_at,omitempty" db:"completed_at"`
}
