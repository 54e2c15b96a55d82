// internal/domain/discount/entity.go
package discount

import "time"

type Offer struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Message   string    `json:"message" db:"message"`
	Claimed   bool      `json:"claimed" db:"claimed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Status summarises a user's offers for the admin listing.
type Status string

const (
	StatusNone    Status = "None"
	StatusPending Status = "Pending"
	StatusClaimed Status = "Claimed"
)
