package domain

import "time"

// ReservationStatus represents the state of a stock reservation
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationReleased  ReservationStatus = "released"
)

// ReservationItem is one decremented product line. Applied is set once the
// product stock was actually decremented and cleared when it is given back.
type ReservationItem struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
	Applied   bool   `bson:"applied"`
}

// Reservation tracks the stock taken for one order placement.
type Reservation struct {
	ID        string            `bson:"_id"`
	UserID    string            `bson:"user_id"`
	Items     []ReservationItem `bson:"items"`
	Status    ReservationStatus `bson:"status"`
	CreatedAt time.Time         `bson:"created_at"`
	ExpiresAt time.Time         `bson:"expires_at"`
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
