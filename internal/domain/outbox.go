package domain

import "time"

const EventOrderPlaced = "order.placed"

type OutboxEvent struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregate_id"`
	EventType   string     `bson:"event_type"`
	Payload     []byte     `bson:"payload"`
	CreatedAt   time.Time  `bson:"created_at"`
	ProcessedAt *time.Time `bson:"processed_at"`
}

// OrderPlaced is the payload of an order.placed event.
type OrderPlaced struct {
	OrderNumber string      `json:"order_number"`
	UserID      string      `json:"user_id"`
	Items       []OrderItem `json:"items"`
	Subtotal    Money       `json:"subtotal"`
	Shipping    Money       `json:"shipping"`
	Tax         Money       `json:"tax"`
	Total       Money       `json:"total"`
	PlacedAt    time.Time   `json:"placed_at"`
}

func NewOrderPlaced(o *Order) OrderPlaced {
	return OrderPlaced{
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       o.Items,
		Subtotal:    o.Subtotal,
		Shipping:    o.ShippingCost,
		Tax:         o.Tax,
		Total:       o.Total,
		PlacedAt:    o.CreatedAt,
	}
}
