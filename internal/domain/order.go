package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is a snapshot of a product taken when the order was placed.
type OrderItem struct {
	ProductID string `bson:"product_id" json:"productId"`
	Name      string `bson:"name" json:"name"`
	Price     Money  `bson:"price" json:"price"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	Image     string `bson:"image" json:"image"`
}

func (i OrderItem) LineTotal() Money {
	return i.Price.Mul(i.Quantity)
}

type Totals struct {
	Subtotal     Money `bson:"subtotal" json:"subtotal"`
	ShippingCost Money `bson:"shipping_cost" json:"shipping"`
	Tax          Money `bson:"tax" json:"tax"`
	Total        Money `bson:"total" json:"total"`
}

// ComputeTotals sums the item lines and adds shipping and taxPercent percent tax on the subtotal.
func ComputeTotals(items []OrderItem, shipping Money, taxPercent int64) Totals {
	var subtotal Money
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	tax := subtotal.Percent(taxPercent)
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal + shipping + tax,
	}
}

type Order struct {
	OrderNumber   string       `bson:"order_number" json:"orderNumber"`
	UserID        string       `bson:"user_id" json:"userId"`
	ReservationID string       `bson:"reservation_id" json:"-"`
	Items         []OrderItem  `bson:"items" json:"items"`
	Shipping      ShippingInfo `bson:"shipping" json:"shipping"`
	Payment       PaymentInfo  `bson:"payment" json:"payment"`
	Totals        `bson:",inline"`
	Status        OrderStatus `bson:"status" json:"status"`
	CreatedAt     time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time   `bson:"updated_at" json:"updatedAt"`
}

func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
