package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/scoremash/internal/domain"
)

type OrderMailer struct {
	client      EmailClient
	fromAddress string
}

func NewOrderMailer(client EmailClient, fromAddress string) *OrderMailer {
	return &OrderMailer{client: client, fromAddress: fromAddress}
}

// SendOrderPlaced mails the order summary to the customer.
func (m *OrderMailer) SendOrderPlaced(ctx context.Context, to, name string, order domain.OrderPlaced) error {
	subject := fmt.Sprintf("ScoreMash order %s confirmed", order.OrderNumber)
	return m.client.Send(ctx, m.fromAddress, to, subject, orderPlacedBody(name, order))
}

func orderPlacedBody(name string, order domain.OrderPlaced) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", name)
	}
	fmt.Fprintf(&b, "Thanks for shopping with ScoreMash. Your order %s has been placed.\n\n", order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s  %s\n", item.Quantity, item.Name, item.LineTotal())
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", order.Subtotal)
	fmt.Fprintf(&b, "Shipping: %s\n", order.Shipping)
	fmt.Fprintf(&b, "Tax:      %s\n", order.Tax)
	fmt.Fprintf(&b, "Total:    %s\n", order.Total)
	return b.String()
}
