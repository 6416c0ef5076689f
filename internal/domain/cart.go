package domain

// CartLine is a single product entry in an account cart.
type CartLine struct {
	ProductID string `bson:"product_id" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// Cart holds at most one line per product. A nil Cart means the account never had one.
type Cart []CartLine

func (c Cart) Index(productID string) int {
	for i, line := range c {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Quantity(productID string) int {
	if i := c.Index(productID); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

// Set returns a copy of c with the line for productID set to qty.
// A qty of zero or less removes the line.
func (c Cart) Set(productID string, qty int) Cart {
	out := c.Clone()
	if out == nil {
		out = Cart{}
	}
	i := out.Index(productID)
	switch {
	case qty <= 0 && i >= 0:
		return append(out[:i], out[i+1:]...)
	case qty <= 0:
		return out
	case i >= 0:
		out[i].Quantity = qty
		return out
	default:
		return append(out, CartLine{ProductID: productID, Quantity: qty})
	}
}

func (c Cart) Remove(productID string) (Cart, bool) {
	if c.Index(productID) < 0 {
		return c.Clone(), false
	}
	return c.Set(productID, 0), true
}

func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c {
		total += line.Quantity
	}
	return total
}

func (c Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c))
	for _, line := range c {
		ids = append(ids, line.ProductID)
	}
	return ids
}

// Equal compares line by line, order included. Nil and empty carts are equal.
func (c Cart) Equal(other Cart) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
