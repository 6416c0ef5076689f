package domain

import (
	"strings"
	"unicode"
)

type ShippingInfo struct {
	FirstName  string `bson:"first_name" json:"firstName"`
	LastName   string `bson:"last_name" json:"lastName"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	PostalCode string `bson:"postal_code" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (s ShippingInfo) Trimmed() ShippingInfo {
	return ShippingInfo{
		FirstName:  strings.TrimSpace(s.FirstName),
		LastName:   strings.TrimSpace(s.LastName),
		Address:    strings.TrimSpace(s.Address),
		City:       strings.TrimSpace(s.City),
		State:      strings.TrimSpace(s.State),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.TrimSpace(s.Country),
	}
}

// Missing lists the form names of the empty fields.
func (s ShippingInfo) Missing() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"firstName", s.FirstName},
		{"lastName", s.LastName},
		{"address", s.Address},
		{"city", s.City},
		{"state", s.State},
		{"postalCode", s.PostalCode},
		{"country", s.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCOD  PaymentMethod = "cod"
	PaymentUPI  PaymentMethod = "upi"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCOD || m == PaymentUPI
}

// PaymentInfo never carries the full card number or the CVV.
type PaymentInfo struct {
	Method     PaymentMethod `bson:"method" json:"method"`
	CardLast4  string        `bson:"card_last4,omitempty" json:"cardLast4,omitempty"`
	CardHolder string        `bson:"card_holder,omitempty" json:"cardHolder,omitempty"`
	Expiry     string        `bson:"expiry,omitempty" json:"expiry,omitempty"`
}

// CardDetails is the raw payment form input. It must not outlive the request.
type CardDetails struct {
	Method     PaymentMethod
	CardNumber string
	CardHolder string
	Expiry     string
	CVV        string
}

// Redact keeps the last four digits of the card number and drops the CVV.
func (c CardDetails) Redact() PaymentInfo {
	info := PaymentInfo{Method: c.Method}
	if c.Method != PaymentCard {
		return info
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, c.CardNumber)
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	info.CardLast4 = digits
	info.CardHolder = strings.TrimSpace(c.CardHolder)
	info.Expiry = strings.TrimSpace(c.Expiry)
	return info
}

type CheckoutStep int

const (
	StepShipping CheckoutStep = iota + 1
	StepPayment
	StepReview
)

// CheckoutDraft is the session scoped state of the checkout wizard.
type CheckoutDraft struct {
	Shipping *ShippingInfo `json:"shipping,omitempty"`
	Payment  *PaymentInfo  `json:"payment,omitempty"`
}

// Step is the furthest step the draft allows.
func (d CheckoutDraft) Step() CheckoutStep {
	switch {
	case d.Shipping == nil:
		return StepShipping
	case d.Payment == nil:
		return StepPayment
	default:
		return StepReview
	}
}

func (d CheckoutDraft) Allows(step CheckoutStep) bool {
	return step <= d.Step()
}
