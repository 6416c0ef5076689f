package service

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix      = "ORD-"
	orderNumberRandomChars = 6
	maxOrderNumberAttempts = 5
	base36Alphabet         = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewOrderNumber returns ORD- followed by the base36 unix millis and six random base36 chars, upper cased.
func NewOrderNumber(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	for i := 0; i < orderNumberRandomChars; i++ {
		b.WriteByte(base36Alphabet[rand.IntN(len(base36Alphabet))])
	}
	return orderNumberPrefix + strings.ToUpper(b.String())
}
