// Package money handles whole-rupee prices.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round converts a decimal amount to whole currency units, half away from zero.
func Round(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// FormatINR groups digits the Indian way: the last three, then pairs
// (1234567 -> "12,34,567").
func FormatINR(amount int64) string {
	negative := amount < 0
	digits := strconv.FormatInt(amount, 10)
	if negative {
		digits = digits[1:]
	}

	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		groups = append([]string{head}, groups...)
		digits = strings.Join(groups, ",") + "," + tail
	}

	if negative {
		return "-" + digits
	}
	return digits
}

// Display renders an amount with the rupee sign.
func Display(amount int64) string {
	return "₹" + FormatINR(amount)
}
