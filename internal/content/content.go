// Package content extracts structured fields from a message body: a one-time
// code, a monetary amount, a transaction direction, and a merchant name.
// Extraction is pure and total; a pattern that does not match simply leaves
// its field empty.
package content

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the inferred transaction direction of a message.
type Direction string

const (
	DirectionNone       Direction = ""
	DirectionPaymentOut Direction = "PAYMENT_OUT"
	DirectionPaymentIn  Direction = "PAYMENT_IN"
	DirectionLogin      Direction = "LOGIN"
)

// Analysis is the structured content extracted from one message. Zero values
// mean "not detected", never "detected as false".
type Analysis struct {
	OTPCode   string    `json:"otpCode,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	// Amount is the matched value with thousands separators stripped,
	// e.g. "5000" or "12500.50". AmountValue carries the parsed decimal.
	Amount      string          `json:"amount,omitempty"`
	AmountValue decimal.Decimal `json:"-"`
	Merchant    string          `json:"merchant,omitempty"`
}

// HasAmount reports whether a monetary amount was detected.
func (a Analysis) HasAmount() bool { return a.Amount != "" }

var (
	// Exactly six digits bounded by word breaks; first match wins.
	otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

	// Rs./INR followed by digits with optional thousands separators and up
	// to two decimal places.
	amountPattern = regexp.MustCompile(`(?i)(?:Rs\.?\s?|INR\s?)([\d,]+(?:\.\d{1,2})?)`)
)

// Direction keyword sets, checked in priority order. First matching category
// wins.
var (
	paymentOutWords = []string{"debit", "purchase", "payment"}
	paymentInWords  = []string{"credit", "refund", "received"}
	loginWords      = []string{"login", "verify", "otp"}
)

// knownMerchants is the fixed merchant vocabulary, matched case-insensitively
// as substrings. First hit wins.
var knownMerchants = []string{
	"amazon", "flipkart", "swiggy", "zomato", "paytm", "google pay", "phonepe",
}

// Extract parses the message body. It never fails for any input, including
// the empty string, and is idempotent.
func Extract(messageText string) Analysis {
	var out Analysis

	if m := otpPattern.FindStringSubmatch(messageText); m != nil {
		out.OTPCode = m[1]
	}

	if m := amountPattern.FindStringSubmatch(messageText); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := decimal.NewFromString(raw); err == nil {
			out.Amount = raw
			out.AmountValue = v
		}
	}

	lower := strings.ToLower(messageText)
	switch {
	case containsAny(lower, paymentOutWords):
		out.Direction = DirectionPaymentOut
	case containsAny(lower, paymentInWords):
		out.Direction = DirectionPaymentIn
	case containsAny(lower, loginWords):
		out.Direction = DirectionLogin
	}

	for _, merchant := range knownMerchants {
		if strings.Contains(lower, merchant) {
			out.Merchant = merchant
			break
		}
	}

	return out
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
