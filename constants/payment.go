package constants

import "strings"

// PaymentStatus is the freight payment term printed on an LR.
type PaymentStatus string

const (
	PaymentUnknown PaymentStatus = "Unknown"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentToPay   PaymentStatus = "To Pay"
)

// ParsePaymentStatus normalizes OCR spellings such as "ToPay" or "to  pay".
func ParsePaymentStatus(s string) PaymentStatus {
	compact := strings.ToLower(strings.Join(strings.Fields(s), ""))
	switch compact {
	case "topay":
		return PaymentToPay
	case "paid":
		return PaymentPaid
	default:
		return PaymentUnknown
	}
}

func (p PaymentStatus) Known() bool { return p == PaymentPaid || p == PaymentToPay }
